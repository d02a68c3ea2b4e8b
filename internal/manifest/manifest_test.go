package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/manifest"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
partitions:
  - event_id: marathon-2024
    customer_id: allsports
  - prefix: legacy/uploads/
`)
	parts, err := manifest.ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourcePartition{
		{EventID: "marathon-2024", CustomerID: "allsports"},
		{Prefix: "legacy/uploads/"},
	}, parts)
}

func TestParseYAML_Empty(t *testing.T) {
	_, err := manifest.ParseYAML([]byte("partitions: []\n"))
	assert.Error(t, err)

	_, err = manifest.ParseYAML([]byte("partitions: [oops"))
	assert.Error(t, err)
}

func TestParseXLSX(t *testing.T) {
	data := writeWorkbook(t, [][]interface{}{
		{},
		{"Event_ID", "Customer_ID", "Notes"},
		{"evt1", "cust1", "first"},
		{},
		{" evt2 ", "cust2"},
	})

	parts, err := manifest.ParseXLSX(data)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourcePartition{
		{EventID: "evt1", CustomerID: "cust1"},
		{EventID: "evt2", CustomerID: "cust2"},
	}, parts)
}

func TestParseXLSX_MissingColumns(t *testing.T) {
	data := writeWorkbook(t, [][]interface{}{
		{"event", "customer"},
		{"evt1", "cust1"},
	})

	_, err := manifest.ParseXLSX(data)
	assert.ErrorContains(t, err, "event_id")
}

func TestParseXLSX_IncompleteRow(t *testing.T) {
	data := writeWorkbook(t, [][]interface{}{
		{"event_id", "customer_id"},
		{"evt1", ""},
	})

	_, err := manifest.ParseXLSX(data)
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)
}

func TestParseArgs(t *testing.T) {
	parts, err := manifest.ParseArgs([]string{"evt1/cust1", "/evt2/cust2/"})
	require.NoError(t, err)
	assert.Equal(t, []domain.SourcePartition{
		{EventID: "evt1", CustomerID: "cust1"},
		{EventID: "evt2", CustomerID: "cust2"},
	}, parts)

	_, err = manifest.ParseArgs([]string{"evt1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)

	_, err = manifest.ParseArgs([]string{"a/b/c"})
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "partitions.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("partitions:\n  - event_id: e\n    customer_id: c\n"), 0o600))
	parts, err := manifest.Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, parts, 1)

	xlsxPath := filepath.Join(dir, "partitions.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, writeWorkbook(t, [][]interface{}{
		{"event_id", "customer_id"},
		{"e", "c"},
	}), 0o600))
	parts, err = manifest.Load(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourcePartition{{EventID: "e", CustomerID: "c"}}, parts)

	_, err = manifest.Load(filepath.Join(dir, "partitions.json"))
	assert.Error(t, err)
}
