package report_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/mocks"
	"github.com/feral-file/bib-pipeline/internal/report"
	"github.com/feral-file/bib-pipeline/internal/store"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

var reportDate = time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)

func detectionRow(key, tag string) schema.DetectionResult {
	info := domain.ParseSourceKey(key)
	return schema.DetectionResult{
		ObjectKey:     key,
		PartitionDate: reportDate,
		Environment:   domain.EnvironmentTest,
		Tag:           tag,
		EventID:       info.EventID,
		CustomerID:    info.CustomerID,
		PhotoNum:      info.PhotoNum,
	}
}

type reportMocks struct {
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	uploader *mocks.MockUploader
}

func setupReportMocks(t *testing.T) *reportMocks {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return &reportMocks{
		ctrl:     ctrl,
		store:    mocks.NewMockStore(ctrl),
		uploader: mocks.NewMockUploader(ctrl),
	}
}

func TestGenerate_CSV(t *testing.T) {
	m := setupReportMocks(t)

	m.store.EXPECT().
		ListDetectionResults(gomock.Any(), store.ListDetectionsInput{
			PartitionDate: reportDate,
			Environment:   domain.EnvironmentTest,
			Limit:         report.DETECTION_PAGE_SIZE,
		}).
		Return([]schema.DetectionResult{
			detectionRow("evt1/cust1/001_tn_1.jpg", "42"),
			detectionRow("evt1/cust1/001_tn_1.jpg", "1234"),
			detectionRow("evt1/cust1/002_tn_1.jpg", "A12"),
		}, nil)

	var uploaded []byte
	m.uploader.EXPECT().
		Upload(gomock.Any(), "reports/test/2024-03-17/bib_numbers.csv", gomock.Any(), "text/csv").
		DoAndReturn(func(_ context.Context, key string, data []byte, _ string) (string, error) {
			uploaded = data
			return "mirror/" + key, nil
		})

	gen := report.NewGenerator(m.store, m.uploader, report.Options{Format: report.FormatCSV})
	rep, err := gen.Generate(context.Background(), reportDate, domain.EnvironmentTest)
	require.NoError(t, err)

	assert.Equal(t, "mirror/reports/test/2024-03-17/bib_numbers.csv", rep.Key)
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t,
		"eid,cid,photonum,tag\n"+
			"evt1,cust1,001,00042\n"+
			"evt1,cust1,001,01234\n"+
			"evt1,cust1,002,A12\n",
		string(uploaded))
}

func TestGenerate_PagesThroughResults(t *testing.T) {
	m := setupReportMocks(t)

	firstPage := make([]schema.DetectionResult, report.DETECTION_PAGE_SIZE)
	for i := range firstPage {
		firstPage[i] = detectionRow(fmt.Sprintf("evt/cust/%05d_tn_1.jpg", i), "7")
	}
	last := firstPage[len(firstPage)-1]

	gomock.InOrder(
		m.store.EXPECT().
			ListDetectionResults(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, input store.ListDetectionsInput) ([]schema.DetectionResult, error) {
				assert.Empty(t, input.AfterObjectKey)
				return firstPage, nil
			}),
		m.store.EXPECT().
			ListDetectionResults(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, input store.ListDetectionsInput) ([]schema.DetectionResult, error) {
				assert.Equal(t, last.ObjectKey, input.AfterObjectKey)
				assert.Equal(t, last.Tag, input.AfterTag)
				return []schema.DetectionResult{detectionRow("evt/cust/99999_tn_1.jpg", "8")}, nil
			}),
	)
	m.uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("k", nil)

	rep, err := report.NewGenerator(m.store, m.uploader, report.Options{}).
		Generate(context.Background(), reportDate, domain.EnvironmentTest)
	require.NoError(t, err)
	assert.Equal(t, report.DETECTION_PAGE_SIZE+1, rep.Rows)
}

func TestGenerate_ZstdCSV(t *testing.T) {
	m := setupReportMocks(t)

	m.store.EXPECT().
		ListDetectionResults(gomock.Any(), gomock.Any()).
		Return([]schema.DetectionResult{detectionRow("evt/cust/001_tn_1.jpg", "5")}, nil)

	var uploaded []byte
	m.uploader.EXPECT().
		Upload(gomock.Any(), "out/production/2024-03-17/bib_numbers.csv.zst", gomock.Any(), "application/zstd").
		DoAndReturn(func(_ context.Context, key string, data []byte, _ string) (string, error) {
			uploaded = data
			return key, nil
		})

	gen := report.NewGenerator(m.store, m.uploader, report.Options{Format: report.FormatCSV, Zstd: true, Prefix: "out"})
	rep, err := gen.Generate(context.Background(), reportDate, domain.EnvironmentProduction)
	require.NoError(t, err)
	assert.True(t, rep.Compressed)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	plain, err := dec.DecodeAll(uploaded, nil)
	require.NoError(t, err)
	assert.Equal(t, "eid,cid,photonum,tag\nevt,cust,001,00005\n", string(plain))
}

func TestGenerate_Parquet(t *testing.T) {
	m := setupReportMocks(t)

	m.store.EXPECT().
		ListDetectionResults(gomock.Any(), gomock.Any()).
		Return([]schema.DetectionResult{
			detectionRow("evt/cust/001_tn_1.jpg", "5"),
			detectionRow("evt/cust/002_tn_1.jpg", "123456"),
		}, nil)

	var uploaded []byte
	m.uploader.EXPECT().
		Upload(gomock.Any(), "reports/test/2024-03-17/bib_numbers.parquet", gomock.Any(), "application/vnd.apache.parquet").
		DoAndReturn(func(_ context.Context, key string, data []byte, _ string) (string, error) {
			uploaded = data
			return key, nil
		})

	gen := report.NewGenerator(m.store, m.uploader, report.Options{Format: report.FormatParquet, Zstd: true})
	_, err := gen.Generate(context.Background(), reportDate, domain.EnvironmentTest)
	require.NoError(t, err)

	rows, err := parquet.Read[report.Row](bytes.NewReader(uploaded), int64(len(uploaded)))
	require.NoError(t, err)
	assert.Equal(t, []report.Row{
		{EventID: "evt", CustomerID: "cust", PhotoNum: "001", Tag: "00005"},
		{EventID: "evt", CustomerID: "cust", PhotoNum: "002", Tag: "123456"},
	}, rows)
}

func TestGenerate_StoreError(t *testing.T) {
	m := setupReportMocks(t)

	m.store.EXPECT().
		ListDetectionResults(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	_, err := report.NewGenerator(m.store, m.uploader, report.Options{}).
		Generate(context.Background(), reportDate, domain.EnvironmentTest)
	assert.ErrorContains(t, err, "connection refused")
}

func TestPadTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "00001"},
		{"42", "00042"},
		{"12345", "12345"},
		{"123456", "123456"},
		{" 7 ", "00007"},
		{"A1", "A1"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, report.PadTag(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := report.ParseFormat("Parquet")
	require.NoError(t, err)
	assert.Equal(t, report.FormatParquet, f)

	f, err = report.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, report.FormatCSV, f)

	_, err = report.ParseFormat("xml")
	assert.Error(t, err)
}
