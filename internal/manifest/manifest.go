// Package manifest loads the source partitions of a pipeline run from yaml or xlsx files
// and from "event/customer" command line arguments.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

const (
	COLUMN_EVENT_ID    = "event_id"
	COLUMN_CUSTOMER_ID = "customer_id"
	COLUMN_PREFIX      = "prefix"
)

// File is the yaml manifest layout
type File struct {
	Partitions []domain.SourcePartition `yaml:"partitions"`
}

// Load reads a manifest file, choosing the parser by extension
func Load(path string) ([]domain.SourcePartition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".xlsx":
		return ParseXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))
	}
}

// ParseYAML parses a yaml manifest with a top-level partitions list
func ParseYAML(data []byte) ([]domain.SourcePartition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse yaml manifest: %w", err)
	}
	if len(f.Partitions) == 0 {
		return nil, errors.New("manifest lists no partitions")
	}
	return f.Partitions, nil
}

// ParseXLSX parses the first sheet of a workbook. The first non-empty row is the header and must
// contain event_id and customer_id columns; a prefix column is optional.
func ParseXLSX(data []byte) ([]domain.SourcePartition, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("manifest workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	var columns map[string]int
	var partitions []domain.SourcePartition
	for idx, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if columns == nil {
			columns, err = headerColumns(row)
			if err != nil {
				return nil, err
			}
			continue
		}

		p := domain.SourcePartition{
			EventID:    cell(row, columns, COLUMN_EVENT_ID),
			CustomerID: cell(row, columns, COLUMN_CUSTOMER_ID),
			Prefix:     cell(row, columns, COLUMN_PREFIX),
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", idx+1, err)
		}
		partitions = append(partitions, p)
	}

	if len(partitions) == 0 {
		return nil, errors.New("manifest lists no partitions")
	}
	return partitions, nil
}

// ParseArgs parses "event/customer" pairs
func ParseArgs(args []string) ([]domain.SourcePartition, error) {
	partitions := make([]domain.SourcePartition, 0, len(args))
	for _, arg := range args {
		p, err := domain.ParseSourcePartition(arg)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, p)
	}
	return partitions, nil
}

func headerColumns(row []string) (map[string]int, error) {
	columns := make(map[string]int, len(row))
	for i, name := range row {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	_, hasEvent := columns[COLUMN_EVENT_ID]
	_, hasCustomer := columns[COLUMN_CUSTOMER_ID]
	_, hasPrefix := columns[COLUMN_PREFIX]
	if !(hasEvent && hasCustomer) && !hasPrefix {
		return nil, fmt.Errorf("manifest header must contain %s and %s columns", COLUMN_EVENT_ID, COLUMN_CUSTOMER_ID)
	}
	return columns, nil
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
