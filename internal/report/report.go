package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/objectstore"
	"github.com/feral-file/bib-pipeline/internal/store"
)

// Format is a report file format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

const (
	// REPORT_BASENAME is the file name of a bib report without extension
	REPORT_BASENAME = "bib_numbers"

	// DETECTION_PAGE_SIZE is how many detection rows are read per query
	DETECTION_PAGE_SIZE = 1000
)

// csvHeader is the header row of CSV reports
var csvHeader = []string{"eid", "cid", "photonum", "tag"}

// ParseFormat parses a configured report format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Row is one bib tag of one photo
type Row struct {
	EventID    string `parquet:"eid"`
	CustomerID string `parquet:"cid"`
	PhotoNum   string `parquet:"photonum"`
	Tag        string `parquet:"tag"`
}

// Report describes an uploaded report file
type Report struct {
	Key         string `json:"key"`
	Rows        int    `json:"rows"`
	Format      Format `json:"format"`
	Compressed  bool   `json:"compressed"`
	ContentType string `json:"content_type"`
}

// Options configures report generation
type Options struct {
	Format Format
	// Zstd compresses CSV output, and selects zstd page compression for parquet output
	Zstd   bool
	Prefix string
}

//go:generate mockgen -source=report.go -destination=../mocks/report.go -package=mocks -mock_names=Generator=MockReportGenerator

// Generator builds bib reports from the detection results of a partition date
type Generator interface {
	// Generate writes the report of a partition date and environment into the destination store
	Generate(ctx context.Context, partitionDate time.Time, env domain.Environment) (*Report, error)
}

type generator struct {
	store    store.Store
	uploader objectstore.Uploader
	opts     Options
}

// NewGenerator creates a report generator
func NewGenerator(st store.Store, uploader objectstore.Uploader, opts Options) Generator {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.Prefix == "" {
		opts.Prefix = "reports"
	}
	return &generator{store: st, uploader: uploader, opts: opts}
}

func (g *generator) Generate(ctx context.Context, partitionDate time.Time, env domain.Environment) (*Report, error) {
	rows, err := g.collectRows(ctx, partitionDate, env)
	if err != nil {
		return nil, err
	}

	data, contentType, err := g.encode(rows)
	if err != nil {
		return nil, err
	}

	key := g.reportKey(partitionDate, env)
	fullKey, err := g.uploader.Upload(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	logger.InfoCtx(ctx, "Uploaded bib report",
		zap.String("key", fullKey),
		zap.Int("rows", len(rows)),
		zap.Int("bytes", len(data)))

	return &Report{
		Key:         fullKey,
		Rows:        len(rows),
		Format:      g.opts.Format,
		Compressed:  g.opts.Zstd,
		ContentType: contentType,
	}, nil
}

// collectRows reads every detection result of the partition date in key order
func (g *generator) collectRows(ctx context.Context, partitionDate time.Time, env domain.Environment) ([]Row, error) {
	var rows []Row
	input := store.ListDetectionsInput{
		PartitionDate: partitionDate,
		Environment:   env,
		Limit:         DETECTION_PAGE_SIZE,
	}

	for {
		results, err := g.store.ListDetectionResults(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list detection results: %w", err)
		}

		for _, res := range results {
			tag := PadTag(res.Tag)
			if tag == "" {
				continue
			}
			rows = append(rows, Row{
				EventID:    res.EventID,
				CustomerID: res.CustomerID,
				PhotoNum:   res.PhotoNum,
				Tag:        tag,
			})
		}

		if len(results) < input.Limit {
			return rows, nil
		}
		last := results[len(results)-1]
		input.AfterObjectKey = last.ObjectKey
		input.AfterTag = last.Tag
	}
}

func (g *generator) encode(rows []Row) ([]byte, string, error) {
	switch g.opts.Format {
	case FormatParquet:
		data, err := EncodeParquet(rows, g.opts.Zstd)
		return data, "application/vnd.apache.parquet", err
	default:
		data, err := EncodeCSV(rows)
		if err != nil {
			return nil, "", err
		}
		if !g.opts.Zstd {
			return data, "text/csv", nil
		}
		compressed, err := Compress(data)
		return compressed, "application/zstd", err
	}
}

// reportKey returns {prefix}/{environment}/{partition_date}/bib_numbers.{ext}
func (g *generator) reportKey(partitionDate time.Time, env domain.Environment) string {
	ext := string(g.opts.Format)
	if g.opts.Format == FormatCSV && g.opts.Zstd {
		ext += ".zst"
	}
	return path.Join(g.opts.Prefix, string(env), domain.FormatPartitionDate(partitionDate), REPORT_BASENAME+"."+ext)
}

// PadTag zero-pads numeric tags to domain.BIB_TAG_DIGITS digits. Non-numeric tags are kept as they are.
func PadTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || len(tag) >= domain.BIB_TAG_DIGITS {
		return tag
	}
	for _, r := range tag {
		if r < '0' || r > '9' {
			return tag
		}
	}
	return strings.Repeat("0", domain.BIB_TAG_DIGITS-len(tag)) + tag
}

// EncodeCSV writes rows as CSV with an eid,cid,photonum,tag header
func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write([]string{r.EventID, r.CustomerID, r.PhotoNum, r.Tag}); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// EncodeParquet writes rows as a parquet file
func EncodeParquet(rows []Row, useZstd bool) ([]byte, error) {
	var buf bytes.Buffer

	var opts []parquet.WriterOption
	if useZstd {
		opts = append(opts, parquet.Compression(&parquet.Zstd))
	} else {
		opts = append(opts, parquet.Compression(&parquet.Snappy))
	}

	w := parquet.NewGenericWriter[Row](&buf, opts...)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Compress compresses data with zstd
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer func() {
		_ = enc.Close()
	}()

	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}
