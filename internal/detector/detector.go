package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
)

const (
	// EXTRACT_BIB_NUMBERS_PATH is the detection endpoint relative to the service base URL
	EXTRACT_BIB_NUMBERS_PATH = "/extract/bib-numbers"

	// FILES_FIELD is the multipart field carrying the uploaded images
	FILES_FIELD = "files"

	// API_KEY_HEADER carries the detection service API key when one is configured
	API_KEY_HEADER = "X-API-Key"
)

// notDetected is the placeholder some service versions return instead of an empty list
const notDetected = "not detected"

// Image is one object submitted for detection
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

//go:generate mockgen -source=detector.go -destination=../mocks/detector.go -package=mocks -mock_names=Detector=MockDetector

// Detector extracts bib numbers from images through the remote detection service
type Detector interface {
	// Detect submits one image and returns its detection.
	// Errors wrapping domain.ErrTransient may succeed on a later attempt; other errors are permanent.
	Detect(ctx context.Context, image Image) (*domain.Detection, error)
}

// Config configures the detection client
type Config struct {
	BaseURL string
	APIKey  string
}

// Client implements Detector over the detection HTTP API
type Client struct {
	cfg        Config
	httpClient adapter.HTTPClient
	json       adapter.JSON
}

// NewClient creates a detection client over httpClient
func NewClient(cfg Config, httpClient adapter.HTTPClient, jsonAdapter adapter.JSON) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		json:       jsonAdapter,
	}
}

// detectionResponse mirrors one entry of the service response
type detectionResponse struct {
	Filename       string            `json:"filename"`
	AthleteNumbers []string          `json:"athlete_numbers"`
	Confidence     json.RawMessage   `json:"confidence,omitempty"`
	ProcessingTime float64           `json:"processing_time,omitempty"`
	ModelVersions  map[string]string `json:"model_versions,omitempty"`
}

func (c *Client) Detect(ctx context.Context, image Image) (*domain.Detection, error) {
	detections, err := c.DetectBatch(ctx, []Image{image})
	if err != nil {
		return nil, err
	}
	return &detections[0], nil
}

// DetectBatch submits several images in one request and returns detections in input order
func (c *Client) DetectBatch(ctx context.Context, images []Image) ([]domain.Detection, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to detect")
	}

	body, contentType, err := encodeMultipart(images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode detection request: %w", err)
	}

	headers := map[string]string{"Accept": "application/json"}
	if c.cfg.APIKey != "" {
		headers[API_KEY_HEADER] = c.cfg.APIKey
	}

	respBody, err := c.httpClient.Post(ctx, c.cfg.BaseURL+EXTRACT_BIB_NUMBERS_PATH, contentType, body, headers)
	if err != nil {
		return nil, classify(ctx, err)
	}

	var resp []detectionResponse
	if err := c.json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	return matchResponses(ctx, images, resp)
}

// classify maps a transport error onto the transient/permanent split
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("detection cancelled: %w", ctx.Err())
	}

	var statusErr *adapter.StatusError
	if errors.As(err, &statusErr) && !statusErr.Retryable() {
		return fmt.Errorf("detection rejected: %w", err)
	}
	return fmt.Errorf("%w: detection failed: %v", domain.ErrTransient, err)
}

func encodeMultipart(images []Image) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, img := range images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FILES_FIELD, img.Filename))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// matchResponses pairs response entries with the submitted images by filename,
// falling back to position when the service renames uploads
func matchResponses(ctx context.Context, images []Image, resp []detectionResponse) ([]domain.Detection, error) {
	if len(resp) != len(images) {
		return nil, fmt.Errorf("detection response has %d entries for %d images", len(resp), len(images))
	}

	byName := make(map[string]detectionResponse, len(resp))
	for _, r := range resp {
		byName[r.Filename] = r
	}

	detections := make([]domain.Detection, len(images))
	for i, img := range images {
		r, ok := byName[img.Filename]
		if !ok {
			r = resp[i]
			logger.WarnCtx(ctx, "Detection response filename mismatch, matching by position",
				zap.String("filename", img.Filename),
				zap.String("response_filename", r.Filename))
		}
		detections[i] = toDetection(img.Filename, r)
	}
	return detections, nil
}

func toDetection(filename string, r detectionResponse) domain.Detection {
	numbers := make([]string, 0, len(r.AthleteNumbers))
	for _, n := range r.AthleteNumbers {
		n = strings.TrimSpace(n)
		if n == "" || strings.EqualFold(n, notDetected) {
			continue
		}
		numbers = append(numbers, n)
	}

	return domain.Detection{
		Filename:       filename,
		BibNumbers:     numbers,
		Confidence:     parseConfidence(r.Confidence),
		ProcessingTime: time.Duration(r.ProcessingTime * float64(time.Second)),
		ModelVersions:  r.ModelVersions,
	}
}

// parseConfidence accepts a single score or a list of per-crop scores, returning the highest
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var single float64
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}

	var scores []float64
	if err := json.Unmarshal(raw, &scores); err == nil {
		best := 0.0
		for _, s := range scores {
			best = max(best, s)
		}
		return best
	}
	return 0
}
