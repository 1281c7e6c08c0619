package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"sync"
	"time"
)

// Segmenter separates the subject of an image from its background, returning
// an image whose background pixels are fully transparent.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (image.Image, error)
}

// Model size identifiers accepted by the segmentation service. Larger models
// trade speed for mask quality.
const (
	ModelSmall  = "small"
	ModelMedium = "medium"
	ModelLarge  = "large"
)

// HTTPSegmenter calls a background-segmentation service over HTTP. The
// remote model is loaded lazily: the first Segment call triggers a readiness
// check that is memoized for the lifetime of the segmenter.
type HTTPSegmenter struct {
	baseURL    string
	model      string
	httpClient *http.Client

	readyOnce sync.Once
	readyErr  error
}

// NewHTTPSegmenter creates a segmenter client for the service at baseURL
// using the given model size.
func NewHTTPSegmenter(baseURL, model string) *HTTPSegmenter {
	if model == "" {
		model = ModelMedium
	}
	return &HTTPSegmenter{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// ensureReady asks the service to load the configured model. The result is
// memoized so the model is loaded at most once per process.
func (s *HTTPSegmenter) ensureReady(ctx context.Context) error {
	s.readyOnce.Do(func() {
		url := fmt.Sprintf("%s/v1/models/%s", s.baseURL, s.model)

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
		if err != nil {
			s.readyErr = fmt.Errorf("failed to create request: %w", err)
			return
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.readyErr = fmt.Errorf("segmentation service unreachable: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			s.readyErr = fmt.Errorf("failed to load segmentation model %q: status %d", s.model, resp.StatusCode)
		}
	})
	return s.readyErr
}

// Segment sends the image to the service and decodes the returned cutout
func (s *HTTPSegmenter) Segment(ctx context.Context, img image.Image) (image.Image, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	url := fmt.Sprintf("%s/v1/segment?model=%s", s.baseURL, s.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segmentation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("segmentation failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	cut, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode segmented image: %w", err)
	}

	return cut, nil
}
