package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "webattack-detector/go-service/pkg/errors"
)

// ErrLabelMismatch is returned when the model service reports a label count
// that differs from the configured label map.
var ErrLabelMismatch = errors.New("model label count does not match configured labels")

// Classifier maps one model input text to a class index.
type Classifier interface {
	Classify(ctx context.Context, text string) (int, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (int, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (int, error) {
	return f(ctx, text)
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	ClassIndex *int `json:"class_index"`
	NumLabels  int  `json:"num_labels,omitempty"`
}

// ModelClient calls the external model service that hosts the fine-tuned
// sequence classifier.
type ModelClient struct {
	url            string
	httpClient     *http.Client
	expectedLabels int
}

// NewModelClient creates a client for the predict endpoint at url.
// expectedLabels is the size of the configured label map; zero disables the
// cardinality check.
func NewModelClient(url string, timeout time.Duration, expectedLabels int) *ModelClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ModelClient{
		url:            url,
		httpClient:     &http.Client{Timeout: timeout},
		expectedLabels: expectedLabels,
	}
}

// Classify posts text to the model service and returns the argmax class.
func (c *ModelClient) Classify(ctx context.Context, text string) (int, error) {
	b, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, apperrors.WithBody(resp.StatusCode, string(excerpt))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode model response: %w", err)
	}
	if out.ClassIndex == nil {
		return 0, errors.New("model response missing class_index")
	}
	if c.expectedLabels > 0 && out.NumLabels > 0 && out.NumLabels != c.expectedLabels {
		return 0, fmt.Errorf("%w: model has %d, configured %d", ErrLabelMismatch, out.NumLabels, c.expectedLabels)
	}
	return *out.ClassIndex, nil
}
