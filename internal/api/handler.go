package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"webattack-detector/go-service/internal/elastic"
	"webattack-detector/go-service/internal/pipeline"
	"webattack-detector/go-service/internal/source"
)

const maxBodyBytes = 10 << 20

var errInvalidBody = errors.New(`invalid JSON, expected {"lines":[...]} or an array of strings`)

// PredictionStore is the read side of the prediction index.
type PredictionStore interface {
	GetPredictions(ctx context.Context, from, size int) ([]elastic.PredictionDocument, error)
	GetAttacks(ctx context.Context, from, size int) ([]elastic.PredictionDocument, error)
	SearchAttacksByText(ctx context.Context, text string, from, size int) ([]elastic.PredictionDocument, error)
	GetStats(ctx context.Context, start, end time.Time) (*elastic.Stats, error)
}

// Handler serves the pipeline and the stored predictions over HTTP.
type Handler struct {
	pipeline *pipeline.Pipeline
	store    PredictionStore
}

// NewHandler creates a handler. store may be nil when Elasticsearch is
// disabled; the search endpoints then answer 503.
func NewHandler(p *pipeline.Pipeline, store PredictionStore) *Handler {
	return &Handler{pipeline: p, store: store}
}

type linesRequest struct {
	Lines []string `json:"lines"`
}

// AnalyzeResponse is a pipeline result with its human readable outcome.
type AnalyzeResponse struct {
	*pipeline.Result
	Message string `json:"message"`
}

// readLines accepts {"lines":[...]}, a JSON array of strings, or raw text
// with one log line per row.
func readLines(c *gin.Context) ([]string, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	if strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("could not read body: %w", err)
		}

		var req linesRequest
		if err := json.Unmarshal(b, &req); err == nil && req.Lines != nil {
			return req.Lines, nil
		}

		var arr []string
		if err := json.Unmarshal(b, &arr); err == nil {
			return arr, nil
		}
		return nil, errInvalidBody
	}

	lines, err := source.ReadLines(c.Request.Context(), body)
	if err != nil {
		return nil, fmt.Errorf("could not read body: %w", err)
	}
	return lines, nil
}

// Analyze runs the pipeline over the posted lines.
func (h *Handler) Analyze(c *gin.Context) {
	lines, err := readLines(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), lines)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("analysis aborted: %v", err)})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{Result: result, Message: result.Summary.Message()})
}

// Preprocess returns the model inputs for the posted lines without
// classifying them.
func (h *Handler) Preprocess(c *gin.Context) {
	lines, err := readLines(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out := h.pipeline.Preprocess(lines)
	c.JSON(http.StatusOK, gin.H{
		"variant": h.pipeline.Variant(),
		"texts":   out.Texts,
		"skipped": out.Skipped,
	})
}

// FalsePositiveCheck classifies lines known to be benign and reports the
// false positive rate.
func (h *Handler) FalsePositiveCheck(c *gin.Context) {
	lines, err := readLines(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.pipeline.CheckFalsePositives(c.Request.Context(), lines)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("check aborted: %v", err)})
		return
	}
	c.JSON(http.StatusOK, report)
}
