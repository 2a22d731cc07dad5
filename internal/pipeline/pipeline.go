package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"webattack-detector/go-service/internal/client"
	"webattack-detector/go-service/internal/metrics"
	"webattack-detector/go-service/internal/preprocessing"
	"webattack-detector/go-service/pkg/config"
)

const (
	defaultWorkers         = 4
	defaultClassifyTimeout = 4 * time.Second
	previewLen             = 80
)

// Prediction pairs one model input with the label the classifier chose.
type Prediction struct {
	Input      string `json:"input"`
	ClassIndex int    `json:"class_index"`
	Label      string `json:"label"`
	Attack     bool   `json:"attack"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID       string                `json:"run_id"`
	Variant     preprocessing.Variant `json:"variant"`
	Predictions []Prediction          `json:"predictions"`
	Summary     Summary               `json:"summary"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// Sink stores the predictions of a finished run.
type Sink interface {
	StorePredictions(ctx context.Context, result *Result) error
}

// Notifier is told about runs that raised an alert.
type Notifier interface {
	NotifyAlert(ctx context.Context, result *Result) error
}

// Pipeline sequences normalization, classification and summarising.
type Pipeline struct {
	normalizer  preprocessing.Normalizer
	classifier  client.Classifier
	labels      LabelMap
	normalLabel string
	workers     int
	timeout     time.Duration
	sink        Sink
	notifier    Notifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the number of concurrent classifier calls.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClassifyTimeout limits each classifier call.
func WithClassifyTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithNormalLabel sets the label that does not count as an attack.
func WithNormalLabel(label string) Option {
	return func(p *Pipeline) {
		if label != "" {
			p.normalLabel = label
		}
	}
}

// WithSink stores every finished run.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithNotifier publishes runs that raised an alert.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a pipeline for one normalizer variant and its model.
func New(n preprocessing.Normalizer, c client.Classifier, labels LabelMap, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer:  n,
		classifier:  c,
		labels:      labels,
		normalLabel: DefaultNormalLabel,
		workers:     defaultWorkers,
		timeout:     defaultClassifyTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Variant returns the preprocessing variant in use.
func (p *Pipeline) Variant() preprocessing.Variant {
	return p.normalizer.Variant()
}

// Preprocessed holds the model inputs derived from a batch of lines.
type Preprocessed struct {
	Texts   []string `json:"texts"`
	Skipped int      `json:"skipped"`
}

// Preprocess normalizes lines in order. Lines without model input are
// dropped and counted.
func (p *Pipeline) Preprocess(lines []string) Preprocessed {
	variant := string(p.Variant())
	out := Preprocessed{Texts: make([]string, 0, len(lines))}
	for _, line := range lines {
		text, ok := p.normalizer.Normalize(line)
		if !ok {
			out.Skipped++
			continue
		}
		out.Texts = append(out.Texts, text)
	}

	metrics.LinesProcessedTotal.WithLabelValues(variant).Add(float64(len(lines)))
	metrics.LinesSkippedTotal.WithLabelValues(variant).Add(float64(out.Skipped))
	return out
}

// Run processes one batch of raw lines end to end. Per-line classifier
// failures are recorded on the prediction and never abort the batch.
func (p *Pipeline) Run(ctx context.Context, lines []string) (*Result, error) {
	result := &Result{
		RunID:   uuid.New().String(),
		Variant: p.Variant(),
	}
	logger := log.With().Str("run_id", result.RunID).Str("variant", string(result.Variant)).Logger()

	pre := p.Preprocess(lines)
	result.Summary.Collected = len(lines)
	result.Summary.Skipped = pre.Skipped
	logger.Info().Int("collected", len(lines)).Int("texts", len(pre.Texts)).Int("skipped", pre.Skipped).Msg("preprocessed logs")

	if len(pre.Texts) > 0 {
		logger.Debug().Str("text", pre.Texts[0]).Msg("example model input")
	}

	result.Predictions = p.classifyAll(ctx, pre.Texts)
	result.FinishedAt = time.Now().UTC()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, pr := range result.Predictions {
		switch {
		case pr.Error != "":
			result.Summary.Failed++
			logger.Warn().Str("error", pr.Error).Str("input", preview(pr.Input)).Msg("classification failed")
			continue
		case pr.Attack:
			result.Summary.Attacks++
		}
		logger.Info().Str("label", pr.Label).Str("input", preview(pr.Input)).Msg("prediction")
	}
	result.Summary.Total = len(result.Predictions) - result.Summary.Failed
	metrics.AttacksTotal.WithLabelValues(string(result.Variant)).Add(float64(result.Summary.Attacks))

	if p.sink != nil && len(result.Predictions) > 0 {
		if err := p.sink.StorePredictions(ctx, result); err != nil {
			logger.Error().Err(err).Msg("failed to store predictions")
		}
	}

	if result.Summary.Alert() {
		logger.Warn().Int("attacks", result.Summary.Attacks).Msg(result.Summary.Message())
		if p.notifier != nil {
			if err := p.notifier.NotifyAlert(ctx, result); err != nil {
				logger.Error().Err(err).Msg("failed to publish alert")
			}
		}
	} else {
		logger.Info().Msg(result.Summary.Message())
	}

	return result, nil
}

// classifyAll fans texts out to the classifier and keeps input order.
// An empty batch makes no classifier call.
func (p *Pipeline) classifyAll(ctx context.Context, texts []string) []Prediction {
	results := make([]Prediction, len(texts))
	if len(texts) == 0 {
		return results
	}

	variant := string(p.Variant())
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	wg.Add(len(texts))

	for i, text := range texts {
		go func(i int, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = p.classify(ctx, variant, text)
		}(i, text)
	}

	wg.Wait()
	return results
}

func (p *Pipeline) classify(ctx context.Context, variant, text string) Prediction {
	pr := Prediction{Input: text}

	cctx, cancel := config.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	idx, err := p.classifier.Classify(cctx, text)
	metrics.ClassifyLatency.WithLabelValues(variant).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierErrorsTotal.WithLabelValues(variant).Inc()
		pr.Error = err.Error()
		return pr
	}

	pr.ClassIndex = idx
	pr.Label = p.labels.Label(idx)
	pr.Attack = pr.Label != p.normalLabel
	metrics.PredictionsTotal.WithLabelValues(variant, pr.Label).Inc()
	return pr
}

// preview shortens a model input for logging with addresses masked.
func preview(s string) string {
	r := []rune(preprocessing.RedactLine(s))
	if len(r) <= previewLen {
		return string(r)
	}
	return string(r[:previewLen]) + "..."
}
