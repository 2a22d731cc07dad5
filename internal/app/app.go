// Package app assembles the pipeline and its optional backends from
// configuration. The HTTP server and the CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"webattack-detector/go-service/internal/cache"
	"webattack-detector/go-service/internal/client"
	"webattack-detector/go-service/internal/elastic"
	"webattack-detector/go-service/internal/notify"
	"webattack-detector/go-service/internal/pipeline"
	"webattack-detector/go-service/internal/preprocessing"
	"webattack-detector/go-service/pkg/config"
)

// App is a configured pipeline plus the backends it writes to.
type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	// Store is nil unless Elasticsearch is enabled.
	Store *elastic.Client

	closers []func() error
}

// Labels resolves the configured label map, falling back to the defaults of
// the variant's model.
func Labels(cfg *config.Config) (pipeline.LabelMap, error) {
	if len(cfg.Pipeline.Labels) == 0 {
		return pipeline.DefaultLabels(preprocessing.Variant(cfg.Pipeline.Variant)), nil
	}
	return pipeline.ParseLabelMap(cfg.Pipeline.Labels)
}

// Build validates cfg and connects every enabled backend. A backend that
// fails to connect is an error; disabled backends are skipped.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	normalizer, err := preprocessing.NewNormalizer(preprocessing.Variant(cfg.Pipeline.Variant))
	if err != nil {
		return nil, err
	}

	labels, err := Labels(cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline.labels: %w", err)
	}
	if !labels.Contains(cfg.Pipeline.NormalLabel) {
		return nil, fmt.Errorf("pipeline.normal_label %q is not one of %v", cfg.Pipeline.NormalLabel, labels.Names())
	}

	a := &App{Config: cfg}

	var classifier client.Classifier = client.NewModelClient(cfg.Classifier.URL, cfg.Classifier.Timeout, len(labels))

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		classifier = cache.NewClassifierCache(rdb, classifier, cfg.Pipeline.Variant+"@"+cfg.Classifier.URL, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("prediction cache enabled")
	}

	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithClassifyTimeout(cfg.Pipeline.ClassifyTimeout),
		pipeline.WithNormalLabel(cfg.Pipeline.NormalLabel),
	}

	if cfg.Elastic.Enabled {
		es, err := elastic.NewClient(cfg.Elastic.Addresses, cfg.Elastic.Index)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := es.CreateIndex(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("create index %s: %w", es.Index(), err)
		}
		a.Store = es
		a.closers = append(a.closers, es.Close)
		opts = append(opts, pipeline.WithSink(es))
		log.Info().Strs("addresses", cfg.Elastic.Addresses).Str("index", es.Index()).Msg("Elasticsearch storage enabled")
	}

	if cfg.NATS.Enabled {
		n, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, n.Close)
		opts = append(opts, pipeline.WithNotifier(n))
		log.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("NATS alerts enabled")
	}

	a.Pipeline = pipeline.New(normalizer, classifier, labels, opts...)
	return a, nil
}

// Close releases the backends in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
