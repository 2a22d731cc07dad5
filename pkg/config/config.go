package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Source     SourceConfig     `mapstructure:"source"`
	Elastic    ElasticConfig    `mapstructure:"elastic"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	GinMode      string        `mapstructure:"gin_mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type PipelineConfig struct {
	Variant         string            `mapstructure:"variant"` // structured or content
	Workers         int               `mapstructure:"workers"`
	ClassifyTimeout time.Duration     `mapstructure:"classify_timeout"`
	NormalLabel     string            `mapstructure:"normal_label"`
	Labels          map[string]string `mapstructure:"labels"` // class index -> label; empty selects the variant's model defaults
}

type ClassifierConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SourceConfig struct {
	Path string `mapstructure:"path"`
}

type ElasticConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// Load reads configuration from path (optional) and WEBATTACK_* environment
// variables, e.g. WEBATTACK_CLASSIFIER_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("webattack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", GetEnv("PORT", "8080"))
	v.SetDefault("server.gin_mode", "")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pipeline.variant", "structured")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.classify_timeout", 4*time.Second)
	v.SetDefault("pipeline.normal_label", "Normal")
	v.SetDefault("classifier.url", GetEnv("PYTHON_SERVICE_URL", "http://localhost:8001/predict"))
	v.SetDefault("classifier.timeout", 5*time.Second)
	v.SetDefault("source.path", "")
	v.SetDefault("elastic.enabled", false)
	v.SetDefault("elastic.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elastic.index", "predictions")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Hour)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "webattack.alerts")
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	switch c.Pipeline.Variant {
	case "structured", "content":
	default:
		return fmt.Errorf("pipeline.variant must be structured or content, got %q", c.Pipeline.Variant)
	}
	if c.Classifier.URL == "" {
		return errors.New("classifier.url is required")
	}
	if c.Pipeline.NormalLabel == "" {
		return errors.New("pipeline.normal_label is required")
	}
	if len(c.Pipeline.Labels) > 0 && !hasLabel(c.Pipeline.Labels, c.Pipeline.NormalLabel) {
		return fmt.Errorf("pipeline.normal_label %q is not in pipeline.labels", c.Pipeline.NormalLabel)
	}
	if c.Elastic.Enabled && len(c.Elastic.Addresses) == 0 {
		return errors.New("elastic.addresses is required when elastic is enabled")
	}
	return nil
}

func hasLabel(labels map[string]string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}
