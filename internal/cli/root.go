package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"webattack-detector/go-service/internal/logger"
	"webattack-detector/go-service/pkg/config"
)

type options struct {
	cfgFile  string
	file     string
	variant  string
	output   string
	logLevel string
}

// NewRootCmd builds the analyze command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "analyze",
		Short: "Web-attack log analysis",
		Long: `analyze turns web-server access logs into model inputs, classifies them
with the attack detection model and reports whether any attacks were found.

Without --file the built-in demo lines are analysed.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&o.cfgFile, "config", "c", "", "config file (default: ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().StringVarP(&o.file, "file", "f", "", "log file to read, one entry per line")
	root.PersistentFlags().StringVar(&o.variant, "variant", "", "preprocessing variant: structured or content")
	root.PersistentFlags().StringVarP(&o.output, "output", "o", "text", "output format: text, json")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(newRunCmd(o), newPreprocessCmd(o), newFPCheckCmd(o))
	return root
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// load reads configuration and applies command line overrides. Logs go to
// stderr so stdout only carries results.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	switch o.output {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown output format %q", o.output)
	}

	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	// Configured labels describe the model of the configured variant and
	// do not carry over to another one.
	droppedLabels := false
	if o.variant != "" {
		variant := strings.ToLower(o.variant)
		if variant != cfg.Pipeline.Variant && len(cfg.Pipeline.Labels) > 0 {
			cfg.Pipeline.Labels = nil
			droppedLabels = true
		}
		cfg.Pipeline.Variant = variant
	}
	if o.file != "" {
		cfg.Source.Path = o.file
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger.InitWithWriter(cfg.Log.Level, "text", cmd.ErrOrStderr())
	if droppedLabels {
		log.Warn().Str("variant", cfg.Pipeline.Variant).Msg("configured labels ignored, using the variant's default labels")
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
