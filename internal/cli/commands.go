package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"webattack-detector/go-service/internal/app"
	"webattack-detector/go-service/internal/pipeline"
	"webattack-detector/go-service/internal/preprocessing"
	"webattack-detector/go-service/internal/source"
)

func newRunCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one analysis over the log source",
		Long: `Collect the log lines, preprocess them, classify every model input and
print the predictions followed by the summary. Detected attacks do not change
the exit status.`,
		Example: `  analyze run
  analyze run --file access.log --variant content --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}

			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			lines, err := source.New(cfg.Source.Path).Collect(cmd.Context())
			if err != nil {
				return err
			}

			result, err := a.Pipeline.Run(cmd.Context(), lines)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.output == "json" {
				return writeJSON(out, struct {
					*pipeline.Result
					Message string `json:"message"`
				}{result, result.Summary.Message()})
			}

			for _, pr := range result.Predictions {
				if pr.Error != "" {
					fmt.Fprintf(out, "%-8s %s (%s)\n", "FAILED", pr.Input, pr.Error)
					continue
				}
				fmt.Fprintf(out, "%-8s %s\n", pr.Label, pr.Input)
			}
			fmt.Fprintln(out, result.Summary.Message())
			return nil
		},
	}
}

func newPreprocessCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Print the model inputs without classifying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}

			n, err := preprocessing.NewNormalizer(preprocessing.Variant(cfg.Pipeline.Variant))
			if err != nil {
				return err
			}

			lines, err := source.New(cfg.Source.Path).Collect(cmd.Context())
			if err != nil {
				return err
			}

			pre := pipeline.New(n, nil, nil).Preprocess(lines)

			out := cmd.OutOrStdout()
			if o.output == "json" {
				return writeJSON(out, pre)
			}
			for _, text := range pre.Texts {
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}
}

func newFPCheckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fpcheck",
		Short: "Measure the false positive rate on known-normal logs",
		Long: `Classify a file of logs that are known to be benign and report how many
the model flags as attacks. A rate above 10% marks the model as overly
sensitive.`,
		Example: `  analyze fpcheck --file normal_logs.txt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.file == "" {
				return errors.New("--file is required")
			}
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}

			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			lines, err := source.File{Path: cfg.Source.Path}.Collect(cmd.Context())
			if err != nil {
				return err
			}

			report, err := a.Pipeline.CheckFalsePositives(cmd.Context(), lines)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.output == "json" {
				return writeJSON(out, report)
			}
			for _, text := range report.Flagged {
				fmt.Fprintf(out, "FLAGGED  %s\n", text)
			}
			fmt.Fprintf(out, "Total normal logs tested: %d\n", report.Total)
			fmt.Fprintf(out, "False positives: %d\n", report.FalsePositives)
			if report.Failed > 0 {
				fmt.Fprintf(out, "Not classified: %d\n", report.Failed)
			}
			fmt.Fprintf(out, "False positive rate: %.2f%%\n", report.Rate)
			fmt.Fprintln(out, report.Recommendation)
			return nil
		},
	}
}
