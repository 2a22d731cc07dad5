package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"
)

// FalsePositiveThreshold is the rate, in percent, above which the model is
// considered overly sensitive.
const FalsePositiveThreshold = 10.0

// FalsePositiveReport summarises a run over known-normal traffic.
type FalsePositiveReport struct {
	Total          int      `json:"total"`
	FalsePositives int      `json:"false_positives"`
	Failed         int      `json:"failed"`
	Rate           float64  `json:"rate_percent"`
	Sensitive      bool     `json:"overly_sensitive"`
	Recommendation string   `json:"recommendation"`
	Flagged        []string `json:"flagged,omitempty"`
}

// CheckFalsePositives classifies lines that are known to be benign and
// reports how many the model flags. Nothing is stored or published.
func (p *Pipeline) CheckFalsePositives(ctx context.Context, lines []string) (*FalsePositiveReport, error) {
	pre := p.Preprocess(lines)
	predictions := p.classifyAll(ctx, pre.Texts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &FalsePositiveReport{}
	for _, pr := range predictions {
		if pr.Error != "" {
			report.Failed++
			continue
		}
		report.Total++
		if pr.Attack {
			report.FalsePositives++
			report.Flagged = append(report.Flagged, pr.Input)
		}
	}

	if report.Total > 0 {
		report.Rate = float64(report.FalsePositives) / float64(report.Total) * 100
	}
	report.Sensitive = report.Rate > FalsePositiveThreshold
	if report.Sensitive {
		report.Recommendation = "The model seems overly sensitive. Consider retraining with more diverse normal log examples."
	} else {
		report.Recommendation = "The model's false positive rate is reasonable."
	}

	log.Info().
		Int("total", report.Total).
		Int("false_positives", report.FalsePositives).
		Float64("rate_percent", report.Rate).
		Msg("false positive check finished")
	return report, nil
}
