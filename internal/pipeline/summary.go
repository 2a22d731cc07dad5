package pipeline

import "fmt"

// Summary aggregates one pipeline run.
type Summary struct {
	Collected int `json:"collected"`
	Total     int `json:"total"`
	Attacks   int `json:"attacks"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Alert reports whether any prediction fell outside the normal label.
func (s Summary) Alert() bool {
	return s.Attacks > 0
}

// Message is the human-readable outcome of the run.
func (s Summary) Message() string {
	var msg string
	switch {
	case s.Collected == 0:
		msg = "Flow finished: No new logs to process."
	case s.Attacks > 0:
		msg = fmt.Sprintf("SECURITY ALERT! Detected %d potential attack(s).", s.Attacks)
	default:
		msg = "Flow finished. No threats detected."
	}
	if s.Failed > 0 {
		msg += fmt.Sprintf(" %d log(s) could not be classified.", s.Failed)
	}
	return msg
}
