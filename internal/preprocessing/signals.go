package preprocessing

import "strings"

// Signal is a coarse attack category derived from substrings of a URL.
type Signal string

const (
	SignalXSS           Signal = "XSS"
	SignalSQLi          Signal = "SQLi"
	SignalPathTraversal Signal = "PathTraversal"
	SignalCmdInjection  Signal = "CmdInjection"
	SignalNullByte      Signal = "NullByte"
)

type signalRule struct {
	signal   Signal
	patterns []string
}

// signalRules are evaluated in order. The order shows up in the rendered text
// the classifier was trained on, so it must not change.
var signalRules = []signalRule{
	{SignalXSS, []string{"<script", "javascript:", "onerror", "onload", "alert("}},
	{SignalSQLi, []string{"select", "union", "drop", "insert", "--", "or 1=1", " or ", "' or '1'='1"}},
	{SignalPathTraversal, []string{"../", "/etc/", "passwd", "windows"}},
	{SignalCmdInjection, []string{"|", ";", "&&", "`", "$(", "cmd"}},
	{SignalNullByte, []string{"%00", "%20%20", "null", "\x00"}},
}

// ExtractSignals returns the categories whose patterns occur in the
// lower-cased url. Each category appears at most once.
func ExtractSignals(url string) []Signal {
	lower := strings.ToLower(url)

	var signals []Signal
	for _, rule := range signalRules {
		if containsAny(lower, rule.patterns) {
			signals = append(signals, rule.signal)
		}
	}
	return signals
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
