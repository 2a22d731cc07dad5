package preprocessing

import (
	"regexp"
	"strings"
)

var (
	reIP    = regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`)
	reSpace = regexp.MustCompile(`\s+`)
)

// CleanLine strips the line terminator left behind by line-oriented readers.
func CleanLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// RedactLine prepares text for log output: IPv4 addresses are masked and
// runs of whitespace collapsed. It is never applied to model input.
func RedactLine(line string) string {
	cleaned := reIP.ReplaceAllString(line, "[REDACTED_IP]")
	cleaned = reSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
