package preprocessing

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Character limits applied to the rendered request fields.
const (
	MaxPathLen      = 300
	MaxQueryLen     = 300
	MaxUserAgentLen = 200
)

const noneToken = "none"

// RenderText builds the model input sentence for a parsed line. Field order
// and punctuation match the text the classifier was trained on.
func RenderText(f Fields, signals []Signal) string {
	method := strings.ToUpper(f.Get(FieldMethod, DefaultMethod))
	host := f.Get(FieldHost, DefaultHost)

	path, query, _ := strings.Cut(f.Get(FieldURL, ""), "?")
	path = truncate(path, MaxPathLen)
	query = truncate(query, MaxQueryLen)
	ua := truncate(f.Get(FieldUserAgent, ""), MaxUserAgentLen)

	return fmt.Sprintf("Request: %s %s. Host: %s. Query: %s. User-Agent: %s. Detected patterns: %s.",
		method, path, host, orNone(query), orNone(ua), joinSignals(signals))
}

func joinSignals(signals []Signal) string {
	if len(signals) == 0 {
		return noneToken
	}
	parts := make([]string, len(signals))
	for i, s := range signals {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func orNone(s string) string {
	if s == "" {
		return noneToken
	}
	return s
}

// truncate keeps the first n characters of s without re-encoding it.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
