package preprocessing

import (
	"regexp"
	"strings"
)

var reContent = regexp.MustCompile(`content="((?:\\.|[^"\\])*)"`)

// ExtractContent returns the value of the first content="..." field in line.
// Backslash escapes are honoured while scanning; only \" is unescaped in the
// result. The boolean is false when the line carries no content field.
func ExtractContent(line string) (string, bool) {
	m := reContent.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], `\"`, `"`), true
}
