package preprocessing

import "regexp"

// Required field names and the values substituted when a line omits them.
const (
	FieldMethod    = "Method"
	FieldURL       = "URL"
	FieldUserAgent = "User-Agent"
	FieldHost      = "host"

	DefaultMethod = "GET"
	DefaultHost   = "localhost"
)

var reKeyValue = regexp.MustCompile(`(\w+)="([^"]*)"`)

// Fields holds the key="value" pairs found in one log line.
type Fields map[string]string

// ParseFields extracts every key="value" pair from line. Text that does not
// match is ignored and later duplicates overwrite earlier ones. The four
// required keys are always present in the result.
//
// Keys are ASCII word characters only, so a key such as naïve is captured
// from its last ASCII run ("ve").
func ParseFields(line string) Fields {
	fields := make(Fields, 4)
	for _, m := range reKeyValue.FindAllStringSubmatch(line, -1) {
		fields[m[1]] = m[2]
	}

	setDefault(fields, FieldMethod, DefaultMethod)
	setDefault(fields, FieldURL, "")
	setDefault(fields, FieldUserAgent, "")
	setDefault(fields, FieldHost, DefaultHost)
	return fields
}

func setDefault(f Fields, key, value string) {
	if _, ok := f[key]; !ok {
		f[key] = value
	}
}

// Get returns the value for key, or def when the key is absent.
func (f Fields) Get(key, def string) string {
	if v, ok := f[key]; ok {
		return v
	}
	return def
}
