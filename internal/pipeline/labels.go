package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"webattack-detector/go-service/internal/preprocessing"
)

const (
	// UnknownLabel is reported for class indices missing from the label map.
	UnknownLabel = "Unknown"
	// DefaultNormalLabel is the label that does not count as an attack.
	DefaultNormalLabel = "Normal"
)

// LabelMap translates classifier indices into label names. It belongs to a
// specific trained model and must be configured to match it.
type LabelMap map[int]string

// Label returns the name for idx, or UnknownLabel.
func (m LabelMap) Label(idx int) string {
	if l, ok := m[idx]; ok {
		return l
	}
	return UnknownLabel
}

// Contains reports whether label is one of the configured names.
func (m LabelMap) Contains(label string) bool {
	for _, l := range m {
		if l == label {
			return true
		}
	}
	return false
}

// Names returns the label names ordered by index.
func (m LabelMap) Names() []string {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	names := make([]string, len(idx))
	for i, k := range idx {
		names[i] = m[k]
	}
	return names
}

// DefaultLabels returns the label set of the model trained for variant.
func DefaultLabels(variant preprocessing.Variant) LabelMap {
	if variant == preprocessing.VariantContent {
		return LabelMap{0: "Normal", 1: "SQLi", 2: "XSS"}
	}
	return LabelMap{0: "Normal", 1: "Attack"}
}

// ParseLabelMap converts configuration keys to class indices. Indices must
// run contiguously from zero.
func ParseLabelMap(raw map[string]string) (LabelMap, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("label map is empty")
	}

	m := make(LabelMap, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label index %q is not an integer", k)
		}
		if v == "" {
			return nil, fmt.Errorf("label %d has an empty name", idx)
		}
		m[idx] = v
	}
	for i := 0; i < len(m); i++ {
		if _, ok := m[i]; !ok {
			return nil, fmt.Errorf("label indices must be contiguous from 0, missing %d", i)
		}
	}
	return m, nil
}
