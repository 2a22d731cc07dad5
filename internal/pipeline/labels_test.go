package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webattack-detector/go-service/internal/preprocessing"
)

func TestLabelMap_Label(t *testing.T) {
	m := DefaultLabels(preprocessing.VariantContent)

	assert.Equal(t, "Normal", m.Label(0))
	assert.Equal(t, "SQLi", m.Label(1))
	assert.Equal(t, "XSS", m.Label(2))
	assert.Equal(t, UnknownLabel, m.Label(3))
	assert.Equal(t, UnknownLabel, m.Label(-1))
}

func TestDefaultLabels(t *testing.T) {
	assert.Equal(t, []string{"Normal", "Attack"}, DefaultLabels(preprocessing.VariantStructured).Names())
	assert.Equal(t, []string{"Normal", "SQLi", "XSS"}, DefaultLabels(preprocessing.VariantContent).Names())
}

func TestParseLabelMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]string
		want    LabelMap
		wantErr bool
	}{
		{"binary", map[string]string{"0": "Normal", "1": "Attack"}, LabelMap{0: "Normal", 1: "Attack"}, false},
		{"empty", map[string]string{}, nil, true},
		{"non integer", map[string]string{"zero": "Normal"}, nil, true},
		{"gap", map[string]string{"0": "Normal", "2": "XSS"}, nil, true},
		{"not from zero", map[string]string{"1": "Attack"}, nil, true},
		{"empty name", map[string]string{"0": ""}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabelMap(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelMap_Contains(t *testing.T) {
	m := LabelMap{0: "Normal", 1: "Attack"}
	assert.True(t, m.Contains("Attack"))
	assert.False(t, m.Contains("attack"))
}

func TestSummaryMessage(t *testing.T) {
	assert.Equal(t, "Flow finished: No new logs to process.", Summary{}.Message())
	assert.Equal(t, "Flow finished. No threats detected.", Summary{Collected: 3, Total: 3}.Message())
	assert.Equal(t, "SECURITY ALERT! Detected 3 potential attack(s).", Summary{Collected: 4, Total: 4, Attacks: 3}.Message())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "client [REDACTED_IP] ok", preview("client  10.0.0.1\tok"))

	long := strings.Repeat("é", 100)
	got := preview(long)
	assert.Equal(t, strings.Repeat("é", previewLen)+"...", got)
}
