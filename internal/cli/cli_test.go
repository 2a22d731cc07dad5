package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points the classifier at a fake model that flags every input
// with detected patterns.
func writeConfig(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		idx := 1
		if strings.HasSuffix(req.Text, "Detected patterns: none.") {
			idx = 0
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"class_index": idx, "num_labels": 2})
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := fmt.Sprintf("log:\n  level: error\nclassifier:\n  url: %s\n", srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRun_DemoLines(t *testing.T) {
	out, err := execute(t, "run", "--config", writeConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Attack   Request: POST /process.")
	assert.Contains(t, out, "Normal   Request: GET /history.")
	assert.Contains(t, out, "SECURITY ALERT! Detected 1 potential attack(s).")
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, "run", "--config", writeConfig(t), "-o", "json")
	require.NoError(t, err)

	var resp struct {
		Summary struct {
			Attacks int `json:"attacks"`
		} `json:"summary"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Summary.Attacks)
	assert.Equal(t, "SECURITY ALERT! Detected 1 potential attack(s).", resp.Message)
}

func TestRun_MissingFile(t *testing.T) {
	out, err := execute(t, "run", "--config", writeConfig(t), "--file", filepath.Join(t.TempDir(), "absent.log"))
	require.NoError(t, err)
	assert.Equal(t, "Flow finished: No new logs to process.\n", out)
}

func TestRun_UnknownOutput(t *testing.T) {
	_, err := execute(t, "run", "--config", writeConfig(t), "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestPreprocess_ContentVariant(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")
	content := "svc | content=\"{\\\"q\\\":\\\"1\\\"}\"\nsvc | Method=\"GET\" URL=\"/\"\n"
	require.NoError(t, os.WriteFile(logFile, []byte(content), 0o600))

	out, err := execute(t, "preprocess", "--config", writeConfig(t), "--variant", "content", "--file", logFile)
	require.NoError(t, err)
	assert.Equal(t, "{\"q\":\"1\"}\n", out)
}

func TestFPCheck(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "normal.log")
	lines := strings.Join([]string{
		`Method="GET" URL="/history"`,
		`Method="GET" URL="/home"`,
		`Method="GET" URL="/cart"`,
		`Method="GET" URL="/a|b"`,
	}, "\n")
	require.NoError(t, os.WriteFile(logFile, []byte(lines), 0o600))

	out, err := execute(t, "fpcheck", "--config", writeConfig(t), "--file", logFile)
	require.NoError(t, err)

	assert.Contains(t, out, "Total normal logs tested: 4")
	assert.Contains(t, out, "False positives: 1")
	assert.Contains(t, out, "False positive rate: 25.00%")
	assert.Contains(t, out, "overly sensitive")
}

func TestFPCheck_RequiresFile(t *testing.T) {
	_, err := execute(t, "fpcheck", "--config", writeConfig(t))
	assert.ErrorContains(t, err, "--file is required")
}

func TestRun_VariantOverrideIgnoresConfiguredLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"class_index": 2, "num_labels": 3})
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("log:\n  level: error\npipeline:\n  variant: structured\n  labels:\n    \"0\": Normal\n    \"1\": Attack\nclassifier:\n  url: %s\n", srv.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	logFile := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logFile, []byte(`svc | content="<script>alert(1)</script>"`+"\n"), 0o600))

	out, err := execute(t, "run", "--config", cfgPath, "--variant", "content", "--file", logFile)
	require.NoError(t, err)
	assert.Contains(t, out, "XSS      <script>alert(1)</script>")
	assert.Contains(t, out, "SECURITY ALERT! Detected 1 potential attack(s).")
}
