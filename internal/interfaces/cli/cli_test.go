package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureCorpus = `[
  {"doc_number": "US1001", "title": "Tire sensor", "abstract": "A tire pressure sensor.",
   "claims": ["1. A tire comprising a pressure sensor."], "classification": "B60C23/04", "publication_date": "2020-01-01"},
  {"doc_number": "US1002", "title": "Rolling bearing", "abstract": "A bearing with rollers.",
   "claims": ["1. c", "2. c", "3. c", "4. c", "5. c", "6. c", "7. c", "8. c", "9. c", "10. c", "11. c", "12. c"],
   "classification": "F16C33/00", "publication_date": "2021-05-01"},
  {"doc_number": "US1003", "title": "Wheel hub", "abstract": "A wheel hub assembly.",
   "claims": ["1. A wheel."], "classification": "B60B27/00", "publication_date": "2019-06-30"}
]`

// writeFixture lays out a corpus file and a config pointing at it, and
// returns the config path and the corpus path.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "patents_cleaned_20240101.json")
	require.NoError(t, os.WriteFile(corpus, []byte(fixtureCorpus), 0o644))

	cfg := "data:\n  file: " + corpus + "\n" +
		"embedding:\n  backend: hashing\n  dimension: 32\n" +
		"server:\n  mode: test\n" +
		"log:\n  level: error\n"
	cfgPath := filepath.Join(dir, "patentsearch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, corpus
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), v), s)
}
