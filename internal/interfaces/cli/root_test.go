package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "patentsearch", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"search", "index", "stats", "patent", "serve"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "log-level", "output", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, OutputText, cmd.PersistentFlags().Lookup("output").DefValue)
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestSearchCmd_Subcommands(t *testing.T) {
	var names []string
	for _, sub := range NewSearchCmd().Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"invalidity", "infringement", "patentability", "by-id"}, names)
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	cfg, _ := writeFixture(t)
	_, _, err := execute(t, "--config", cfg, "--output", "xml", "stats")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", "/nonexistent/patentsearch.yaml", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestRoot_LogLevelOverride(t *testing.T) {
	cfg, _ := writeFixture(t)
	_, _, err := execute(t, "--config", cfg, "--log-level", "loud", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger initialization failed")
}

func TestGetCLIContext_NotInitialized(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestPrintError(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, nil)
	assert.Empty(t, buf.String())

	PrintError(cmd, apperrors.Newf(apperrors.CodePatentNotFound, "Patent '%s' not found", "X"))
	assert.Contains(t, buf.String(), "Error:")
	assert.Contains(t, buf.String(), "[CORPUS_002] Patent 'X' not found")
}

func TestPrintResult_FallsBackToText(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, PrintResult(cmd, "plain"))
	assert.Equal(t, "plain\n", buf.String())
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, []string{"DOC NUMBER", "SCORE"}, [][]string{{"US1001", "0.9000"}, {"US1002", "0.1000"}})
	out := buf.String()
	assert.Contains(t, out, "DOC NUMBER")
	assert.Contains(t, out, "US1001")
	assert.Contains(t, out, "0.1000")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 5))
	assert.Equal(t, "a b", shorten("  a \n b ", 5))
	assert.Equal(t, "héll...", shorten("héllo world", 4))
}
