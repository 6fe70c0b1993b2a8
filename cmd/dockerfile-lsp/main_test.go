package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shmocker/dockerfile-lsp/internal/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLintCommand(t *testing.T) {
	dir := t.TempDir()
	clean := filepath.Join(dir, "Dockerfile")
	broken := filepath.Join(dir, "broken.Dockerfile")
	require.NoError(t, os.WriteFile(clean, []byte("FROM node\nMAINTAINER me\n"), 0o600))
	require.NoError(t, os.WriteFile(broken, []byte("FROM node\nEXPOSE 80/abc\n"), 0o600))

	out, err := execute(t, "lint", "--no-color", clean)
	require.NoError(t, err)
	assert.Contains(t, out, "deprecated-maintainer")
	assert.Contains(t, out, "0 errors, 1 warning in 1 file")

	out, err = execute(t, "lint", "--format", "json", clean, broken)
	assert.ErrorIs(t, err, errLintFailed)
	var parsed report.Output
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Files, 2)
	assert.Equal(t, clean, parsed.Files[0].Path)
	assert.Equal(t, broken, parsed.Files[1].Path)
	assert.Equal(t, report.Summary{Errors: 1, Warnings: 1}, parsed.Summary)
}

func TestLintCommandConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(path, []byte("FROM node\nMAINTAINER me\n"), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("diagnostics:\n  deprecated_maintainer: error\n"), 0o600))

	t.Cleanup(func() { cfgFile = "" })

	out, err := execute(t, "lint", "--config", cfgPath, "--format", "text", "--no-color", path)
	assert.ErrorIs(t, err, errLintFailed)
	assert.Contains(t, out, "error: MAINTAINER has been deprecated")
}

func TestLintCommandErrors(t *testing.T) {
	_, err := execute(t, "lint", "--format", "xml", "Dockerfile")
	assert.Error(t, err)

	_, err = execute(t, "lint", "--format", "text", "--watch", "-")
	assert.EqualError(t, err, "--watch cannot be used with standard input")

	_, err = execute(t, "lint", "--watch=false", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dockerfile-lsp version: dev")
}
