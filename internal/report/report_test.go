package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

func sampleResults() []FileResult {
	return []FileResult{
		{
			Path: "Dockerfile",
			Diagnostics: []dockerfile.Diagnostic{
				{
					Code:     dockerfile.InvalidPort,
					Severity: dockerfile.SeverityError,
					Message:  dockerfile.MessageInvalidPort("80/abc"),
					Range:    document.NewRange(1, 7, 1, 13),
				},
				{
					Code:     dockerfile.DeprecatedMaintainer,
					Severity: dockerfile.SeverityWarning,
					Message:  dockerfile.MessageDeprecatedMaintainer(),
					Range:    document.NewRange(0, 0, 0, 10),
				},
			},
		},
		{
			Path: "build/Dockerfile",
			Diagnostics: []dockerfile.Diagnostic{
				{
					Code:     dockerfile.UnknownInstruction,
					Severity: dockerfile.SeverityError,
					Message:  dockerfile.MessageUnknownInstruction("FORM"),
					Range:    document.NewRange(0, 0, 0, 4),
					Hint:     dockerfile.MessageSuggestion("FROM"),
				},
			},
		},
		{Path: "clean/Dockerfile"},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{Errors: 2, Warnings: 1}, Summarize(sampleResults()))
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText, false).Write(sampleResults()))

	want := "Dockerfile:1:1: warning: MAINTAINER has been deprecated (deprecated-maintainer)\n" +
		"Dockerfile:2:8: error: Invalid containerPort: 80/abc (invalid-port)\n" +
		"build/Dockerfile:1:1: error: Unknown instruction: FORM (unknown-instruction)\n" +
		"  hint: did you mean FROM?\n" +
		"2 errors, 1 warning in 3 files\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTextColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText, true).Write(sampleResults()))
	assert.Contains(t, buf.String(), "\x1b[")

	buf.Reset()
	require.NoError(t, NewWriter(&buf, FormatText, false).Write(sampleResults()))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON, true).Write(sampleResults()))
	assert.NotContains(t, buf.String(), "\x1b[")

	var out Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Files, 3)
	assert.Equal(t, Summary{Errors: 2, Warnings: 1}, out.Summary)

	first := out.Files[0]
	assert.Equal(t, "Dockerfile", first.Path)
	require.Len(t, first.Diagnostics, 2)
	assert.Equal(t, "deprecated-maintainer", first.Diagnostics[0].Code)
	assert.Equal(t, "warning", first.Diagnostics[0].Severity)
	assert.Equal(t, "invalid-port", first.Diagnostics[1].Code)
	assert.Equal(t, document.NewRange(1, 7, 1, 13), first.Diagnostics[1].Range)

	assert.Equal(t, "did you mean FROM?", out.Files[1].Diagnostics[0].Hint)
	assert.NotNil(t, out.Files[2].Diagnostics)
	assert.Empty(t, out.Files[2].Diagnostics)
}
