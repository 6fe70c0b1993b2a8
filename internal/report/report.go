// Package report formats lint results for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatText, FormatJSON:
		return Format(value), nil
	default:
		return "", fmt.Errorf("unknown format %q: expected text or json", value)
	}
}

// FileResult holds the diagnostics of one linted file.
type FileResult struct {
	Path        string
	Diagnostics []dockerfile.Diagnostic
}

// Sorted returns the diagnostics ordered by position, then code.
func (r FileResult) Sorted() []dockerfile.Diagnostic {
	diags := append([]dockerfile.Diagnostic(nil), r.Diagnostics...)
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Before(b.Range.Start)
		}
		return a.Code < b.Code
	})
	return diags
}

// Summary counts diagnostics by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Summarize counts the diagnostics of every result.
func Summarize(results []FileResult) Summary {
	var s Summary
	for _, r := range results {
		for _, d := range r.Diagnostics {
			switch d.Severity {
			case dockerfile.SeverityError:
				s.Errors++
			case dockerfile.SeverityWarning:
				s.Warnings++
			}
		}
	}
	return s
}

// Writer prints lint results in one format.
type Writer struct {
	out    io.Writer
	format Format

	path    *color.Color
	errors  *color.Color
	warning *color.Color
	hint    *color.Color
}

// NewWriter creates a Writer. Colour only applies to the text format.
func NewWriter(out io.Writer, format Format, colored bool) *Writer {
	w := &Writer{
		out:     out,
		format:  format,
		path:    color.New(color.Bold),
		errors:  color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		hint:    color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{w.path, w.errors, w.warning, w.hint} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return w
}

// Write prints every result followed by a summary.
func (w *Writer) Write(results []FileResult) error {
	if w.format == FormatJSON {
		return w.writeJSON(results)
	}
	return w.writeText(results)
}

func (w *Writer) writeText(results []FileResult) error {
	for _, r := range results {
		for _, d := range r.Sorted() {
			sev := w.warning
			if d.Severity == dockerfile.SeverityError {
				sev = w.errors
			}
			_, err := fmt.Fprintf(w.out, "%s:%d:%d: %s %s (%s)\n",
				w.path.Sprint(r.Path),
				d.Range.Start.Line+1, d.Range.Start.Character+1,
				sev.Sprint(d.Severity.String()+":"), d.Message, d.Code)
			if err != nil {
				return err
			}
			if d.Hint != "" {
				if _, err := fmt.Fprintf(w.out, "  %s %s\n", w.hint.Sprint("hint:"), d.Hint); err != nil {
					return err
				}
			}
		}
	}

	s := Summarize(results)
	_, err := fmt.Fprintf(w.out, "%d %s, %d %s in %d %s\n",
		s.Errors, plural(s.Errors, "error"), s.Warnings, plural(s.Warnings, "warning"),
		len(results), plural(len(results), "file"))
	return err
}

// DiagnosticJSON is the JSON form of one diagnostic.
type DiagnosticJSON struct {
	Severity string         `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Range    document.Range `json:"range"`
	Hint     string         `json:"hint,omitempty"`
}

// FileJSON is the JSON form of one file result.
type FileJSON struct {
	Path        string           `json:"path"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// Output is the root of the JSON report.
type Output struct {
	Files   []FileJSON `json:"files"`
	Summary Summary    `json:"summary"`
}

// BuildOutput converts results into the JSON report structure.
func BuildOutput(results []FileResult) Output {
	out := Output{
		Files:   make([]FileJSON, 0, len(results)),
		Summary: Summarize(results),
	}
	for _, r := range results {
		file := FileJSON{Path: r.Path, Diagnostics: make([]DiagnosticJSON, 0, len(r.Diagnostics))}
		for _, d := range r.Sorted() {
			file.Diagnostics = append(file.Diagnostics, DiagnosticJSON{
				Severity: d.Severity.String(),
				Code:     d.Code.String(),
				Message:  d.Message,
				Range:    d.Range,
				Hint:     d.Hint,
			})
		}
		out.Files = append(out.Files, file)
	}
	return out
}

func (w *Writer) writeJSON(results []FileResult) error {
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildOutput(results))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
