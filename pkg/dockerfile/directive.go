package dockerfile

import (
	"strings"

	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// Directive keys understood by the parser.
const (
	DirectiveEscape = "escape"
	DirectiveSyntax = "syntax"
)

// Directive is a parser directive declared in a leading comment.
type Directive struct {
	// Key is the lowercased directive name
	Key string `json:"key"`

	// Value is the directive value with surrounding blanks trimmed
	Value string `json:"value"`

	// KeyRange covers the key as written
	KeyRange document.Range `json:"keyRange"`

	// ValueRange covers the value token
	ValueRange document.Range `json:"valueRange"`
}

// Directives holds the directives found at the top of a Dockerfile.
type Directives struct {
	// List contains the directives in source order
	List []*Directive `json:"list,omitempty"`

	// Escape is the resolved escape character
	Escape rune `json:"escape"`

	// End is the offset where directive scanning stopped
	End int `json:"end"`
}

// Get returns the first directive with the given key.
func (d *Directives) Get(key string) (*Directive, bool) {
	key = strings.ToLower(key)
	for _, dir := range d.List {
		if dir.Key == key {
			return dir, true
		}
	}
	return nil, false
}

// ParseDirectives scans the leading comment lines of doc for parser
// directives. Scanning stops at the first empty line, instruction, or comment
// that is not shaped like key=value.
func ParseDirectives(doc *document.Document) (*Directives, []Diagnostic) {
	text := doc.Text()
	result := &Directives{Escape: DefaultEscape}
	var diags []Diagnostic
	escapeSeen := false

	i := 0
	for i < len(text) {
		lineEnd := i
		for lineEnd < len(text) && !isEOL(text[lineEnd]) {
			lineEnd++
		}
		dir, ok := parseDirectiveLine(doc, i, lineEnd)
		if !ok {
			break
		}
		result.List = append(result.List, dir)

		if dir.Key == DirectiveEscape && !escapeSeen {
			escapeSeen = true
			switch dir.Value {
			case "":
				// Empty value keeps the default.
			case "\\", "`":
				result.Escape = rune(dir.Value[0])
			default:
				diags = append(diags, newDiagnostic(InvalidEscapeDirective, SeverityError,
					MessageInvalidEscapeDirective(dir.Value), dir.ValueRange))
			}
		}

		if lineEnd >= len(text) {
			i = lineEnd
			break
		}
		i = skipEOL(text, lineEnd)
	}
	result.End = i
	return result, diags
}

// parseDirectiveLine parses `#[blanks]key[blanks]=value` between start and end.
func parseDirectiveLine(doc *document.Document, start, end int) (*Directive, bool) {
	text := doc.Text()
	i := start
	for i < end && isBlank(text[i]) {
		i++
	}
	if i >= end || text[i] != '#' {
		return nil, false
	}
	i++
	for i < end && isBlank(text[i]) {
		i++
	}
	keyStart := i
	for i < end && !isBlank(text[i]) && text[i] != '=' {
		i++
	}
	keyEnd := i
	if keyStart == keyEnd {
		return nil, false
	}
	for i < end && isBlank(text[i]) {
		i++
	}
	if i >= end || text[i] != '=' {
		return nil, false
	}
	i++

	rawStart := i
	valueStart := i
	for valueStart < end && isBlank(text[valueStart]) {
		valueStart++
	}
	valueEnd := end
	for valueEnd > valueStart && isBlank(text[valueEnd-1]) {
		valueEnd--
	}
	if valueStart == valueEnd {
		// A value made only of blanks is reported as written.
		valueStart, valueEnd = rawStart, end
	}

	return &Directive{
		Key:        strings.ToLower(text[keyStart:keyEnd]),
		Value:      text[valueStart:valueEnd],
		KeyRange:   doc.Range(keyStart, keyEnd),
		ValueRange: doc.Range(valueStart, valueEnd),
	}, true
}
