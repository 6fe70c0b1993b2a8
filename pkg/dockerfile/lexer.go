// Package dockerfile provides lexical analysis for Dockerfile parsing.
package dockerfile

import (
	"strings"
	"unicode/utf8"

	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// DefaultEscape is the escape character used when no escape directive is set.
const DefaultEscape = '\\'

// Argument is a single whitespace or quote delimited token of an instruction.
// Arguments are immutable once created.
type Argument struct {
	value     string
	unescaped string
	start     int
	end       int
	rng       document.Range
}

// Value returns the argument as written, with line continuations removed.
// Quotes and escape characters are kept.
func (a Argument) Value() string { return a.value }

// Unescaped returns the value with escape sequences outside quotes resolved
// to the escaped character.
func (a Argument) Unescaped() string { return a.unescaped }

// Range returns the source range covered by the argument.
func (a Argument) Range() document.Range { return a.rng }

// Start returns the byte offset of the first character of the argument.
func (a Argument) Start() int { return a.start }

// End returns the byte offset just past the last character of the argument.
func (a Argument) End() int { return a.end }

// String implements fmt.Stringer.
func (a Argument) String() string { return a.value }

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func isEOL(c byte) bool { return c == '\n' || c == '\r' }

// skipEOL returns the offset after the line terminator at i.
func skipEOL(text string, i int) int {
	if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
		return i + 2
	}
	return i + 1
}

// continuationAt reports whether the escape character at i starts a line
// continuation: the escape, optional blanks, then a line terminator or end.
// It returns the offset just past the terminator.
func continuationAt(text string, i, end int) (int, bool) {
	j := i + 1
	for j < end && isBlank(text[j]) {
		j++
	}
	if j >= end {
		return end, true
	}
	if !isEOL(text[j]) {
		return i, false
	}
	return skipEOL(text, j), true
}

// skipContinuation consumes a line continuation at i together with any
// following blank or comment lines. gap reports whether such lines were
// absorbed, in which case the continuation separates tokens.
func skipContinuation(text string, i, end int) (next int, gap bool, ok bool) {
	next, ok = continuationAt(text, i, end)
	if !ok {
		return i, false, false
	}
	for next < end {
		j := next
		for j < end && isBlank(text[j]) {
			j++
		}
		if j < end && text[j] == '#' {
			for j < end && !isEOL(text[j]) {
				j++
			}
		} else if j < end && !isEOL(text[j]) {
			break
		}
		if j < end {
			j = skipEOL(text, j)
		}
		next, gap = j, true
	}
	return next, gap, true
}

// escapedSize returns the byte size of the escape at i plus the character it
// escapes.
func escapedSize(text string, i, end int) int {
	if i+1 >= end {
		return 1
	}
	_, size := utf8.DecodeRuneInString(text[i+1 : end])
	return 1 + size
}

// tokenBuilder accumulates one argument while tracking where its last
// non-blank character ended.
type tokenBuilder struct {
	doc       *document.Document
	value     strings.Builder
	unescaped strings.Builder
	start     int
	lastEnd   int
	valueMark int
	unescMark int
	args      []Argument
}

func (b *tokenBuilder) begin(i int) {
	if b.start < 0 {
		b.start = i
	}
}

func (b *tokenBuilder) write(raw, resolved string) {
	b.value.WriteString(raw)
	b.unescaped.WriteString(resolved)
}

// mark records end as the end of content written so far.
func (b *tokenBuilder) mark(end int) {
	b.lastEnd = end
	b.valueMark = b.value.Len()
	b.unescMark = b.unescaped.Len()
}

func (b *tokenBuilder) flush() {
	if b.start < 0 {
		return
	}
	b.args = append(b.args, Argument{
		value:     b.value.String()[:b.valueMark],
		unescaped: b.unescaped.String()[:b.unescMark],
		start:     b.start,
		end:       b.lastEnd,
		rng:       b.doc.Range(b.start, b.lastEnd),
	})
	b.value.Reset()
	b.unescaped.Reset()
	b.start = -1
}

// Tokenize splits the text of doc between start and end into arguments.
//
// Blanks outside quotes separate arguments. A continuation (escape, optional
// blanks, line terminator) is transparent, and an escape before any other
// character keeps that character in the current argument. Quoted spans run to
// the matching quote or to end. Whitespace-only input yields no arguments.
func Tokenize(doc *document.Document, escape rune, start, end int) []Argument {
	text := doc.Text()
	if end > len(text) {
		end = len(text)
	}
	esc := byte(escape)
	b := &tokenBuilder{doc: doc, start: -1}

	for i := start; i < end; {
		c := text[i]
		switch {
		case isBlank(c) || isEOL(c):
			b.flush()
			i++
		case c == esc:
			if next, gap, ok := skipContinuation(text, i, end); ok {
				if gap {
					b.flush()
				}
				i = next
				continue
			}
			b.begin(i)
			size := escapedSize(text, i, end)
			b.write(text[i:i+size], text[i+1:i+size])
			i += size
			b.mark(i)
		case c == '"' || c == '\'':
			b.begin(i)
			i = b.quoted(text, i, end, esc)
		default:
			b.begin(i)
			b.write(text[i:i+1], text[i:i+1])
			i++
			b.mark(i)
		}
	}
	b.flush()
	return b.args
}

// quoted consumes a quoted span opening at i and returns the offset after the
// closing quote, or end when the quote is never closed.
func (b *tokenBuilder) quoted(text string, i, end int, esc byte) int {
	quote := text[i]
	b.write(text[i:i+1], text[i:i+1])
	i++
	b.mark(i)
	for i < end {
		c := text[i]
		if c == esc {
			if next, _, ok := skipContinuation(text, i, end); ok {
				i = next
				continue
			}
			size := escapedSize(text, i, end)
			b.write(text[i:i+size], text[i:i+size])
			i += size
			b.mark(i)
			continue
		}
		b.write(text[i:i+1], text[i:i+1])
		i++
		if !isBlank(c) && !isEOL(c) {
			b.mark(i)
		}
		if c == quote {
			break
		}
	}
	return i
}

// leadingContent returns the offset of the first character between start and
// end that is neither a blank nor part of a continuation, or -1.
func leadingContent(text string, start, end int, esc byte) int {
	for i := start; i < end; {
		c := text[i]
		switch {
		case isBlank(c) || isEOL(c):
			i++
		case c == esc:
			next, _, ok := skipContinuation(text, i, end)
			if !ok {
				return i
			}
			i = next
		default:
			return i
		}
	}
	return -1
}

// trailingContent returns the offset just past the last character between
// start and end that is neither a blank nor part of a continuation, or start.
func trailingContent(text string, start, end int, esc byte) int {
	last := start
	for i := start; i < end; {
		c := text[i]
		switch {
		case isBlank(c) || isEOL(c):
			i++
		case c == esc:
			next, _, ok := skipContinuation(text, i, end)
			if ok {
				i = next
				continue
			}
			i += escapedSize(text, i, end)
			last = i
		default:
			i++
			last = i
		}
	}
	return last
}

// joinContinuations returns the text between start and end with every line
// continuation removed.
func joinContinuations(text string, start, end int, esc byte) string {
	var sb strings.Builder
	for i := start; i < end; {
		c := text[i]
		if c != esc {
			sb.WriteByte(c)
			i++
			continue
		}
		if next, _, ok := skipContinuation(text, i, end); ok {
			i = next
			continue
		}
		size := escapedSize(text, i, end)
		sb.WriteString(text[i : i+size])
		i += size
	}
	return sb.String()
}
