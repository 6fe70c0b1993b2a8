// Package document maps absolute offsets in a text to line/character positions.
package document

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 column.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// String returns the position as line:character.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a range from four coordinates.
func NewRange(startLine, startChar, endLine, endChar int) Range {
	return Range{
		Start: Position{Line: startLine, Character: startChar},
		End:   Position{Line: endLine, Character: endChar},
	}
}

// String returns the range as start-end.
func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// Document holds raw text and the offsets of every line start.
//
// `\n`, `\r` and `\r\n` each terminate a line. The text is never normalized.
type Document struct {
	text       string
	lineStarts []int
}

// New indexes text for position lookups.
func New(text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case '\n':
			starts = append(starts, i+1)
		}
	}
	return &Document{text: text, lineStarts: starts}
}

// Text returns the original text.
func (d *Document) Text() string { return d.text }

// Len returns the text length in bytes.
func (d *Document) Len() int { return len(d.text) }

// LineCount returns the number of lines, counting a trailing empty line.
func (d *Document) LineCount() int { return len(d.lineStarts) }

// PositionAt converts a byte offset into a position.
func (d *Document) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	start := d.lineStarts[line]
	return Position{Line: line, Character: utf16Len(d.text[start:offset])}
}

// OffsetAt converts a position into a byte offset, clamping to the line end.
func (d *Document) OffsetAt(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	start := d.lineStarts[pos.Line]
	end := d.lineEnd(pos.Line)
	units := 0
	off := start
	for off < end && units < pos.Character {
		r, size := utf8.DecodeRuneInString(d.text[off:end])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		off += size
	}
	return off
}

// Range converts a pair of byte offsets into a range.
func (d *Document) Range(start, end int) Range {
	return Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// Slice returns the text covered by r.
func (d *Document) Slice(r Range) string {
	start := d.OffsetAt(r.Start)
	end := d.OffsetAt(r.End)
	if end < start {
		return ""
	}
	return d.text[start:end]
}

// lineEnd returns the offset of the terminator of line, or the text length.
func (d *Document) lineEnd(line int) int {
	if line+1 >= len(d.lineStarts) {
		return len(d.text)
	}
	end := d.lineStarts[line+1] - 1
	if end > 0 && d.text[end] == '\n' && d.text[end-1] == '\r' && end-1 >= d.lineStarts[line] {
		end--
	}
	return end
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
