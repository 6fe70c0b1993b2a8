package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionAt(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		offset   int
		expected Position
	}{
		{name: "empty document", text: "", offset: 0, expected: Position{0, 0}},
		{name: "first line", text: "FROM node", offset: 5, expected: Position{0, 5}},
		{name: "after lf", text: "FROM node\nUSER x", offset: 10, expected: Position{1, 0}},
		{name: "after cr", text: "FROM node\rUSER x", offset: 12, expected: Position{1, 2}},
		{name: "after crlf", text: "FROM node\r\nUSER x", offset: 11, expected: Position{1, 0}},
		{name: "between cr and lf", text: "a\r\nb", offset: 2, expected: Position{0, 2}},
		{name: "negative offset clamps", text: "abc", offset: -4, expected: Position{0, 0}},
		{name: "offset past end clamps", text: "abc\n", offset: 99, expected: Position{1, 0}},
		{name: "utf16 surrogate pair", text: "# 😀x", offset: len("# 😀"), expected: Position{0, 4}},
		{name: "two byte rune", text: "é=1", offset: len("é"), expected: Position{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New(tt.text)
			assert.Equal(t, tt.expected, doc.PositionAt(tt.offset))
		})
	}
}

func TestOffsetAt(t *testing.T) {
	doc := New("FROM node\r\nRUN 😀 ok\rUSER x\n")

	assert.Equal(t, 0, doc.OffsetAt(Position{0, 0}))
	assert.Equal(t, 9, doc.OffsetAt(Position{0, 9}))
	assert.Equal(t, 9, doc.OffsetAt(Position{0, 42}), "clamps to line end, before the terminator")
	assert.Equal(t, 11, doc.OffsetAt(Position{1, 0}))
	assert.Equal(t, 11+len("RUN 😀"), doc.OffsetAt(Position{1, 6}))
	assert.Equal(t, 11+len("RUN "), doc.OffsetAt(Position{1, 5}), "does not split a surrogate pair")
	assert.Equal(t, doc.Len(), doc.OffsetAt(Position{10, 0}))
	assert.Equal(t, 0, doc.OffsetAt(Position{-1, 3}))
}

func TestRoundTrip(t *testing.T) {
	text := "# escape=`\r\nFROM node `\r\n  AS build\rRUN echo ü\n"
	doc := New(text)
	for off := 0; off <= len(text); off++ {
		if off < len(text) && (text[off]&0xC0) == 0x80 {
			continue
		}
		if off > 0 && text[off-1] == '\r' && off < len(text) && text[off] == '\n' {
			continue
		}
		pos := doc.PositionAt(off)
		require.Equal(t, off, doc.OffsetAt(pos), "offset %d -> %s", off, pos)
	}
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 1, New("").LineCount())
	assert.Equal(t, 2, New("a\n").LineCount())
	assert.Equal(t, 3, New("a\r\nb\rc").LineCount())
	assert.Equal(t, 3, New("\n\r").LineCount())
}

func TestSlice(t *testing.T) {
	doc := New("FROM node\nEXPOSE 80\\\n00-\n")
	assert.Equal(t, "80\\\n00-", doc.Slice(NewRange(1, 7, 2, 3)))
	assert.Equal(t, "", doc.Slice(NewRange(1, 3, 0, 1)))
	assert.Equal(t, "node", doc.Slice(doc.Range(5, 9)))
}

func TestPositionBefore(t *testing.T) {
	assert.True(t, Position{0, 5}.Before(Position{1, 0}))
	assert.True(t, Position{1, 0}.Before(Position{1, 1}))
	assert.False(t, Position{1, 1}.Before(Position{1, 1}))
	assert.Equal(t, "1:7-2:3", NewRange(1, 7, 2, 3).String())
}
