// Package dockerfile provides parsing functionality for Dockerfiles.
package dockerfile

import (
	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// Parse splits text into directives and instructions. It never fails:
// malformed input produces diagnostics or fewer instructions.
func Parse(text string) *Dockerfile {
	doc := document.New(text)
	directives, diags := ParseDirectives(doc)
	return &Dockerfile{
		Document:     doc,
		Directives:   directives,
		Instructions: parseInstructions(doc, directives.Escape),
		Diagnostics:  diags,
	}
}

// parseInstructions walks the document line by line. Comment lines and blank
// lines are skipped, and each remaining logical line becomes an instruction.
func parseInstructions(doc *document.Document, escape rune) []*Instruction {
	text := doc.Text()
	esc := byte(escape)
	var instructions []*Instruction

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case isBlank(c) || isEOL(c):
			i++
		case c == '#':
			for i < len(text) && !isEOL(text[i]) {
				i++
			}
		case c == esc:
			// An escaped line break where a keyword would start is dropped.
			if next, _, ok := skipContinuation(text, i, len(text)); ok {
				i = next
				continue
			}
			inst := parseInstruction(doc, escape, i)
			instructions = append(instructions, inst)
			i = inst.argsEnd
		default:
			inst := parseInstruction(doc, escape, i)
			instructions = append(instructions, inst)
			i = inst.argsEnd
		}
	}
	return instructions
}

// parseInstruction reads the instruction whose keyword starts at start.
func parseInstruction(doc *document.Document, escape rune, start int) *Instruction {
	text := doc.Text()
	kwEnd := scanKeyword(text, start, byte(escape))
	argsEnd := scanInstructionEnd(text, kwEnd, byte(escape))
	return newInstruction(doc, escape, joinContinuations(text, start, kwEnd, byte(escape)), start, kwEnd, argsEnd)
}

// scanKeyword returns the offset after the last keyword character. A
// continuation inside the keyword joins it with the next line unless the
// next line starts with a blank.
func scanKeyword(text string, start int, esc byte) int {
	end := start
	for i := start; i < len(text); {
		c := text[i]
		if isBlank(c) || isEOL(c) {
			break
		}
		if c == esc {
			next, gap, ok := skipContinuation(text, i, len(text))
			if ok {
				if gap || next >= len(text) || isBlank(text[next]) || isEOL(text[next]) {
					break
				}
				i = next
				continue
			}
			i += escapedSize(text, i, len(text))
			end = i
			continue
		}
		i++
		end = i
	}
	return end
}

// scanInstructionEnd returns the offset of the line terminator that ends the
// instruction, or the text length.
func scanInstructionEnd(text string, start int, esc byte) int {
	i := start
	for i < len(text) {
		c := text[i]
		if isEOL(c) {
			break
		}
		if c == esc {
			if next, _, ok := skipContinuation(text, i, len(text)); ok {
				i = next
				continue
			}
			i += escapedSize(text, i, len(text))
			continue
		}
		i++
	}
	return i
}
