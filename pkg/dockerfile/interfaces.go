// Package dockerfile defines interfaces for Dockerfile parsing and validation.
package dockerfile

import (
	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// Linter validates Dockerfile text and returns its diagnostics.
type Linter interface {
	// Lint parses text from scratch and runs every validation rule over it
	Lint(text string) []Diagnostic
}

// Dockerfile is the result of parsing a document.
type Dockerfile struct {
	// Document is the source text with its line index
	Document *document.Document

	// Directives contains the parser directives found before any instruction
	Directives *Directives

	// Instructions contains every instruction in source order
	Instructions []*Instruction

	// Diagnostics contains problems found while parsing directives
	Diagnostics []Diagnostic
}

// Escape returns the escape character in effect for the document.
func (d *Dockerfile) Escape() rune {
	return d.Directives.Escape
}

// Stages returns the FROM instructions of the document.
func (d *Dockerfile) Stages() []*Instruction {
	var stages []*Instruction
	for _, inst := range d.Instructions {
		if inst.Command() == "FROM" {
			stages = append(stages, inst)
		}
	}
	return stages
}

// Flag is a leading `--name[=value]` argument.
type Flag struct {
	// Name is the flag name without dashes
	Name string

	// Value is the unescaped text after `=`
	Value string

	// HasValue reports whether `=` was present
	HasValue bool

	// Argument is the token the flag was read from
	Argument Argument
}

// ArgView is the typed view of an ARG instruction.
type ArgView struct {
	Name      string
	NameRange document.Range

	// Value has one layer of matching quotes stripped
	Value      string
	ValueRange document.Range

	// HasValue reports whether the declaration contains `=`
	HasValue bool
}

// FromView is the typed view of a FROM instruction.
type FromView struct {
	// Flags contains the leading flags, such as --platform
	Flags []Flag

	// Image is the base image token
	Image Argument

	// StageName is the name after AS, if any
	StageName      string
	StageNameRange document.Range
	HasStageName   bool
}
