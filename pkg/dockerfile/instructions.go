// Package dockerfile provides the instruction model produced by the parser.
package dockerfile

import (
	"strings"
	"sync"

	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// Instruction is one logical Dockerfile instruction. It may span several
// physical lines through continuations; every range refers to the original
// source.
type Instruction struct {
	doc     *document.Document
	escape  rune
	keyword string

	keywordStart int
	keywordEnd   int

	// argsStart and argsEnd delimit the raw argument region
	argsStart int
	argsEnd   int

	once sync.Once
	args []Argument
}

func newInstruction(doc *document.Document, escape rune, keyword string, kwStart, kwEnd, argsEnd int) *Instruction {
	return &Instruction{
		doc:          doc,
		escape:       escape,
		keyword:      keyword,
		keywordStart: kwStart,
		keywordEnd:   kwEnd,
		argsStart:    kwEnd,
		argsEnd:      argsEnd,
	}
}

// Keyword returns the keyword as written, with continuations joined.
func (i *Instruction) Keyword() string { return i.keyword }

// Command returns the uppercased keyword.
func (i *Instruction) Command() string { return strings.ToUpper(i.keyword) }

// KeywordRange returns the range of the keyword, continuations included.
func (i *Instruction) KeywordRange() document.Range {
	return i.doc.Range(i.keywordStart, i.keywordEnd)
}

// Range returns the range from the keyword through the last argument.
func (i *Instruction) Range() document.Range {
	end := i.keywordEnd
	if args := i.Arguments(); len(args) > 0 {
		end = args[len(args)-1].End()
	}
	return i.doc.Range(i.keywordStart, end)
}

// Escape returns the escape character the instruction was parsed with.
func (i *Instruction) Escape() rune { return i.escape }

// Document returns the document the instruction belongs to.
func (i *Instruction) Document() *document.Document { return i.doc }

// Arguments returns the tokenized arguments. They are computed on first use
// and the same slice is returned afterwards.
func (i *Instruction) Arguments() []Argument {
	i.once.Do(func() {
		i.args = Tokenize(i.doc, i.escape, i.argsStart, i.argsEnd)
	})
	return i.args
}

// ArgumentsRange returns the range of the argument text with surrounding
// blanks and continuations trimmed. It is empty at the keyword end when the
// instruction has no arguments.
func (i *Instruction) ArgumentsRange() document.Range {
	text := i.doc.Text()
	esc := byte(i.escape)
	start := leadingContent(text, i.argsStart, i.argsEnd, esc)
	if start < 0 {
		return i.doc.Range(i.keywordEnd, i.keywordEnd)
	}
	return i.doc.Range(start, trailingContent(text, start, i.argsEnd, esc))
}

// Flags returns the leading `--` arguments parsed as flags.
func (i *Instruction) Flags() []Flag {
	var flags []Flag
	for _, arg := range i.Arguments() {
		raw := arg.Unescaped()
		if !strings.HasPrefix(raw, "--") {
			break
		}
		name, value, hasValue := strings.Cut(raw[2:], "=")
		flags = append(flags, Flag{
			Name:     strings.ToLower(name),
			Value:    value,
			HasValue: hasValue,
			Argument: arg,
		})
	}
	return flags
}

// NonFlagArguments returns the arguments that follow the leading flags.
func (i *Instruction) NonFlagArguments() []Argument {
	args := i.Arguments()
	return args[len(i.Flags()):]
}

// String returns the keyword and argument values separated by spaces.
func (i *Instruction) String() string {
	parts := []string{i.keyword}
	for _, arg := range i.Arguments() {
		parts = append(parts, arg.Value())
	}
	return strings.Join(parts, " ")
}

// AsArg returns the ARG view of the instruction. It reports false when the
// instruction does not have exactly one argument.
func (i *Instruction) AsArg() (ArgView, bool) {
	args := i.Arguments()
	if len(args) != 1 {
		return ArgView{}, false
	}
	arg := args[0]
	text := i.doc.Text()
	esc := byte(i.escape)

	eq := indexUnescaped(text, arg.Start(), arg.End(), esc, '=')
	if eq < 0 {
		return ArgView{
			Name:      arg.Value(),
			NameRange: arg.Range(),
		}, true
	}

	view := ArgView{
		Name:      joinContinuations(text, arg.Start(), eq, esc),
		NameRange: i.doc.Range(arg.Start(), eq),
		HasValue:  true,
	}
	start := leadingContent(text, eq+1, arg.End(), esc)
	if start < 0 {
		view.ValueRange = i.doc.Range(eq+1, eq+1)
		return view, true
	}
	end := trailingContent(text, start, arg.End(), esc)
	view.Value = unquote(joinContinuations(text, start, end, esc))
	view.ValueRange = i.doc.Range(start, end)
	return view, true
}

// AsFrom returns the FROM view of the instruction. It reports false when no
// image is given.
func (i *Instruction) AsFrom() (FromView, bool) {
	view := FromView{Flags: i.Flags()}
	args := i.NonFlagArguments()
	if len(args) == 0 {
		return view, false
	}
	view.Image = args[0]
	if len(args) == 3 && strings.EqualFold(args[1].Value(), "AS") {
		view.StageName = args[2].Value()
		view.StageNameRange = args[2].Range()
		view.HasStageName = true
	}
	return view, true
}

// indexUnescaped returns the offset of the first target byte between start
// and end that is not escaped, or -1.
func indexUnescaped(text string, start, end int, esc, target byte) int {
	for i := start; i < end; {
		c := text[i]
		switch {
		case c == target:
			return i
		case c == esc:
			if next, _, ok := skipContinuation(text, i, end); ok {
				i = next
				continue
			}
			i += escapedSize(text, i, end)
		default:
			i++
		}
	}
	return -1
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
