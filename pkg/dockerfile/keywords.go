package dockerfile

import (
	"sort"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/command"
)

// Arity describes how many arguments an instruction accepts.
type Arity int

const (
	// ArityAtLeastOne requires one or more arguments
	ArityAtLeastOne Arity = iota
	// ArityExactlyOne requires a single argument
	ArityExactlyOne
	// ArityOneOrThree requires `image` or `image AS name`, flags excluded
	ArityOneOrThree
	// ArityAtLeastTwo requires sources and a destination, flags excluded
	ArityAtLeastTwo
)

// checkFunc runs instruction specific rules once arity has been checked.
type checkFunc func(r *run, inst *Instruction, args []Argument)

// Keyword is the metadata of one instruction keyword.
type Keyword struct {
	// Name is the canonical uppercase keyword
	Name string

	// Arity is the argument count rule
	Arity Arity

	// ExtraCode is reported for surplus arguments of ArityExactlyOne keywords
	ExtraCode Code

	check checkFunc
}

// KeywordTable maps canonical keywords to their metadata.
type KeywordTable map[string]Keyword

// Lookup finds a keyword case-insensitively.
func (t KeywordTable) Lookup(keyword string) (Keyword, bool) {
	k, ok := t[strings.ToUpper(keyword)]
	return k, ok
}

// Names returns the canonical keywords in sorted order.
func (t KeywordTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keywords returns the table of every Dockerfile instruction.
func Keywords() KeywordTable {
	table := make(KeywordTable, len(command.Commands))
	for cmd := range command.Commands {
		name := strings.ToUpper(cmd)
		table[name] = Keyword{Name: name, Arity: ArityAtLeastOne, ExtraCode: ArgumentExtra}
	}

	set := func(cmd string, arity Arity, extra Code, check checkFunc) {
		name := strings.ToUpper(cmd)
		table[name] = Keyword{Name: name, Arity: arity, ExtraCode: extra, check: check}
	}
	set(command.From, ArityOneOrThree, ArgumentRequiresOneOrThree, checkFrom)
	set(command.Arg, ArityExactlyOne, ArgumentRequiresOne, nil)
	set(command.StopSignal, ArityExactlyOne, ArgumentExtra, checkStopSignal)
	set(command.User, ArityExactlyOne, ArgumentExtra, nil)
	set(command.Add, ArityAtLeastTwo, ArgumentExtra, nil)
	set(command.Copy, ArityAtLeastTwo, ArgumentExtra, nil)
	set(command.Expose, ArityAtLeastOne, ArgumentExtra, checkExpose)
	set(command.Maintainer, ArityAtLeastOne, ArgumentExtra, checkMaintainer)
	set(command.Onbuild, ArityAtLeastOne, ArgumentExtra, checkOnbuild)
	set(command.Healthcheck, ArityAtLeastOne, ArgumentExtra, checkHealthcheck)
	return table
}

var defaultKeywords = Keywords()
