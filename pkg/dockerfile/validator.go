// Package dockerfile provides validation functionality for Dockerfiles.
package dockerfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/containerd/containerd/platforms"
	"github.com/docker/go-connections/nat"
	"github.com/moby/buildkit/util/suggest"
	"github.com/opencontainers/go-digest"

	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

var (
	portPattern   = regexp.MustCompile(`^[0-9]+(-[0-9]+)?$`)
	signalPattern = regexp.MustCompile(`(?i)^([0-9]+|SIG[A-Z0-9]+(\+[0-9]+)?)$`)

	exposeProtocols = map[string]bool{"tcp": true, "udp": true, "sctp": true}

	onbuildDisallowed = map[string]bool{"FROM": true, "ONBUILD": true, "MAINTAINER": true}

	healthcheckDurationFlags = map[string]bool{
		"interval":       true,
		"timeout":        true,
		"start-period":   true,
		"start-interval": true,
	}
)

// Validator runs the validation rules over Dockerfile text.
type Validator struct {
	settings ValidatorSettings
	keywords KeywordTable
}

// NewValidator creates a validator with the given settings and the default
// keyword table.
func NewValidator(settings ValidatorSettings) *Validator {
	return &Validator{
		settings: settings.WithDefaults(),
		keywords: defaultKeywords,
	}
}

// Settings returns the validator settings with defaults applied.
func (v *Validator) Settings() ValidatorSettings {
	return v.settings
}

// Lint implements Linter using the default keyword table.
func (v *Validator) Lint(text string) []Diagnostic {
	return v.Validate(v.keywords, text)
}

// Validate parses text and returns every diagnostic found. The order of the
// result is not significant.
func (v *Validator) Validate(keywords KeywordTable, text string) []Diagnostic {
	return v.ValidateDockerfile(keywords, Parse(text))
}

// ValidateDockerfile runs the rules over an already parsed Dockerfile.
func (v *Validator) ValidateDockerfile(keywords KeywordTable, df *Dockerfile) []Diagnostic {
	r := &run{
		settings: v.settings,
		keywords: keywords,
		stages:   make(map[string]bool),
	}
	r.diags = append(r.diags, df.Diagnostics...)
	r.checkSourceImage(df)
	for _, inst := range df.Instructions {
		r.checkInstruction(inst)
	}
	return r.diags
}

// Validate checks text with the default settings.
func Validate(text string) []Diagnostic {
	return NewValidator(DefaultSettings()).Lint(text)
}

// run holds the state of a single validation pass.
type run struct {
	settings ValidatorSettings
	keywords KeywordTable
	stages   map[string]bool
	diags    []Diagnostic
}

func (r *run) report(code Code, severity Severity, message string, rng document.Range) *Diagnostic {
	if severity == SeverityIgnore {
		return nil
	}
	r.diags = append(r.diags, newDiagnostic(code, severity, message, rng))
	return &r.diags[len(r.diags)-1]
}

func (r *run) error(code Code, message string, rng document.Range) *Diagnostic {
	return r.report(code, SeverityError, message, rng)
}

// checkSourceImage requires the first instruction other than ARG to be FROM.
func (r *run) checkSourceImage(df *Dockerfile) {
	for _, inst := range df.Instructions {
		switch inst.Command() {
		case "ARG":
			continue
		case "FROM":
			return
		default:
			r.error(NoSourceImage, MessageNoSourceImage(), inst.KeywordRange())
			return
		}
	}
	r.error(NoSourceImage, MessageNoSourceImage(), document.Range{})
}

func (r *run) checkInstruction(inst *Instruction) {
	command := inst.Command()
	keyword, ok := r.keywords.Lookup(command)
	if !ok {
		r.unknown(command, inst.KeywordRange())
		return
	}
	if inst.Keyword() != command {
		r.report(CasingInstruction, r.settings.InstructionCasing, MessageInstructionCasing(), inst.KeywordRange())
	}

	args := inst.Arguments()
	if len(args) == 0 {
		r.error(ArgumentMissing, MessageArgumentMissing(), inst.KeywordRange())
		return
	}
	if !r.checkArity(keyword, inst, args) {
		return
	}
	if keyword.check != nil {
		keyword.check(r, inst, args)
	}
}

func (r *run) unknown(command string, rng document.Range) {
	d := r.error(UnknownInstruction, MessageUnknownInstruction(command), rng)
	if match, ok := suggestKeyword(command, r.keywords.Names()); ok {
		d.Hint = MessageSuggestion(match)
	}
}

// noSuggestion has an empty message so that a wrapped suggestion error
// consists of the suggestion alone.
type noSuggestion struct{}

func (noSuggestion) Error() string { return "" }

// suggestKeyword returns the known keyword closest to keyword, if any is
// close enough.
func suggestKeyword(keyword string, names []string) (string, bool) {
	const prefix, suffix = " (did you mean ", "?)"
	msg := suggest.WrapError(noSuggestion{}, keyword, names, false).Error()
	if !strings.HasPrefix(msg, prefix) || !strings.HasSuffix(msg, suffix) {
		return "", false
	}
	return msg[len(prefix) : len(msg)-len(suffix)], true
}

// checkArity applies the keyword's argument count rule and reports whether
// the specialized checks should still run.
func (r *run) checkArity(keyword Keyword, inst *Instruction, args []Argument) bool {
	switch keyword.Arity {
	case ArityExactlyOne:
		if len(args) > 1 {
			r.error(keyword.ExtraCode, arityMessage(keyword), spanRange(inst, args[1:]))
		}
	case ArityOneOrThree:
		args = inst.NonFlagArguments()
		switch len(args) {
		case 0:
			r.error(ArgumentMissing, MessageArgumentMissing(), inst.KeywordRange())
			return false
		case 1:
		case 2:
			r.error(ArgumentRequiresOneOrThree, MessageArgumentRequiresOneOrThree(), args[1].Range())
		case 3:
			if !strings.EqualFold(args[1].Value(), "AS") {
				r.error(InvalidAs, MessageInvalidAs(), args[1].Range())
			}
		default:
			r.error(ArgumentRequiresOneOrThree, MessageArgumentRequiresOneOrThree(), spanRange(inst, args[3:]))
		}
	case ArityAtLeastTwo:
		args = inst.NonFlagArguments()
		if len(args) > 0 && strings.HasPrefix(args[0].Value(), "[") {
			return true
		}
		if len(args) < 2 {
			rng := inst.KeywordRange()
			if len(args) == 1 {
				rng = args[0].Range()
			}
			r.error(ArgumentRequiresAtLeastTwo, MessageArgumentRequiresAtLeastTwo(keyword.Name), rng)
		}
	}
	return true
}

func arityMessage(keyword Keyword) string {
	switch keyword.ExtraCode {
	case ArgumentRequiresOne:
		return MessageArgumentRequiresOne()
	case ArgumentRequiresOneOrThree:
		return MessageArgumentRequiresOneOrThree()
	default:
		return MessageArgumentExtra()
	}
}

// spanRange covers the given arguments from the first start to the last end.
func spanRange(inst *Instruction, args []Argument) document.Range {
	return inst.Document().Range(args[0].Start(), args[len(args)-1].End())
}

func checkFrom(r *run, inst *Instruction, _ []Argument) {
	from, ok := inst.AsFrom()
	if !ok {
		return
	}
	for _, flag := range from.Flags {
		switch flag.Name {
		case "platform":
			r.checkPlatform(flag)
		default:
			r.error(FlagUnknown, MessageFlagUnknown(flag.Name), flag.Argument.Range())
		}
	}

	image := from.Image.Unescaped()
	if at := strings.LastIndex(image, "@"); at >= 0 && !strings.Contains(image, "$") {
		if _, err := digest.Parse(image[at+1:]); err != nil {
			r.error(InvalidDigest, MessageInvalidDigest(image[at+1:], err), from.Image.Range())
		}
	}

	if from.HasStageName {
		name := strings.ToLower(from.StageName)
		if r.stages[name] {
			r.error(DuplicateBuildStageName, MessageDuplicateBuildStageName(from.StageName), from.StageNameRange)
		}
		r.stages[name] = true
	}
}

func (r *run) checkPlatform(flag Flag) {
	if !flag.HasValue || flag.Value == "" {
		r.error(FlagInvalidValue, MessageFlagInvalidValue(flag.Name, flag.Value, fmt.Errorf("value required")), flag.Argument.Range())
		return
	}
	if strings.Contains(flag.Value, "$") {
		return
	}
	if _, err := platforms.Parse(flag.Value); err != nil {
		r.error(FlagInvalidValue, MessageFlagInvalidValue(flag.Name, flag.Value, err), flag.Argument.Range())
	}
}

func checkExpose(r *run, _ *Instruction, args []Argument) {
	for _, arg := range args {
		value := arg.Unescaped()
		if strings.Contains(value, "$") {
			continue
		}
		if !validPort(value) {
			r.error(InvalidPort, MessageInvalidPort(value), arg.Range())
		}
	}
}

func validPort(value string) bool {
	// SplitProtoPort treats "8080/" as tcp.
	if strings.Count(value, "/") > 1 || strings.HasSuffix(value, "/") {
		return false
	}
	proto, port := nat.SplitProtoPort(value)
	if !exposeProtocols[strings.ToLower(proto)] {
		return false
	}
	return portPattern.MatchString(port)
}

func checkStopSignal(r *run, _ *Instruction, args []Argument) {
	signal := args[0].Unescaped()
	if strings.Contains(signal, "$") {
		return
	}
	if !signalPattern.MatchString(signal) {
		r.error(InvalidSignal, MessageInvalidSignal(signal), args[0].Range())
	}
}

func checkMaintainer(r *run, inst *Instruction, _ []Argument) {
	r.report(DeprecatedMaintainer, r.settings.DeprecatedMaintainer, MessageDeprecatedMaintainer(), inst.KeywordRange())
}

func checkOnbuild(r *run, _ *Instruction, args []Argument) {
	trigger := strings.ToUpper(args[0].Unescaped())
	if _, ok := r.keywords.Lookup(trigger); !ok {
		r.unknown(trigger, args[0].Range())
		return
	}
	if onbuildDisallowed[trigger] {
		r.error(OnbuildTriggerDisallowed, MessageOnbuildTriggerDisallowed(trigger), args[0].Range())
	}
}

func checkHealthcheck(r *run, inst *Instruction, _ []Argument) {
	for _, flag := range inst.Flags() {
		switch {
		case healthcheckDurationFlags[flag.Name]:
			if _, err := time.ParseDuration(flag.Value); err != nil {
				r.error(FlagInvalidValue, MessageFlagInvalidValue(flag.Name, flag.Value, err), flag.Argument.Range())
			}
		case flag.Name == "retries":
			if n, err := strconv.Atoi(flag.Value); err != nil || n < 0 {
				if err == nil {
					err = fmt.Errorf("must not be negative")
				}
				r.error(FlagInvalidValue, MessageFlagInvalidValue(flag.Name, flag.Value, err), flag.Argument.Range())
			}
		default:
			r.error(FlagUnknown, MessageFlagUnknown(flag.Name), flag.Argument.Range())
		}
	}

	args := inst.NonFlagArguments()
	if len(args) == 0 {
		r.error(ArgumentMissing, MessageArgumentMissing(), inst.KeywordRange())
		return
	}
	switch kind := strings.ToUpper(args[0].Unescaped()); kind {
	case "NONE", "CMD":
	default:
		r.error(InvalidHealthcheckType, MessageInvalidHealthcheckType(args[0].Unescaped()), args[0].Range())
	}
}
