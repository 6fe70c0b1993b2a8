package dockerfile

import (
	"fmt"

	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

// Source is the source tag attached to every diagnostic.
const Source = "dockerfile-lsp"

// Code identifies the rule that produced a diagnostic.
type Code int

const (
	CasingInstruction Code = iota
	ArgumentMissing
	ArgumentExtra
	ArgumentRequiresOne
	ArgumentRequiresOneOrThree
	ArgumentRequiresAtLeastTwo
	InvalidAs
	InvalidPort
	InvalidSignal
	InvalidEscapeDirective
	InvalidHealthcheckType
	InvalidDigest
	DeprecatedMaintainer
	NoSourceImage
	UnknownInstruction
	DuplicateBuildStageName
	OnbuildTriggerDisallowed
	FlagUnknown
	FlagInvalidValue
)

var codeNames = map[Code]string{
	CasingInstruction:          "casing-instruction",
	ArgumentMissing:            "argument-missing",
	ArgumentExtra:              "argument-extra",
	ArgumentRequiresOne:        "argument-requires-one",
	ArgumentRequiresOneOrThree: "argument-requires-one-or-three",
	ArgumentRequiresAtLeastTwo: "argument-requires-at-least-two",
	InvalidAs:                  "invalid-as",
	InvalidPort:                "invalid-port",
	InvalidSignal:              "invalid-signal",
	InvalidEscapeDirective:     "invalid-escape-directive",
	InvalidHealthcheckType:     "invalid-healthcheck-type",
	InvalidDigest:              "invalid-digest",
	DeprecatedMaintainer:       "deprecated-maintainer",
	NoSourceImage:              "no-source-image",
	UnknownInstruction:         "unknown-instruction",
	DuplicateBuildStageName:    "duplicate-build-stage-name",
	OnbuildTriggerDisallowed:   "onbuild-trigger-disallowed",
	FlagUnknown:                "flag-unknown",
	FlagInvalidValue:           "flag-invalid-value",
}

// String returns the stable name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Diagnostic is a positioned validation finding.
type Diagnostic struct {
	Code     Code           `json:"code"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Range    document.Range `json:"range"`
	Source   string         `json:"source"`

	// Hint is an optional suggestion, such as the closest known instruction
	Hint string `json:"hint,omitempty"`
}

// String formats the diagnostic as line:col: severity: message.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s (%s)",
		d.Range.Start.Line+1, d.Range.Start.Character+1, d.Severity, d.Message, d.Code)
}

func newDiagnostic(code Code, severity Severity, message string, rng document.Range) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: severity,
		Message:  message,
		Range:    rng,
		Source:   Source,
	}
}

// MessageInstructionCasing is the message for CasingInstruction.
func MessageInstructionCasing() string {
	return "Instructions should be written in uppercase letters"
}

// MessageArgumentMissing is the message for ArgumentMissing.
func MessageArgumentMissing() string {
	return "Instruction has no arguments"
}

// MessageArgumentExtra is the message for ArgumentExtra.
func MessageArgumentExtra() string {
	return "Instruction has an extra argument"
}

// MessageArgumentRequiresOne is the message for ArgumentRequiresOne.
func MessageArgumentRequiresOne() string {
	return "ARG requires exactly one argument"
}

// MessageArgumentRequiresOneOrThree is the message for ArgumentRequiresOneOrThree.
func MessageArgumentRequiresOneOrThree() string {
	return "Instruction requires one or three arguments"
}

// MessageArgumentRequiresAtLeastTwo is the message for ArgumentRequiresAtLeastTwo.
func MessageArgumentRequiresAtLeastTwo(keyword string) string {
	return fmt.Sprintf("%s requires at least two arguments", keyword)
}

// MessageInvalidAs is the message for InvalidAs.
func MessageInvalidAs() string {
	return "Second argument should be AS"
}

// MessageInvalidPort is the message for InvalidPort.
func MessageInvalidPort(port string) string {
	return fmt.Sprintf("Invalid containerPort: %s", port)
}

// MessageInvalidSignal is the message for InvalidSignal.
func MessageInvalidSignal(signal string) string {
	return fmt.Sprintf("Invalid stop signal: %s", signal)
}

// MessageInvalidEscapeDirective is the message for InvalidEscapeDirective.
func MessageInvalidEscapeDirective(value string) string {
	return fmt.Sprintf("invalid ESCAPE '%s'. Must be ` or \\", value)
}

// MessageInvalidHealthcheckType is the message for InvalidHealthcheckType.
func MessageInvalidHealthcheckType(value string) string {
	return fmt.Sprintf("Unknown type \"%s\" in HEALTHCHECK (try CMD)", value)
}

// MessageInvalidDigest is the message for InvalidDigest.
func MessageInvalidDigest(value string, err error) string {
	return fmt.Sprintf("Invalid image digest %s: %v", value, err)
}

// MessageDeprecatedMaintainer is the message for DeprecatedMaintainer.
func MessageDeprecatedMaintainer() string {
	return "MAINTAINER has been deprecated"
}

// MessageNoSourceImage is the message for NoSourceImage.
func MessageNoSourceImage() string {
	return "No source image provided with `FROM`"
}

// MessageUnknownInstruction is the message for UnknownInstruction.
func MessageUnknownInstruction(keyword string) string {
	return fmt.Sprintf("Unknown instruction: %s", keyword)
}

// MessageDuplicateBuildStageName is the message for DuplicateBuildStageName.
func MessageDuplicateBuildStageName(name string) string {
	return fmt.Sprintf("Duplicate name of build stage: %s", name)
}

// MessageOnbuildTriggerDisallowed is the message for OnbuildTriggerDisallowed.
func MessageOnbuildTriggerDisallowed(trigger string) string {
	return fmt.Sprintf("%s isn't allowed as an ONBUILD trigger", trigger)
}

// MessageFlagUnknown is the message for FlagUnknown.
func MessageFlagUnknown(flag string) string {
	return fmt.Sprintf("Unknown flag: %s", flag)
}

// MessageFlagInvalidValue is the message for FlagInvalidValue.
func MessageFlagInvalidValue(flag, value string, err error) string {
	return fmt.Sprintf("Invalid value for --%s: %s (%v)", flag, value, err)
}

// MessageSuggestion formats the hint attached to an unknown instruction.
func MessageSuggestion(keyword string) string {
	return fmt.Sprintf("did you mean %s?", keyword)
}
