package dockerfile

import (
	"fmt"
	"strings"
)

// Severity is the configured severity of a diagnostic.
type Severity int

const (
	// SeverityDefault uses the rule's default severity
	SeverityDefault Severity = iota
	// SeverityIgnore suppresses the diagnostic
	SeverityIgnore
	// SeverityWarning reports the diagnostic as a warning
	SeverityWarning
	// SeverityError reports the diagnostic as an error
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityDefault:
		return "default"
	case SeverityIgnore:
		return "ignore"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a configuration value into a Severity.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "default":
		return SeverityDefault, nil
	case "ignore", "off", "none":
		return SeverityIgnore, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityDefault, fmt.Errorf("invalid severity %q: expected ignore, warning or error", value)
	}
}

// ValidatorSettings configures the severity of optional rules. Fields left
// at SeverityDefault take the value from DefaultSettings.
type ValidatorSettings struct {
	// DeprecatedMaintainer applies to MAINTAINER instructions
	DeprecatedMaintainer Severity `json:"deprecatedMaintainer"`

	// InstructionCasing applies to keywords that are not uppercase
	InstructionCasing Severity `json:"instructionCasing"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() ValidatorSettings {
	return ValidatorSettings{
		DeprecatedMaintainer: SeverityWarning,
		InstructionCasing:    SeverityWarning,
	}
}

// WithDefaults returns a copy of s with every SeverityDefault field replaced
// by its default severity.
func (s ValidatorSettings) WithDefaults() ValidatorSettings {
	defaults := DefaultSettings()
	if s.DeprecatedMaintainer == SeverityDefault {
		s.DeprecatedMaintainer = defaults.DeprecatedMaintainer
	}
	if s.InstructionCasing == SeverityDefault {
		s.InstructionCasing = defaults.InstructionCasing
	}
	return s
}
