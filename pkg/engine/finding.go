package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validation errors returned by Finding.Validate and ParseSeverity.
var (
	ErrEmptyKind        = errors.New("finding has an empty kind")
	ErrEmptyRemediation = errors.New("finding has an empty remediation")
	ErrUnknownSeverity  = errors.New("unknown severity")
)

// Severity is the urgency a probe assigns to a finding.
type Severity int

const (
	Critical Severity = iota
	Warning
	Info
)

var severityNames = [...]string{
	Critical: "critical",
	Warning:  "warning",
	Info:     "info",
}

// Severities returns every severity in descending urgency. Reports iterate
// buckets in this order.
func Severities() []Severity {
	return []Severity{Critical, Warning, Info}
}

// String returns the lowercase severity name.
func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	return s >= Critical && s <= Info
}

// ParseSeverity maps a lowercase name back to its Severity.
func ParseSeverity(name string) (Severity, error) {
	for _, s := range Severities() {
		if strings.EqualFold(name, severityNames[s]) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

// MarshalText encodes s as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Finding is one detected security condition. Fields are fixed at
// construction and only exposed through accessors.
type Finding struct {
	kind        string
	description string
	command     string
	remediation string
}

// NewFinding builds a Finding. It does not validate; the scanner does that
// before a finding is accepted into a result.
func NewFinding(kind, description, command, remediation string) Finding {
	return Finding{
		kind:        kind,
		description: description,
		command:     command,
		remediation: remediation,
	}
}

// Kind is the stable machine-readable identifier, e.g. "sudo_misconfig".
func (f Finding) Kind() string { return f.kind }

// Description is the human-readable explanation, possibly multi-line.
func (f Finding) Description() string { return f.description }

// Command is the diagnostic command whose output produced the finding.
func (f Finding) Command() string { return f.command }

// Remediation is the advice for fixing the condition.
func (f Finding) Remediation() string { return f.remediation }

// Validate checks the fields every rendered finding must carry.
func (f Finding) Validate() error {
	if strings.TrimSpace(f.kind) == "" {
		return ErrEmptyKind
	}
	if strings.TrimSpace(f.remediation) == "" {
		return fmt.Errorf("%w: kind %s", ErrEmptyRemediation, f.kind)
	}
	return nil
}

// findingJSON is the wire shape. The key names are part of the report format
// and must not change.
type findingJSON struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Command     string `json:"command"`
	Remediation string `json:"remediation"`
}

// MarshalJSON encodes the finding with the report keys.
func (f Finding) MarshalJSON() ([]byte, error) {
	return json.Marshal(findingJSON{
		Type:        f.kind,
		Description: f.description,
		Command:     f.command,
		Remediation: f.remediation,
	})
}

// UnmarshalJSON decodes a finding written by MarshalJSON.
func (f *Finding) UnmarshalJSON(b []byte) error {
	var v findingJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = NewFinding(v.Type, v.Description, v.Command, v.Remediation)
	return nil
}

// Observation is a finding together with the severity its probe tagged it
// with.
type Observation struct {
	Severity Severity
	Finding  Finding
}

// Observe is shorthand for building an Observation.
func Observe(sev Severity, f Finding) Observation {
	return Observation{Severity: sev, Finding: f}
}
