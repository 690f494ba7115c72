package diag

import (
	"rill/internal/source"
)

// Severity ranks how serious a diagnostic is.
type Severity uint8

const (
	// SevInfo carries supplementary context and never blocks a unit.
	SevInfo Severity = iota
	// SevWarning flags something suspicious the unit can proceed past.
	SevWarning
	// SevError marks a defect; the unit fails checking.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Note attaches secondary context to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one user-facing record: what went wrong, where, how bad.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// WithNote returns a copy of d carrying an extra note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
