package domain

// Severity of a diagnostic.
type Severity uint8

const (
	// SeverityWarning does not block emission.
	SeverityWarning Severity = iota
	// SeverityError blocks emission of the unit.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a user-facing report about a declaration or call site.
type Diagnostic struct {
	Kind     FailureKind
	Severity Severity
	Message  string
	Site     string
	Primary  Location
	Related  []Location
}

// IsError reports whether the diagnostic blocks emission.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}
