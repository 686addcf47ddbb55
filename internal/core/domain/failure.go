package domain

import "strings"

// FailureKind classifies why a request could not be satisfied.
type FailureKind uint8

const (
	// FailureUnresolved means no candidate matched a required request.
	FailureUnresolved FailureKind = iota
	// FailureAmbiguous means ranking left more than one best candidate.
	FailureAmbiguous
	// FailureCyclic means a request depends on itself without a provider in between.
	FailureCyclic
	// FailureDivergent means a generic candidate keeps requesting ever larger types.
	FailureDivergent
	// FailureMalformed means a declaration could not become a candidate.
	FailureMalformed
	// FailureDuplicateKey means two map contributions share a key.
	FailureDuplicateKey
	// FailureCanceled means the resolution was canceled.
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnresolved:
		return "Unresolved"
	case FailureAmbiguous:
		return "AmbiguousResolution"
	case FailureCyclic:
		return "CyclicDependency"
	case FailureDivergent:
		return "DivergentResolution"
	case FailureMalformed:
		return "MalformedCandidate"
	case FailureDuplicateKey:
		return "DuplicateMultibindingKey"
	default:
		return "Canceled"
	}
}

// Failure describes why a call site could not be resolved.
type Failure struct {
	Kind      FailureKind
	Requested *Type
	// Chain lists the candidates that led to the failing request, outermost first.
	Chain []*Candidate
	// Candidates lists the tied candidates of an ambiguity or the repeating candidate of a divergence.
	Candidates []*Candidate
	// Path lists the requested types of a cycle in visiting order.
	Path   []*Type
	Detail string
	Cause  error
}

func (f *Failure) Error() string {
	var sb strings.Builder
	sb.WriteString(f.Kind.String())
	if f.Requested != nil {
		sb.WriteString(" ")
		sb.WriteString(f.Requested.String())
	}
	if f.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Detail)
	}
	return sb.String()
}

func (f *Failure) Unwrap() error {
	return f.Cause
}
