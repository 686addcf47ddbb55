// Package diagnostics turns resolution failures into user-facing reports.
package diagnostics

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// FromFailure converts the failure of a call site into a diagnostic.
func FromFailure(site domain.CallSite, f *domain.Failure) domain.Diagnostic {
	d := domain.Diagnostic{
		Kind:     f.Kind,
		Severity: domain.SeverityError,
		Site:     site.ID,
		Primary:  site.Location,
	}

	var sb strings.Builder
	switch f.Kind {
	case domain.FailureUnresolved:
		fmt.Fprintf(&sb, "no injectable found for %s", f.Requested)
	case domain.FailureAmbiguous:
		fmt.Fprintf(&sb, "ambiguous injectables for %s:", f.Requested)
		for _, c := range f.Candidates {
			fmt.Fprintf(&sb, "\n    %s", c)
			d.Related = append(d.Related, c.Location)
		}
	case domain.FailureCyclic:
		path := make([]string, 0, len(f.Path)+1)
		for _, t := range f.Path {
			path = append(path, t.String())
		}
		path = append(path, f.Requested.String())
		fmt.Fprintf(&sb, "cyclic dependency: %s", strings.Join(path, " -> "))
	case domain.FailureDivergent:
		fmt.Fprintf(&sb, "divergent resolution for %s", f.Requested)
		for _, c := range f.Candidates {
			d.Related = append(d.Related, c.Location)
		}
	case domain.FailureCanceled:
		fmt.Fprintf(&sb, "resolution of %s was canceled", f.Requested)
	default:
		fmt.Fprintf(&sb, "%s: %s", f.Kind, f.Requested)
	}
	if f.Detail != "" && f.Kind != domain.FailureAmbiguous {
		fmt.Fprintf(&sb, " (%s)", f.Detail)
	}

	if len(f.Chain) > 0 {
		sb.WriteString("\n  requested by:")
		for i := len(f.Chain) - 1; i >= 0; i-- {
			fmt.Fprintf(&sb, "\n    %s", f.Chain[i])
		}
	}
	d.Message = sb.String()
	return d
}

// Reporter collects the diagnostics of one unit. It is safe for concurrent use.
type Reporter struct {
	mu          sync.Mutex
	diagnostics []domain.Diagnostic
}

// NewReporter creates an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Add records diagnostics.
func (r *Reporter) Add(ds ...domain.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, ds...)
}

// AddResolution records the failure and warnings of a call site.
func (r *Reporter) AddResolution(res domain.Resolution) {
	r.Add(res.Warnings...)
	if res.Failure != nil {
		r.Add(FromFailure(res.Site, res.Failure))
	}
}

// Diagnostics returns every recorded diagnostic ordered by location, then severity.
func (r *Reporter) Diagnostics() []domain.Diagnostic {
	r.mu.Lock()
	res := slices.Clone(r.diagnostics)
	r.mu.Unlock()

	slices.SortStableFunc(res, func(a, b domain.Diagnostic) int {
		return cmp.Or(
			domain.CompareLocations(a.Primary, b.Primary),
			cmp.Compare(b.Severity, a.Severity),
			strings.Compare(a.Site, b.Site),
		)
	})
	return res
}

// Counts returns the number of errors and warnings.
func (r *Reporter) Counts() (errors, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diagnostics {
		if d.IsError() {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}

// HasErrors reports whether any diagnostic blocks emission.
func (r *Reporter) HasErrors() bool {
	errs, _ := r.Counts()
	return errs > 0
}

// Render writes the diagnostics in a compiler-like text format.
func (r *Reporter) Render(w io.Writer) error {
	for _, d := range r.Diagnostics() {
		if _, err := fmt.Fprintf(w, "%s: %s: [%s] %s\n", d.Primary, d.Severity, d.Kind, d.Message); err != nil {
			return err
		}
		for _, rel := range d.Related {
			if _, err := fmt.Fprintf(w, "    see %s\n", rel); err != nil {
				return err
			}
		}
	}
	return nil
}

// Err summarizes the unit. It returns nil when no diagnostic blocks emission.
func (r *Reporter) Err(unit string) error {
	errs, warnings := r.Counts()
	if errs == 0 {
		return nil
	}
	err := zerr.With(domain.ErrResolutionFailed, "unit", unit)
	err = zerr.With(err, "errors", errs)
	return zerr.With(err, "warnings", warnings)
}
