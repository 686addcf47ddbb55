package domain

import (
	"cmp"
	"strconv"
)

// Location identifies a declaration or call site in the source.
// Order is the global source order index assigned by the front end.
type Location struct {
	Module InternedString `json:"module,omitzero"`
	File   InternedString `json:"file,omitzero"`
	Line   int            `json:"line,omitzero"`
	Order  int            `json:"order,omitzero"`
}

// IsZero reports whether the location is unknown.
func (l Location) IsZero() bool {
	return l.File.IsZero() && l.Line == 0
}

// String renders the location as file:line.
func (l Location) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	if l.Line == 0 {
		return l.File.String()
	}
	return l.File.String() + ":" + strconv.Itoa(l.Line)
}

// CompareLocations orders locations by file, line and source order.
func CompareLocations(a, b Location) int {
	return cmp.Or(
		a.File.Compare(b.File),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Order, b.Order),
	)
}
