package domain

// Requirement is a dependency of one module on another, optionally version constrained.
type Requirement struct {
	Module     string
	Constraint string
}

// Module is a compiled module linked into a unit.
type Module struct {
	Name       string
	Version    string
	Requires   []Requirement
	Predefined bool
}

// CallSite is a request for an injected value at a location in the source.
type CallSite struct {
	ID        string
	Requested *Type
	Scope     string
	Location  Location
}

// ScopeDecl is a lexical scope as reported by the front end.
type ScopeDecl struct {
	ID           string
	Parent       string
	Substitution Substitution
}

// Unit is one compilation unit: its own module, the linked modules, and everything declared in them.
// Sources lists the manifest files the unit was read from, in load order.
type Unit struct {
	Name         string
	Sources      []string
	Module       string
	Types        *TypeTable
	Modules      []Module
	Declarations []Declaration
	Scopes       []ScopeDecl
	CallSites    []CallSite
}
