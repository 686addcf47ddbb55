package domain

import "go.trai.ch/zerr"

var (
	// ErrModuleAlreadyExists is returned when a unit links two modules with the same name.
	ErrModuleAlreadyExists = zerr.New("module already exists")

	// ErrMissingModule is returned when a module requires a module that is not linked into the unit.
	ErrMissingModule = zerr.New("missing module")

	// ErrCycleDetected is returned when a cycle is detected in the module dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrUnsatisfiedRequirement is returned when a linked module's version violates a requirement constraint.
	ErrUnsatisfiedRequirement = zerr.New("unsatisfied module requirement")

	// ErrInvalidConstraint is returned when a requirement carries a malformed version constraint.
	ErrInvalidConstraint = zerr.New("invalid version constraint")

	// ErrResolutionFailed is returned when at least one call site of a unit failed to resolve.
	ErrResolutionFailed = zerr.New("resolution failed")

	// ErrUnknownFormat is returned when no emitter is registered for the requested output format.
	ErrUnknownFormat = zerr.New("unknown output format")

	// ErrManifestNotFound is returned when no manifest exists at or above the given directory.
	ErrManifestNotFound = zerr.New("manifest not found")

	// ErrInvalidManifest is returned when a declaration manifest cannot be decoded.
	ErrInvalidManifest = zerr.New("invalid manifest")

	// ErrInvalidTypeExpression is returned when a type expression in a manifest cannot be parsed.
	ErrInvalidTypeExpression = zerr.New("invalid type expression")

	// ErrScopeNotFound is returned when a call site or scope refers to an unknown scope.
	ErrScopeNotFound = zerr.New("scope not found")
)
