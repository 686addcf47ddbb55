package ports

// InputResolver expands file patterns, such as the includes of a manifest.
//
//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks -source=resolver.go
type InputResolver interface {
	// ResolveInputs resolves the given patterns relative to root into a sorted list of file paths.
	ResolveInputs(patterns []string, root string) ([]string, error)
}
