package ports

// Hasher defines the interface for computing hashes.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeInputHash fingerprints the source files of a unit together with the settings
	// that shape its output.
	ComputeInputHash(sources []string, env map[string]string) (string, error)

	// ComputeContentHash hashes emitted output.
	ComputeContentHash(data []byte) string
}
