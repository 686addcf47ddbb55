package ports

// Verifier checks that previously emitted outputs are still in place.
//
//go:generate mockgen -destination=mocks/verifier_mock.go -package=mocks -source=verifier.go
type Verifier interface {
	// VerifyOutputs reports whether every output exists relative to root.
	VerifyOutputs(root string, outputs []string) (bool, error)
}
