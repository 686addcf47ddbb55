package ports

import "context"

// Watcher waits for changes of files on disk.
//
//go:generate go run go.uber.org/mock/mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Wait blocks until at least one of paths is written, created, removed or renamed, and
	// returns the changed paths once the changes settle. It returns ctx.Err() when ctx is done.
	Wait(ctx context.Context, paths []string) ([]string, error)
}
