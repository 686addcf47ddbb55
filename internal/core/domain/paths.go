package domain

import "path/filepath"

const (
	// StateDir is the directory, relative to the manifest, holding knit's state.
	StateDir = ".knit"
	// StoreDirName is the output store directory inside StateDir.
	StoreDirName = "store"
	// MetricsFileName is the default metrics textfile inside StateDir.
	MetricsFileName = "metrics.prom"
	// DefaultManifest is the manifest file name looked up when none is given.
	DefaultManifest = "knit.yaml"
)

// DefaultStorePath returns the default output store location.
func DefaultStorePath() string {
	return filepath.Join(StateDir, StoreDirName)
}

// DefaultMetricsPath returns the default metrics textfile location.
func DefaultMetricsPath() string {
	return filepath.Join(StateDir, MetricsFileName)
}
