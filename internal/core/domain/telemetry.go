package domain

import "strings"

// SiteStatus represents the lifecycle state of a call site during a resolution run.
type SiteStatus string

const (
	// SiteStatusPending indicates the site is waiting for a worker slot.
	SiteStatusPending SiteStatus = "pending"
	// SiteStatusRunning indicates the site is being resolved.
	SiteStatusRunning SiteStatus = "running"
	// SiteStatusResolved indicates the site produced a binding graph.
	SiteStatusResolved SiteStatus = "resolved"
	// SiteStatusFailed indicates the site produced a failure.
	SiteStatusFailed SiteStatus = "failed"
	// SiteStatusCanceled indicates the run was canceled before the site finished.
	SiteStatusCanceled SiteStatus = "canceled"
)

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s SiteStatus) IsTerminal() bool {
	switch s {
	case SiteStatusResolved, SiteStatusFailed, SiteStatusCanceled:
		return true
	default:
		return false
	}
}

// NormalizeSiteStatus converts a string to a SiteStatus, defaulting to pending if unknown.
func NormalizeSiteStatus(s string) SiteStatus {
	switch st := SiteStatus(strings.ToLower(s)); st {
	case SiteStatusRunning, SiteStatusResolved, SiteStatusFailed, SiteStatusCanceled:
		return st
	default:
		return SiteStatusPending
	}
}
