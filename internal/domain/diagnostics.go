package domain

import "time"

// DiagnosticStatus indicates whether a single startup check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusWarn DiagnosticStatus = "warn"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem is one startup check result with optional hint.
type DiagnosticItem struct {
	ID      string
	Name    string
	Status  DiagnosticStatus
	Message string
	Hint    string
}

// DiagnosticReport aggregates the checks that run before a batch starts.
type DiagnosticReport struct {
	GeneratedAt time.Time
	HasFailures bool
	Items       []DiagnosticItem
}
