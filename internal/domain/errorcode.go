package domain

import (
	"errors"
	"time"
)

// ErrErrorCodeNotFound is returned when no ErrorCode row exists yet for a
// given (code, machine_id) pair.
var ErrErrorCodeNotFound = errors.New("error code not found")

// ErrorCode is a deduplication key for recurring error events (spec §3),
// grounded on the Python original's error_code_manager.
type ErrorCode struct {
	Code            string
	Message         string
	StartTime       time.Time
	LastLogTime     time.Time
	ReAlertInterval time.Duration
	Active          bool
	ClearedAt       *time.Time
	MachineID       string
}

// DefaultReAlertInterval matches the operator-visible default in spec §7.
const DefaultReAlertInterval = time.Hour

// ShouldSuppress reports whether a repeat occurrence at now should be
// swallowed by the logging pipeline rather than re-alerted.
func (e *ErrorCode) ShouldSuppress(now time.Time) bool {
	return e.Active && now.Sub(e.LastLogTime) < e.ReAlertInterval
}

// Clear marks the error resolved; a later recurrence starts a fresh cycle.
func (e *ErrorCode) Clear(at time.Time) {
	e.Active = false
	e.ClearedAt = &at
}

// Recur refreshes LastLogTime on an already-active code, or reactivates a
// cleared one (a code reappearing after clear is itself a notable event).
func (e *ErrorCode) Recur(at time.Time) (reactivated bool) {
	reactivated = !e.Active
	e.Active = true
	e.LastLogTime = at
	e.ClearedAt = nil
	return reactivated
}
