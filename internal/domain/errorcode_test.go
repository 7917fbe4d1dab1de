package domain

import (
	"testing"
	"time"
)

func TestErrorCodeShouldSuppress(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("active and within interval suppresses", func(t *testing.T) {
		e := &ErrorCode{Active: true, LastLogTime: base, ReAlertInterval: time.Hour}
		if !e.ShouldSuppress(base.Add(30 * time.Minute)) {
			t.Fatalf("expected suppression within interval")
		}
	})

	t.Run("active but past interval does not suppress", func(t *testing.T) {
		e := &ErrorCode{Active: true, LastLogTime: base, ReAlertInterval: time.Hour}
		if e.ShouldSuppress(base.Add(2 * time.Hour)) {
			t.Fatalf("expected no suppression past interval")
		}
	})

	t.Run("inactive never suppresses", func(t *testing.T) {
		e := &ErrorCode{Active: false, LastLogTime: base, ReAlertInterval: time.Hour}
		if e.ShouldSuppress(base.Add(time.Minute)) {
			t.Fatalf("expected no suppression when inactive")
		}
	})
}

func TestErrorCodeClear(t *testing.T) {
	t.Parallel()

	e := &ErrorCode{Active: true}
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	e.Clear(at)

	if e.Active {
		t.Fatalf("expected Active false after Clear")
	}
	if e.ClearedAt == nil || !e.ClearedAt.Equal(at) {
		t.Fatalf("expected ClearedAt set to %v, got %v", at, e.ClearedAt)
	}
}

func TestErrorCodeRecur(t *testing.T) {
	t.Parallel()

	t.Run("recurring on an already-active code is not a reactivation", func(t *testing.T) {
		e := &ErrorCode{Active: true, LastLogTime: time.Unix(0, 0)}
		at := time.Unix(100, 0)
		if reactivated := e.Recur(at); reactivated {
			t.Fatalf("expected reactivated=false for already-active code")
		}
		if !e.LastLogTime.Equal(at) {
			t.Fatalf("expected LastLogTime refreshed to %v, got %v", at, e.LastLogTime)
		}
	})

	t.Run("recurring on a cleared code reactivates and clears ClearedAt", func(t *testing.T) {
		clearedAt := time.Unix(50, 0)
		e := &ErrorCode{Active: false, ClearedAt: &clearedAt}
		at := time.Unix(100, 0)
		if reactivated := e.Recur(at); !reactivated {
			t.Fatalf("expected reactivated=true for cleared code")
		}
		if !e.Active {
			t.Fatalf("expected Active true after Recur")
		}
		if e.ClearedAt != nil {
			t.Fatalf("expected ClearedAt nil after Recur, got %v", e.ClearedAt)
		}
	})
}
