package domain

import "testing"

func TestCounterpartyIsBlacklisted(t *testing.T) {
	t.Parallel()

	t.Run("nil counterparty is not blacklisted", func(t *testing.T) {
		var c *Counterparty
		if c.IsBlacklisted() {
			t.Fatalf("expected nil counterparty to not be blacklisted")
		}
	})

	t.Run("allowed status is not blacklisted", func(t *testing.T) {
		c := &Counterparty{Status: CounterpartyStatusAllowed}
		if c.IsBlacklisted() {
			t.Fatalf("expected allowed status to not be blacklisted")
		}
	})

	t.Run("blacklisted status is blacklisted", func(t *testing.T) {
		c := &Counterparty{Status: CounterpartyStatusBlacklisted}
		if !c.IsBlacklisted() {
			t.Fatalf("expected blacklisted status to be blacklisted")
		}
	})
}
