package domain

import "testing"

func TestNotifyByDefault(t *testing.T) {
	t.Parallel()

	t.Run("rebalance execution is notified by default", func(t *testing.T) {
		if !NotifyByDefault(EventTypeRebalanceExecuted) {
			t.Fatalf("expected rebalance.executed to notify by default")
		}
	})

	t.Run("routine ledger postings are not notified by default", func(t *testing.T) {
		if NotifyByDefault(EventTypeLedgerEntryPosted) {
			t.Fatalf("expected ledger_entry.posted not to notify by default")
		}
	})

	t.Run("accumulation steps are not notified by default", func(t *testing.T) {
		if NotifyByDefault(EventTypeRebalanceAccumulated) {
			t.Fatalf("expected rebalance.accumulated not to notify by default")
		}
	})

	t.Run("unrecognized event type is not notified", func(t *testing.T) {
		if NotifyByDefault("some.unknown.event") {
			t.Fatalf("expected unknown event type not to notify")
		}
	})
}
