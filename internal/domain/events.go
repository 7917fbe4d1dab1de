package domain

import "time"

// Event types published through the outbox.
const (
	EventTypeTrackedOpIngested    = "tracked_op.ingested"
	EventTypeTrackedOpProcessed   = "tracked_op.processed"
	EventTypeLedgerEntryPosted    = "ledger_entry.posted"
	EventTypeRebalanceExecuted    = "rebalance.executed"
	EventTypeRebalanceAccumulated = "rebalance.accumulated"
)

// Aggregate types.
const (
	AggregateTypeTrackedOp        = "tracked_op"
	AggregateTypeLedgerEntry      = "ledger_entry"
	AggregateTypePendingRebalance = "pending_rebalance"
)

// OutboxEvent represents an event to be published by the eventpublisher.
// Notify marks events the eventpublisher should additionally hand to the
// C9 chat dispatcher, not just the log sink (spec §4.9).
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
	Notify        bool
}

// NotifyByDefault reports whether an event type should be chat-notified
// absent an explicit override by the caller constructing the event.
// Routine ledger postings and accumulation steps are too frequent to page
// anyone about; an executed rebalance trade is the only event type pushed
// by default.
func NotifyByDefault(eventType string) bool {
	switch eventType {
	case EventTypeRebalanceExecuted:
		return true
	default:
		return false
	}
}

// TrackedOpIngestedEvent payload.
type TrackedOpIngestedEvent struct {
	GroupID    string `json:"group_id"`
	SourceKind string `json:"source_kind"`
	IngestedAt string `json:"ingested_at"`
}

// TrackedOpProcessedEvent payload.
type TrackedOpProcessedEvent struct {
	GroupID     string `json:"group_id"`
	Outcome     string `json:"outcome"`
	ProcessedAt string `json:"processed_at"`
}

// LedgerEntryPostedEvent payload.
type LedgerEntryPostedEvent struct {
	GroupID    string `json:"group_id"`
	LedgerType string `json:"ledger_type"`
	Amount     int64  `json:"amount"`
	Unit       string `json:"unit"`
}

// RebalanceExecutedEvent payload.
type RebalanceExecutedEvent struct {
	BaseAsset     string `json:"base_asset"`
	QuoteAsset    string `json:"quote_asset"`
	FilledQty     string `json:"filled_qty"`
	QuoteReceived string `json:"quote_received"`
}

// RebalanceAccumulatedEvent payload.
type RebalanceAccumulatedEvent struct {
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	PendingQty string `json:"pending_qty"`
}
