package domain

import (
	"fmt"
	"time"
)

// SourceKind identifies which ingestion boundary produced a TrackedOp.
type SourceKind string

const (
	SourceHiveTransfer      SourceKind = "HiveTransfer"
	SourceHiveCustomMessage SourceKind = "HiveCustomMessage"
	SourceHiveWitnessReward SourceKind = "HiveWitnessReward"
	SourceHiveLimitOrder    SourceKind = "HiveLimitOrder"
	SourceLNInvoice         SourceKind = "LNInvoice"
	SourceLNPayment         SourceKind = "LNPayment"
	SourceLNForward         SourceKind = "LNForward"
)

// TrackedOpState is a node in the monotonic state machine of a TrackedOp.
type TrackedOpState string

const (
	StateIngested  TrackedOpState = "Ingested"
	StateRouted    TrackedOpState = "Routed"
	StateProcessed TrackedOpState = "Processed"
	StateFailed    TrackedOpState = "Failed"
	StateSkipped   TrackedOpState = "Skipped"
)

var allowedTransitions = map[TrackedOpState]map[TrackedOpState]bool{
	StateIngested: {StateRouted: true},
	StateRouted:   {StateProcessed: true, StateFailed: true, StateSkipped: true},
}

// ErrInvalidStateTransition is returned when a TrackedOp attempts a
// transition outside {Ingested -> Routed -> (Processed|Failed|Skipped)}.
var ErrInvalidStateTransition = fmt.Errorf("tracked op: invalid state transition")

// ErrDuplicateTrackedOp is returned by TrackedOpRepository.Create when the
// (group_id, source_kind) unique index already holds a row; watchers treat
// this as a successful no-op replay rather than an error (spec §5).
var ErrDuplicateTrackedOp = fmt.Errorf("tracked op: duplicate group_id/source_kind")

// TrackedOp is the canonical envelope crossing the ingestion boundary (C1).
// Payload is opaque JSON, discriminated by SourceKind; handlers decode it
// into the concrete shape they expect.
type TrackedOp struct {
	GroupID           string
	ShortID           string
	SourceKind        SourceKind
	SourceTimestamp   time.Time
	IngestedTimestamp time.Time
	State             TrackedOpState
	Payload           []byte
	ParentGroupID     *string
	ProcessTime       *time.Duration
	LastError         *string
}

// NewTrackedOp creates a TrackedOp in the Ingested state.
func NewTrackedOp(groupID, shortID string, kind SourceKind, sourceTS time.Time, payload []byte, parentGroupID *string) *TrackedOp {
	return &TrackedOp{
		GroupID:           groupID,
		ShortID:           shortID,
		SourceKind:        kind,
		SourceTimestamp:   sourceTS,
		IngestedTimestamp: time.Now().UTC(),
		State:             StateIngested,
		Payload:           payload,
		ParentGroupID:     parentGroupID,
	}
}

// TransitionTo moves the op to next, enforcing the allowed-transitions graph.
// Once Processed, Payload must not be mutated by callers (enforced by
// convention at the usecase layer, not by this type).
func (t *TrackedOp) TransitionTo(next TrackedOpState) error {
	if !allowedTransitions[t.State][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, t.State, next)
	}
	t.State = next
	return nil
}

// MarkProcessed transitions to Processed and records the handling duration.
func (t *TrackedOp) MarkProcessed(d time.Duration) error {
	if err := t.TransitionTo(StateProcessed); err != nil {
		return err
	}
	t.ProcessTime = &d
	return nil
}

// MarkFailed transitions to Failed, preserving the error for operator review.
func (t *TrackedOp) MarkFailed(errMsg string) error {
	if err := t.TransitionTo(StateFailed); err != nil {
		return err
	}
	t.LastError = &errMsg
	return nil
}

// MarkSkipped transitions to Skipped with a human-readable reason.
func (t *TrackedOp) MarkSkipped(reason string) error {
	if err := t.TransitionTo(StateSkipped); err != nil {
		return err
	}
	t.LastError = &reason
	return nil
}
