package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is a compliance/debug trail entry. Actor is "system" for
// automated conversions/rebalances, or an operator identifier for manual
// admin actions (policy reload, balance adjustment acknowledgement).
type AuditLog struct {
	ID           string
	Actor        string
	Action       AuditAction
	ResourceType string // tracked_op, ledger_entry, pending_rebalance, policy
	ResourceID   string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       AuditStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data.
type JSON map[string]any

// AuditAction enumerates auditable actions in the bridge domain.
type AuditAction string

const (
	AuditActionTrackedOpRoute       AuditAction = "tracked_op.route"
	AuditActionLedgerEntryPost      AuditAction = "ledger_entry.post"
	AuditActionRebalanceAccumulate  AuditAction = "rebalance.accumulate"
	AuditActionRebalanceExecute     AuditAction = "rebalance.execute"
	AuditActionPolicyReload         AuditAction = "policy.reload"
	AuditActionBalanceAdjustmentAck AuditAction = "balance_adjustment.ack"
)

// AuditStatus represents the status of an audited action.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// MarshalState converts a domain object to JSON for audit logging.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs.
type AuditFilter struct {
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
