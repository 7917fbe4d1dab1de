// Package dto holds the wire shapes for the admin-only read/ops HTTP
// surface (spec §3), kept separate from domain types so a storage or
// API change never forces the other to move.
package dto

import "time"

// ErrorResponse is the uniform error body (spec §3).
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse is the response body for GET
// /api/v1/accounts/{type}/{name}/{sub}/balance.
type BalanceResponse struct {
	AccountType     string           `json:"account_type"`
	AccountName     string           `json:"account_name"`
	AccountSub      string           `json:"account_sub,omitempty"`
	PerUnitTotals   map[string]int64 `json:"per_unit_totals"`
	InProgressMsats int64            `json:"in_progress_msats"`
	AsOf            *time.Time       `json:"as_of,omitempty"`
}

// TrackedOpResponse is one row of GET /api/v1/tracked-ops.
type TrackedOpResponse struct {
	GroupID           string     `json:"group_id"`
	ShortID           string     `json:"short_id"`
	SourceKind        string     `json:"source_kind"`
	SourceTimestamp   time.Time  `json:"source_timestamp"`
	IngestedTimestamp time.Time  `json:"ingested_timestamp"`
	State             string     `json:"state"`
	ParentGroupID     *string    `json:"parent_group_id,omitempty"`
	ProcessTimeMs     *int64     `json:"process_time_ms,omitempty"`
	LastError         *string    `json:"last_error,omitempty"`
}

// PendingRebalanceResponse is one row of GET /api/v1/pending-rebalances.
type PendingRebalanceResponse struct {
	ID                   string   `json:"id"`
	BaseAsset            string   `json:"base_asset"`
	QuoteAsset           string   `json:"quote_asset"`
	Exchange             string   `json:"exchange"`
	Direction            string   `json:"direction"`
	PendingQty           string   `json:"pending_qty"`
	PendingQuoteValue    string   `json:"pending_quote_value"`
	MinQtyThreshold      string   `json:"min_qty_threshold"`
	MinNotionalThreshold string   `json:"min_notional_threshold"`
	TransactionCount     int      `json:"transaction_count"`
	TotalExecutedQty     string   `json:"total_executed_qty"`
	ExecutionCount       int      `json:"execution_count"`
	Version              int64    `json:"version"`
	Eligible             bool     `json:"eligible"`
}

// PolicyResponse is the typed policy blob returned by GET /api/v1/policy.
type PolicyResponse struct {
	HiveReturnFee        string `json:"hive_return_fee"`
	ConvFeePercent       string `json:"conv_fee_percent"`
	ConvFeeSats          int64  `json:"conv_fee_sats"`
	StreamingFeePercent  string `json:"streaming_fee_percent"`
	MinInvoiceSats       int64  `json:"min_invoice_sats"`
	MaxInvoiceSats       int64  `json:"max_invoice_sats"`
	MaxLNRoutingFeeMsats int64  `json:"max_ln_routing_fee_msats"`
	GatewayHiveToLN      bool   `json:"gateway_hive_to_ln"`
	GatewayLNToHive      bool   `json:"gateway_ln_to_hive"`
}

// LiveEntryEvent is one message pushed over the /api/v1/live websocket feed,
// one per posted ledger entry (spec §3 supplement).
type LiveEntryEvent struct {
	GroupID    string    `json:"group_id"`
	LedgerType string    `json:"ledger_type"`
	Timestamp  time.Time `json:"timestamp"`
	DebitType  string    `json:"debit_type"`
	DebitName  string    `json:"debit_name"`
	CreditType string    `json:"credit_type"`
	CreditName string    `json:"credit_name"`
	Amount     int64     `json:"amount"`
	Unit       string    `json:"unit"`
}
