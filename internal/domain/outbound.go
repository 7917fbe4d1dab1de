package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Outbound on-chain custom-message kinds, distinguished by the message id
// suffix (spec §6). Prefix is "v4vapp" in production, "v4vapp_dev" in dev
// mode (see infrastructure/config for the switch).
const (
	OutboundKindTransfer      = "_transfer"
	OutboundKindNotification  = "_notification"
)

// OutboundTransfer carries a user->server, user->user, or server->user
// value flow embedded in an on-chain custom message.
type OutboundTransfer struct {
	FromAccount    string           `json:"from_account"`
	ToAccount      string           `json:"to_account,omitempty"`
	Memo           string           `json:"memo"`
	Sats           *int64           `json:"sats,omitempty"`
	Msats          *int64           `json:"msats,omitempty"`
	Hive           *decimal.Decimal `json:"hive,omitempty"`
	HBD            *decimal.Decimal `json:"hbd,omitempty"`
	InvoiceMessage string           `json:"invoice_message,omitempty"`
}

// OutboundNotification is informational only; the watcher that later sees
// it must never act on it, only correlate via ParentGroupID.
type OutboundNotification struct {
	FromAccount   string `json:"from_account"`
	ToAccount     string `json:"to_account"`
	Memo          string `json:"memo"`
	Msats         int64  `json:"msats"`
	ParentGroupID string `json:"parent_group_id"`
	Notification  bool   `json:"notification"`
}

// MessageID returns the full custom-message id for a given environment prefix.
func MessageID(prefix, kind string) string {
	return prefix + kind
}

// EncodeOutboundTransfer serializes t for the custom-message payload field.
func EncodeOutboundTransfer(t OutboundTransfer) ([]byte, error) {
	return json.Marshal(t)
}

// DecodeOutboundTransfer is the inverse of EncodeOutboundTransfer.
func DecodeOutboundTransfer(data []byte) (OutboundTransfer, error) {
	var t OutboundTransfer
	err := json.Unmarshal(data, &t)
	return t, err
}

// EncodeOutboundNotification serializes n for the custom-message payload field.
func EncodeOutboundNotification(n OutboundNotification) ([]byte, error) {
	return json.Marshal(n)
}

// DecodeOutboundNotification is the inverse of EncodeOutboundNotification.
func DecodeOutboundNotification(data []byte) (OutboundNotification, error) {
	var n OutboundNotification
	err := json.Unmarshal(data, &n)
	return n, err
}

// LNInvoiceMemo carries the F2 delivery instructions the bridge embeds in
// an invoice it creates for a user (spec §4.5 F2). The Lightning node's
// Memo field is a free-form string; the bridge owns both ends (it issues
// the invoice and later decodes the settlement event), so it is encoded
// as JSON rather than a human-readable convention.
type LNInvoiceMemo struct {
	Beneficiary     string `json:"beneficiary"`
	KeepSats        bool   `json:"keep_sats"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

// EncodeLNInvoiceMemo serializes m for use as an AddInvoice memo argument.
func EncodeLNInvoiceMemo(m LNInvoiceMemo) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeLNInvoiceMemo is the inverse of EncodeLNInvoiceMemo, used by the
// Lightning watcher when an invoice settles.
func DecodeLNInvoiceMemo(memo string) (LNInvoiceMemo, error) {
	var m LNInvoiceMemo
	err := json.Unmarshal([]byte(memo), &m)
	return m, err
}
