package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMessageID(t *testing.T) {
	t.Parallel()

	if got := MessageID("v4vapp", OutboundKindTransfer); got != "v4vapp_transfer" {
		t.Fatalf("expected v4vapp_transfer, got %s", got)
	}
	if got := MessageID("v4vapp_dev", OutboundKindNotification); got != "v4vapp_dev_notification" {
		t.Fatalf("expected v4vapp_dev_notification, got %s", got)
	}
}

func TestEncodeDecodeOutboundTransfer(t *testing.T) {
	t.Parallel()

	sats := int64(1000)
	hive := decimal.NewFromInt(5)
	original := OutboundTransfer{
		FromAccount: "alice", ToAccount: "bridge.bot", Memo: "deposit",
		Sats: &sats, Hive: &hive,
	}

	encoded, err := EncodeOutboundTransfer(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeOutboundTransfer(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.FromAccount != original.FromAccount || decoded.ToAccount != original.ToAccount {
		t.Fatalf("expected round trip to preserve accounts, got %+v", decoded)
	}
	if decoded.Sats == nil || *decoded.Sats != sats {
		t.Fatalf("expected sats to round trip, got %+v", decoded.Sats)
	}
	if decoded.Hive == nil || !decoded.Hive.Equal(hive) {
		t.Fatalf("expected hive amount to round trip, got %+v", decoded.Hive)
	}
}

func TestEncodeDecodeOutboundNotification(t *testing.T) {
	t.Parallel()

	original := OutboundNotification{
		FromAccount: "bridge.bot", ToAccount: "alice", Memo: "refused",
		Msats: 5000, ParentGroupID: "g1", Notification: true,
	}

	encoded, err := EncodeOutboundNotification(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeOutboundNotification(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != original {
		t.Fatalf("expected round trip to preserve value, got %+v want %+v", decoded, original)
	}
}

func TestEncodeDecodeLNInvoiceMemo(t *testing.T) {
	t.Parallel()

	original := LNInvoiceMemo{
		Beneficiary:     "alice",
		KeepSats:        true,
		DeliveryAddress: "alice-hive",
	}

	encoded, err := EncodeLNInvoiceMemo(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeLNInvoiceMemo(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != original {
		t.Fatalf("expected round trip to preserve value, got %+v want %+v", decoded, original)
	}
}

func TestDecodeLNInvoiceMemoRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodeLNInvoiceMemo("not json"); err == nil {
		t.Fatalf("expected an error decoding a non-JSON memo")
	}
}
