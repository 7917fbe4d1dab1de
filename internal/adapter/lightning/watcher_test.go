package lightning

import (
	"encoding/json"
	"testing"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// TestBuildInvoicePayloadMatchesHandlerContract guards against the watcher
// emitting a payload shape HandleLNInvoiceSettled can't decode: a raw
// json.Marshal of LNInvoiceUpdate has no beneficiary/keep_sats/
// delivery_address, which HandleLNInvoiceSettled requires.
func TestBuildInvoicePayloadMatchesHandlerContract(t *testing.T) {
	t.Parallel()
	w := &Watcher{}

	memo, err := domain.EncodeLNInvoiceMemo(domain.LNInvoiceMemo{
		Beneficiary: "alice", KeepSats: false, DeliveryAddress: "alice",
	})
	if err != nil {
		t.Fatalf("EncodeLNInvoiceMemo: %v", err)
	}

	update := usecase.LNInvoiceUpdate{
		PaymentHash: "h1", AmountMsat: 50000, Memo: memo, State: "SETTLED",
	}

	raw, err := w.buildInvoicePayload(update)
	if err != nil {
		t.Fatalf("buildInvoicePayload: %v", err)
	}

	var decoded usecase.LNInvoiceSettledPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload did not decode as LNInvoiceSettledPayload: %v", err)
	}
	if decoded.PaymentHash != "h1" || decoded.AmountMsat != 50000 {
		t.Fatalf("unexpected payment hash/amount: %+v", decoded)
	}
	if decoded.Beneficiary != "alice" || decoded.KeepSats || decoded.DeliveryAddress != "alice" {
		t.Fatalf("unexpected decoded delivery instructions: %+v", decoded)
	}
}

func TestBuildInvoicePayloadRejectsUndecodableMemo(t *testing.T) {
	t.Parallel()
	w := &Watcher{}

	_, err := w.buildInvoicePayload(usecase.LNInvoiceUpdate{PaymentHash: "h2", Memo: "not json"})
	if err == nil {
		t.Fatal("expected an error decoding a non-JSON memo")
	}
}
