package hive

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// TestBuildPayloadMatchesHandlerContract guards against the watcher
// emitting a payload shape the conversion handlers can't decode: a raw
// json.Marshal of HiveOp uses Go's default PascalCase field names, while
// ConversionUseCase.HandleHiveTransfer expects usecase.HiveTransferPayload's
// snake_case tags.
func TestBuildPayloadMatchesHandlerContract(t *testing.T) {
	t.Parallel()
	w := &Watcher{}

	t.Run("hive transfer in HIVE", func(t *testing.T) {
		op := usecase.HiveOp{
			TxID: "tx1", Kind: domain.SourceHiveTransfer,
			From: "alice", To: "bridge.bot",
			AmountHIVE: decimal.NewFromInt(10), Memo: "lnbc1x",
		}
		raw, err := w.buildPayload(op)
		if err != nil {
			t.Fatalf("buildPayload: %v", err)
		}

		var decoded usecase.HiveTransferPayload
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("payload did not decode as HiveTransferPayload: %v", err)
		}
		if decoded.From != "alice" || decoded.To != "bridge.bot" {
			t.Fatalf("unexpected decoded from/to: %+v", decoded)
		}
		if decoded.Unit != domain.UnitHIVE || !decoded.Amount.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("expected 10 HIVE, got %s %s", decoded.Amount, decoded.Unit)
		}
		if decoded.Memo != "lnbc1x" {
			t.Fatalf("expected memo to round trip, got %q", decoded.Memo)
		}
	})

	t.Run("hive transfer in HBD", func(t *testing.T) {
		op := usecase.HiveOp{
			TxID: "tx2", Kind: domain.SourceHiveTransfer,
			From: "alice", To: "bridge.bot",
			AmountHBD: decimal.NewFromInt(5),
		}
		raw, err := w.buildPayload(op)
		if err != nil {
			t.Fatalf("buildPayload: %v", err)
		}

		var decoded usecase.HiveTransferPayload
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("payload did not decode as HiveTransferPayload: %v", err)
		}
		if decoded.Unit != domain.UnitHBD || !decoded.Amount.Equal(decimal.NewFromInt(5)) {
			t.Fatalf("expected 5 HBD, got %s %s", decoded.Amount, decoded.Unit)
		}
	})

	t.Run("custom message passes the on-chain JSON through unchanged", func(t *testing.T) {
		custom := []byte(`{"from":"alice","to":"bob","amount_msats":1000,"memo":"hi"}`)
		op := usecase.HiveOp{Kind: domain.SourceHiveCustomMessage, CustomJSON: custom}

		raw, err := w.buildPayload(op)
		if err != nil {
			t.Fatalf("buildPayload: %v", err)
		}

		var decoded usecase.HiveCustomMessagePayload
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("payload did not decode as HiveCustomMessagePayload: %v", err)
		}
		if decoded.From != "alice" || decoded.To != "bob" || decoded.AmountMsats != 1000 {
			t.Fatalf("unexpected decoded payload: %+v", decoded)
		}
	})

	t.Run("informational kinds keep the raw op marshal", func(t *testing.T) {
		op := usecase.HiveOp{Kind: domain.SourceHiveWitnessReward, Witness: "alice"}
		raw, err := w.buildPayload(op)
		if err != nil {
			t.Fatalf("buildPayload: %v", err)
		}
		var decoded usecase.HiveOp
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("expected raw op marshal for informational kind: %v", err)
		}
		if decoded.Witness != "alice" {
			t.Fatalf("unexpected decoded op: %+v", decoded)
		}
	})
}
