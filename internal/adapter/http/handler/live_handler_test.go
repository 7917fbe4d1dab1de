package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/v4vapp/bridge/internal/domain"
)

func TestLiveHandlerBroadcast(t *testing.T) {
	t.Parallel()

	h := NewLiveHandler(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial live feed: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the connection before broadcasting.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		n := len(h.clients)
		h.mu.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	entry := &domain.LedgerEntry{
		GroupID:    "g1",
		LedgerType: domain.LedgerDepositHive,
		Debit:      domain.AccountTuple{Type: domain.AccountAsset, Name: "hive_hot_wallet"},
		Credit:     domain.AccountTuple{Type: domain.AccountLiability, Name: "user", Sub: "alice"},
		Amount:     1000,
		Unit:       domain.UnitHIVE,
	}
	h.Broadcast(entry)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected to receive broadcast frame: %v", err)
	}
	if !strings.Contains(string(msg), "g1") {
		t.Fatalf("expected frame to contain group id, got %s", msg)
	}
}

func TestLiveHandlerBroadcastWithNoClients(t *testing.T) {
	t.Parallel()

	h := NewLiveHandler(zerolog.Nop())
	entry := &domain.LedgerEntry{
		GroupID:    "g1",
		LedgerType: domain.LedgerDepositHive,
		Debit:      domain.AccountTuple{Type: domain.AccountAsset, Name: "hive_hot_wallet"},
		Credit:     domain.AccountTuple{Type: domain.AccountLiability, Name: "user", Sub: "alice"},
		Amount:     1000,
		Unit:       domain.UnitHIVE,
	}

	// Must not panic when there are no connected observers.
	h.Broadcast(entry)
}
