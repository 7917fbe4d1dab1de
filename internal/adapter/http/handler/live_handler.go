package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/v4vapp/bridge/internal/adapter/http/dto"
	"github.com/v4vapp/bridge/internal/domain"
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler fans posted ledger entries out to connected admin observers,
// grounded on the pack's socketio.Hub client-map/broadcast shape, simplified
// to plain JSON frames over gorilla/websocket instead of Engine.IO framing.
type LiveHandler struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	logger  zerolog.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// Serve upgrades the request and registers the connection until it closes.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("live feed: upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard anything the client sends; this feed is read-only.
	// The loop's only purpose is to detect disconnects via read errors.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast implements usecase.EntryBroadcaster, pushing every connected
// client the posted entry as a JSON frame. A slow or dead client is dropped
// rather than allowed to stall the broadcast for everyone else.
func (h *LiveHandler) Broadcast(entry *domain.LedgerEntry) {
	event := dto.LiveEntryEvent{
		GroupID:    entry.GroupID,
		LedgerType: string(entry.LedgerType),
		Timestamp:  entry.Timestamp,
		DebitType:  string(entry.Debit.Type),
		DebitName:  entry.Debit.Name,
		CreditType: string(entry.Credit.Type),
		CreditName: entry.Credit.Name,
		Amount:     entry.Amount,
		Unit:       string(entry.Unit),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("live feed: marshal entry failed")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.Close()
		}
	}
}
