package handler

import (
	"net/http"

	"github.com/v4vapp/bridge/internal/adapter/http/dto"
	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// TrackedOpHandler exposes the C1 journal for operator inspection.
type TrackedOpHandler struct {
	ingest *usecase.IngestUseCase
}

// NewTrackedOpHandler creates a new TrackedOpHandler.
func NewTrackedOpHandler(ingest *usecase.IngestUseCase) *TrackedOpHandler {
	return &TrackedOpHandler{ingest: ingest}
}

// List handles GET /tracked-ops?state=Ingested&limit=50. An empty/missing
// state defaults to Ingested, the state an operator most often wants to
// triage (stuck events that never reached Routed).
func (h *TrackedOpHandler) List(w http.ResponseWriter, r *http.Request) {
	state := domain.TrackedOpState(r.URL.Query().Get("state"))
	if state == "" {
		state = domain.StateIngested
	}
	limit := parseIntQuery(r, "limit", 50)

	ops, err := h.ingest.ListByState(r.Context(), state, limit)
	if err != nil {
		writeError(w, mapDomainError(err), "list tracked ops failed", err.Error())
		return
	}

	resp := make([]dto.TrackedOpResponse, 0, len(ops))
	for _, op := range ops {
		var processMs *int64
		if op.ProcessTime != nil {
			ms := op.ProcessTime.Milliseconds()
			processMs = &ms
		}
		resp = append(resp, dto.TrackedOpResponse{
			GroupID:           op.GroupID,
			ShortID:           op.ShortID,
			SourceKind:        string(op.SourceKind),
			SourceTimestamp:   op.SourceTimestamp,
			IngestedTimestamp: op.IngestedTimestamp,
			State:             string(op.State),
			ParentGroupID:     op.ParentGroupID,
			ProcessTimeMs:     processMs,
			LastError:         op.LastError,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
