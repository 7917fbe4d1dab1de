package handler

import (
	"net/http"

	"github.com/v4vapp/bridge/internal/adapter/http/dto"
	"github.com/v4vapp/bridge/internal/usecase"
)

// RebalanceHandler exposes the C8 accumulator pool for operator inspection.
type RebalanceHandler struct {
	rebalance *usecase.RebalanceUseCase
}

// NewRebalanceHandler creates a new RebalanceHandler.
func NewRebalanceHandler(rebalance *usecase.RebalanceUseCase) *RebalanceHandler {
	return &RebalanceHandler{rebalance: rebalance}
}

// List handles GET /pending-rebalances.
func (h *RebalanceHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rebalance.ListPending(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "list pending rebalances failed", err.Error())
		return
	}

	resp := make([]dto.PendingRebalanceResponse, 0, len(rows))
	for _, p := range rows {
		resp = append(resp, dto.PendingRebalanceResponse{
			ID:                   p.ID,
			BaseAsset:            p.BaseAsset,
			QuoteAsset:           p.QuoteAsset,
			Exchange:             p.Exchange,
			Direction:            string(p.Direction),
			PendingQty:           p.PendingQty.String(),
			PendingQuoteValue:    p.PendingQuoteValue.String(),
			MinQtyThreshold:      p.MinQtyThreshold.String(),
			MinNotionalThreshold: p.MinNotionalThreshold.String(),
			TransactionCount:     p.TransactionCount,
			TotalExecutedQty:     p.TotalExecutedQty.String(),
			ExecutionCount:       p.ExecutionCount,
			Version:              p.Version,
			Eligible:             p.Eligible(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
