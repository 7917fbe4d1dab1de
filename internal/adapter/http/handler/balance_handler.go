package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/v4vapp/bridge/internal/adapter/http/dto"
	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// BalanceHandler exposes the C6/C7 read path: current and historical
// per-account balances (spec §4.6, §4.7).
type BalanceHandler struct {
	ledger *usecase.LedgerUseCase
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(ledger *usecase.LedgerUseCase) *BalanceHandler {
	return &BalanceHandler{ledger: ledger}
}

// Get handles GET /accounts/{type}/{name}/{sub}/balance. An optional
// ?as_of=<RFC3339> query parameter requests the historical balance as of
// that timestamp instead of the live total.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := domain.AccountTuple{
		Type: domain.AccountType(chi.URLParam(r, "type")),
		Name: chi.URLParam(r, "name"),
		Sub:  chi.URLParam(r, "sub"),
	}

	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
			return
		}
		asOf = &t
	}

	details, err := h.ledger.Balance(r.Context(), account, asOf)
	if err != nil {
		writeError(w, mapDomainError(err), "balance lookup failed", err.Error())
		return
	}

	totals := make(map[string]int64, len(details.PerUnitTotals))
	for unit, amount := range details.PerUnitTotals {
		totals[string(unit)] = amount
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		AccountType:     string(account.Type),
		AccountName:     account.Name,
		AccountSub:      account.Sub,
		PerUnitTotals:   totals,
		InProgressMsats: details.InProgressMsats,
		AsOf:            asOf,
	})
}
