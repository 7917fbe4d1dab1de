package handler

import (
	"net/http"

	"github.com/v4vapp/bridge/internal/adapter/http/dto"
	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// PolicyHandler exposes the typed, validated operator policy (spec §9
// "Dynamic-config objects").
type PolicyHandler struct {
	policy *usecase.PolicyUseCase
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policy *usecase.PolicyUseCase) *PolicyHandler {
	return &PolicyHandler{policy: policy}
}

// Get handles GET /policy, returning the currently cached policy.
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.policy.Current(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "policy load failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toPolicyResponse(p))
}

// Reload handles POST /policy/reload, forcing a fresh fetch from the
// policy's source of truth, bypassing the refresh interval.
func (h *PolicyHandler) Reload(w http.ResponseWriter, r *http.Request) {
	p, err := h.policy.Reload(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "policy reload failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toPolicyResponse(p))
}

func toPolicyResponse(p *domain.Policy) dto.PolicyResponse {
	return dto.PolicyResponse{
		HiveReturnFee:        p.HiveReturnFee.String(),
		ConvFeePercent:       p.ConvFeePercent.String(),
		ConvFeeSats:          p.ConvFeeSats,
		StreamingFeePercent:  p.StreamingFeePercent.String(),
		MinInvoiceSats:       p.MinInvoiceSats,
		MaxInvoiceSats:       p.MaxInvoiceSats,
		MaxLNRoutingFeeMsats: p.MaxLNRoutingFeeMsats,
		GatewayHiveToLN:      p.GatewayHiveToLN,
		GatewayLNToHive:      p.GatewayLNToHive,
	}
}
