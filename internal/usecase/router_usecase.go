package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// routeBatchSize bounds how many Ingested ops a single RouteOnce call
// drains, so one call cannot starve the process of responsiveness to
// shutdown signals.
const routeBatchSize = 50

// RouterUseCase is the single-writer consumer of spec §4.4: it reads
// TrackedOps in Ingested state, marks them Routed, dispatches to exactly
// one C5 handler based on source_kind + payload shape, and records the
// handler's Outcome back onto the TrackedOp.
type RouterUseCase struct {
	repo       TrackedOpRepository
	conversion *ConversionUseCase
}

// NewRouterUseCase creates a new RouterUseCase.
func NewRouterUseCase(repo TrackedOpRepository, conversion *ConversionUseCase) *RouterUseCase {
	return &RouterUseCase{repo: repo, conversion: conversion}
}

// RouteOnce drains up to routeBatchSize Ingested ops, in source-timestamp
// order, and returns how many were routed. Callers (cmd/server's router
// loop) call this on a ticker.
func (uc *RouterUseCase) RouteOnce(ctx context.Context) (int, error) {
	ops, err := uc.repo.ListByState(ctx, domain.StateIngested, routeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list ingested ops: %w", err)
	}

	for _, op := range ops {
		if err := uc.routeOne(ctx, op); err != nil {
			return 0, fmt.Errorf("route %s: %w", op.GroupID, err)
		}
	}

	return len(ops), nil
}

func (uc *RouterUseCase) routeOne(ctx context.Context, op *domain.TrackedOp) error {
	if err := op.TransitionTo(domain.StateRouted); err != nil {
		return err
	}
	if err := uc.repo.UpdateState(ctx, op); err != nil {
		return err
	}

	start := time.Now()
	outcome := uc.dispatch(ctx, op)
	elapsed := time.Since(start)

	switch outcome.Kind {
	case domain.OutcomeProcessed, domain.OutcomeRefunded:
		if err := op.MarkProcessed(elapsed); err != nil {
			return err
		}
	case domain.OutcomeSkipped:
		if err := op.MarkSkipped(outcome.Reason); err != nil {
			return err
		}
	case domain.OutcomeFailed:
		errMsg := "unknown error"
		if outcome.Err != nil {
			errMsg = outcome.Err.Error()
		}
		if err := op.MarkFailed(errMsg); err != nil {
			return err
		}
	default:
		if err := op.MarkFailed(fmt.Sprintf("unhandled outcome kind %q", outcome.Kind)); err != nil {
			return err
		}
	}

	return uc.repo.UpdateState(ctx, op)
}

// dispatch picks exactly one C5 handler based on source_kind. Payload-level
// discrimination (e.g. distinguishing F1 from F4 within HiveTransfer) is
// delegated to the handler itself, which has the typed payload.
func (uc *RouterUseCase) dispatch(ctx context.Context, op *domain.TrackedOp) domain.Outcome {
	switch op.SourceKind {
	case domain.SourceHiveTransfer:
		return uc.conversion.HandleHiveTransfer(ctx, op)
	case domain.SourceHiveCustomMessage:
		return uc.conversion.HandleHiveCustomMessage(ctx, op)
	case domain.SourceLNInvoice:
		return uc.conversion.HandleLNInvoiceSettled(ctx, op)
	case domain.SourceHiveWitnessReward, domain.SourceHiveLimitOrder, domain.SourceLNPayment, domain.SourceLNForward:
		// Observed and journaled for the admin UI / audit trail, but no
		// conversion flow acts on them directly (spec §4.5 names only
		// F1-F4; these source kinds feed reporting, not conversion).
		return domain.Skipped(fmt.Sprintf("%s is informational only", op.SourceKind))
	default:
		return domain.Failed(fmt.Errorf("unrecognized source_kind %q", op.SourceKind))
	}
}
