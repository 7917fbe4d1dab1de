package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/domain"
)

// ConversionConfig names the fixed identities the conversion engine needs
// to build account tuples and recognize the operator backdoor (spec §4.5).
type ConversionConfig struct {
	ServerHiveAccount string // the Hive account the bridge itself controls
	ServerSub         string // sub-identity for Treasury Hive entries
	NodeName          string // sub-identity for LN Holdings entries
	OperatorAccount   string // the special account that can trigger F4
}

// HiveTransferPayload is the decoded shape of a TrackedOp whose SourceKind
// is HiveTransfer (C2 normalizes raw chain ops into this before handoff).
type HiveTransferPayload struct {
	TxID   string          `json:"tx_id"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Unit   domain.Unit     `json:"unit"`
	Memo   string          `json:"memo"`
}

// HiveCustomMessagePayload is the decoded shape for an internal-transfer
// signalling message (F3).
type HiveCustomMessagePayload struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountMsats int64  `json:"amount_msats"`
	Memo        string `json:"memo"`
}

// LNInvoiceSettledPayload is the decoded shape for a settled LN invoice
// (F2), as normalized by C3 from LNInvoiceUpdate.
type LNInvoiceSettledPayload struct {
	PaymentHash     string `json:"payment_hash"`
	AmountMsat      int64  `json:"amount_msat"`
	Memo            string `json:"memo"`
	Beneficiary     string `json:"beneficiary"`
	KeepSats        bool   `json:"keep_sats"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

// ConversionUseCase implements the four business flows of spec §4.5. Every
// handler is a pure function of the TrackedOp plus the current ledger: it
// must detect and no-op when the entries it would write already exist for
// the same group_id + ledger_type (enforced by LedgerUseCase.Post itself,
// via domain.ErrDuplicateEntry).
type ConversionUseCase struct {
	cfg ConversionConfig

	ledgerUC       *LedgerUseCase
	policyUC       *PolicyUseCase
	counterpartyUC *CounterpartyUseCase
	rebalanceUC    *RebalanceUseCase

	rates RatesRepository

	hive     HiveClient
	ln       LightningClient
	lnAddr   LightningAddressResolver
	txMgr    TransactionManager
	idGen    IDGenerator
	auditLog AuditRepository
}

// NewConversionUseCase creates a new ConversionUseCase.
func NewConversionUseCase(
	cfg ConversionConfig,
	ledgerUC *LedgerUseCase,
	policyUC *PolicyUseCase,
	counterpartyUC *CounterpartyUseCase,
	rebalanceUC *RebalanceUseCase,
	rates RatesRepository,
	hive HiveClient,
	ln LightningClient,
	lnAddr LightningAddressResolver,
	txMgr TransactionManager,
	idGen IDGenerator,
	auditLog AuditRepository,
) *ConversionUseCase {
	return &ConversionUseCase{
		cfg:            cfg,
		ledgerUC:       ledgerUC,
		policyUC:       policyUC,
		counterpartyUC: counterpartyUC,
		rebalanceUC:    rebalanceUC,
		rates:          rates,
		hive:           hive,
		ln:             ln,
		lnAddr:         lnAddr,
		txMgr:          txMgr,
		idGen:          idGen,
		auditLog:       auditLog,
	}
}

// accounts used throughout the four flows.
func (uc *ConversionUseCase) treasuryHive() domain.AccountTuple {
	return domain.AccountTuple{Type: domain.AccountAsset, Name: "Treasury Hive", Sub: uc.cfg.ServerSub}
}

func (uc *ConversionUseCase) lnHoldings() domain.AccountTuple {
	return domain.AccountTuple{Type: domain.AccountAsset, Name: "LN Holdings", Sub: uc.cfg.NodeName}
}

func (uc *ConversionUseCase) externalLNPayments() domain.AccountTuple {
	return domain.AccountTuple{Type: domain.AccountAsset, Name: "External LN Payments"}
}

func (uc *ConversionUseCase) userBalance(name string) domain.AccountTuple {
	return domain.AccountTuple{Type: domain.AccountLiability, Name: "User Balance", Sub: name}
}

func (uc *ConversionUseCase) conversionFeeRevenue() domain.AccountTuple {
	return domain.AccountTuple{Type: domain.AccountRevenue, Name: "Conversion Fees"}
}

func (uc *ConversionUseCase) lnRoutingFeeExpense() domain.AccountTuple {
	return domain.AccountTuple{Type: domain.AccountExpense, Name: "LN Routing Fees"}
}

// HandleHiveTransfer dispatches an inbound on-chain transfer to F1, F3 (the
// custom-message variant is handled separately by HandleHiveCustomMessage),
// or F4 based on memo shape and destination account, per the router's
// payload-discrimination rule (spec §4.4).
func (uc *ConversionUseCase) HandleHiveTransfer(ctx context.Context, op *domain.TrackedOp) domain.Outcome {
	var payload HiveTransferPayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return domain.Failed(fmt.Errorf("decode hive transfer payload: %w", err))
	}

	if payload.To == uc.cfg.OperatorAccount && strings.Contains(payload.Memo, BalanceAdjustmentMarker) {
		return uc.handleF4BalanceAdjustment(ctx, op, payload)
	}

	if payload.To != uc.cfg.ServerHiveAccount {
		return domain.Skipped("transfer not addressed to the bridge account")
	}

	return uc.handleF1DepositToLightning(ctx, op, payload)
}

// handleF4BalanceAdjustment implements the manual-reconciliation backdoor:
// log and acknowledge, but post no ledger entry (spec §4.5 F4).
func (uc *ConversionUseCase) handleF4BalanceAdjustment(ctx context.Context, op *domain.TrackedOp, payload HiveTransferPayload) domain.Outcome {
	blacklisted, err := uc.counterpartyUC.IsBlacklisted(ctx, payload.From)
	if err != nil {
		return domain.Failed(err)
	}
	if blacklisted {
		return domain.Skipped("sender is blacklisted")
	}

	if uc.auditLog != nil {
		_ = uc.auditLog.Create(ctx, &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Actor:        "system",
			Action:       domain.AuditActionBalanceAdjustmentAck,
			ResourceType: "tracked_op",
			ResourceID:   op.GroupID,
			AfterState:   domain.MarshalState(payload),
			Status:       domain.AuditStatusSuccess,
			CreatedAt:    time.Now().UTC(),
		})
	}

	return domain.Processed()
}

// handleF1DepositToLightning implements F1: on-chain deposit -> outbound
// Lightning payment (spec §4.5 F1).
func (uc *ConversionUseCase) handleF1DepositToLightning(ctx context.Context, op *domain.TrackedOp, payload HiveTransferPayload) domain.Outcome {
	policy, err := uc.policyUC.Current(ctx)
	if err != nil {
		return domain.Failed(fmt.Errorf("load policy: %w", err))
	}
	if !policy.GatewayHiveToLN {
		return domain.Skipped("hive-to-ln gateway disabled")
	}

	blacklisted, err := uc.counterpartyUC.IsBlacklisted(ctx, payload.From)
	if err != nil {
		return domain.Failed(err)
	}
	if blacklisted {
		return domain.Skipped("sender is blacklisted")
	}

	dest, kind := classifyOutboundMemo(payload.Memo)
	if kind == destinationKindNone {
		return domain.Skipped("memo carries no invoice, lightning-address, or unit flag")
	}

	conv, err := uc.rates.Latest(ctx)
	if err != nil {
		return domain.Failed(fmt.Errorf("load rate snapshot: %w", err))
	}

	grossSats := hiveAmountToSats(payload.Amount, payload.Unit, conv)
	if err := domain.ValidateAmountSats(grossSats, policy.MinInvoiceSats, policy.MaxInvoiceSats); err != nil {
		return domain.Skipped(fmt.Sprintf("amount outside policy bounds: %v", err))
	}

	feeSats := applyConversionFee(grossSats, policy.ConvFeePercent, policy.ConvFeeSats)
	netSats := grossSats - feeSats
	if netSats <= 0 {
		return domain.Skipped("fee exceeds deposit value")
	}

	tx, err := uc.txMgr.Begin(ctx)
	if err != nil {
		return domain.Failed(err)
	}
	defer tx.Rollback(ctx)

	amountSmallestUnit := payload.Amount.Shift(3).IntPart()
	entries := []*domain.LedgerEntry{
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerDepositHive,
			Description: "customer on-chain deposit", Timestamp: op.SourceTimestamp,
			Debit: uc.treasuryHive(), Credit: uc.userBalance(payload.From),
			Amount: amountSmallestUnit, Unit: payload.Unit, Conv: conv,
		},
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerConvHiveToSats,
			Description: "conversion to sats", Timestamp: op.SourceTimestamp,
			Debit: uc.userBalance(payload.From), Credit: uc.lnHoldings(),
			Amount: grossSats, Unit: domain.UnitMSATS, Conv: conv,
		},
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerFeeConversion,
			Description: "conversion fee", Timestamp: op.SourceTimestamp,
			Debit: uc.userBalance(payload.From), Credit: uc.conversionFeeRevenue(),
			Amount: feeSats, Unit: domain.UnitMSATS, Conv: conv,
		},
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerConvContra,
			Description: "conversion contra (offset gross HIVE/HBD leg)", Timestamp: op.SourceTimestamp,
			Debit: uc.userBalance(payload.From), Credit: uc.treasuryHive(),
			Amount: amountSmallestUnit, Unit: payload.Unit, Conv: conv,
		},
	}

	if err := uc.ledgerUC.PostAll(ctx, tx, entries); err != nil {
		return domain.Failed(fmt.Errorf("post deposit entries: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Failed(err)
	}

	paymentRequest, err := uc.resolveOutboundInvoice(ctx, dest, kind, netSats)
	if err != nil {
		return uc.refundF1(ctx, op, payload, conv, fmt.Errorf("resolve invoice: %w", err))
	}

	result, err := uc.ln.PayInvoice(ctx, paymentRequest, policy.MaxLNRoutingFeeMsats)
	if err != nil || result.Status != "SUCCEEDED" {
		failMsg := "payment did not succeed"
		if err != nil {
			failMsg = err.Error()
		} else if result.FailureMsg != "" {
			failMsg = result.FailureMsg
		}
		return uc.refundF1(ctx, op, payload, conv, fmt.Errorf("ln payment failed: %s", failMsg))
	}

	payoutTx, err := uc.txMgr.Begin(ctx)
	if err != nil {
		return domain.Failed(err)
	}
	defer payoutTx.Rollback(ctx)

	payoutEntries := []*domain.LedgerEntry{
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerWithdrawLN,
			Description: "ln payout", Timestamp: time.Now().UTC(),
			Debit: uc.lnHoldings(), Credit: uc.externalLNPayments(),
			Amount: result.ValueMsat, Unit: domain.UnitMSATS, Conv: conv,
		},
	}
	if result.FeeMsat > 0 {
		payoutEntries = append(payoutEntries, &domain.LedgerEntry{
			GroupID: op.GroupID, LedgerType: domain.LedgerFeeLNRouting,
			Description: "ln routing fee", Timestamp: time.Now().UTC(),
			Debit: uc.lnRoutingFeeExpense(), Credit: uc.lnHoldings(),
			Amount: result.FeeMsat, Unit: domain.UnitMSATS, Conv: conv,
		})
	}

	if err := uc.ledgerUC.PostAll(ctx, payoutTx, payoutEntries); err != nil {
		return domain.Failed(fmt.Errorf("post payout entries: %w", err))
	}
	if err := payoutTx.Commit(ctx); err != nil {
		return domain.Failed(err)
	}

	if uc.rebalanceUC != nil {
		qty := payload.Amount
		quoteValue := decimal.NewFromInt(grossSats)
		uc.rebalanceUC.Accumulate(ctx, string(payload.Unit), "SATS", "default", domain.DirectionSellBaseForQuote, qty, quoteValue, op.GroupID)
	}

	return domain.Processed()
}

// refundF1 reverses the deposit's economic effect and returns the on-chain
// value to the sender via a new transfer keyed to the same group id.
func (uc *ConversionUseCase) refundF1(ctx context.Context, op *domain.TrackedOp, payload HiveTransferPayload, conv domain.ConvSnapshot, cause error) domain.Outcome {
	tx, err := uc.txMgr.Begin(ctx)
	if err != nil {
		return domain.Failed(fmt.Errorf("%v: %w", cause, err))
	}
	defer tx.Rollback(ctx)

	amountSmallestUnit := payload.Amount.Shift(3).IntPart()
	refund := &domain.LedgerEntry{
		GroupID: op.GroupID, LedgerType: domain.LedgerWithdrawHive,
		Description: "refund: " + cause.Error(), Timestamp: time.Now().UTC(),
		Debit: uc.userBalance(payload.From), Credit: uc.treasuryHive(),
		Amount: amountSmallestUnit, Unit: payload.Unit, Conv: conv,
	}
	if err := uc.ledgerUC.Post(ctx, tx, refund); err != nil {
		return domain.Failed(fmt.Errorf("post refund: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Failed(err)
	}

	if _, err := uc.hive.SendTransfer(ctx, uc.cfg.ServerHiveAccount, payload.From, payload.Amount, payload.Unit, "refund: "+op.GroupID); err != nil {
		return domain.Failed(fmt.Errorf("send refund transfer: %w", err))
	}

	return domain.Refunded()
}

func (uc *ConversionUseCase) resolveOutboundInvoice(ctx context.Context, dest string, kind destinationKind, amountSats int64) (string, error) {
	switch kind {
	case destinationKindBolt11:
		return dest, nil
	case destinationKindLightningAddress:
		if uc.lnAddr == nil {
			return "", fmt.Errorf("lightning-address resolution not configured")
		}
		return uc.lnAddr.ResolveInvoice(ctx, dest, amountSats*1000, "")
	default:
		return "", fmt.Errorf("unsupported destination kind")
	}
}

// HandleLNInvoiceSettled implements F2: inbound Lightning -> on-chain
// credit (spec §4.5 F2).
func (uc *ConversionUseCase) HandleLNInvoiceSettled(ctx context.Context, op *domain.TrackedOp) domain.Outcome {
	var payload LNInvoiceSettledPayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return domain.Failed(fmt.Errorf("decode ln invoice payload: %w", err))
	}

	policy, err := uc.policyUC.Current(ctx)
	if err != nil {
		return domain.Failed(fmt.Errorf("load policy: %w", err))
	}
	if !policy.GatewayLNToHive {
		return domain.Skipped("ln-to-hive gateway disabled")
	}

	conv, err := uc.rates.Latest(ctx)
	if err != nil {
		return domain.Failed(fmt.Errorf("load rate snapshot: %w", err))
	}

	feeSats := applyConversionFee(payload.AmountMsat, policy.ConvFeePercent, policy.ConvFeeSats)
	netMsat := payload.AmountMsat - feeSats

	tx, err := uc.txMgr.Begin(ctx)
	if err != nil {
		return domain.Failed(err)
	}
	defer tx.Rollback(ctx)

	entries := []*domain.LedgerEntry{
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerDepositLN,
			Description: "ln receipt (contra)", Timestamp: op.SourceTimestamp,
			Debit: uc.externalLNPayments(), Credit: uc.lnHoldings(),
			Amount: payload.AmountMsat, Unit: domain.UnitMSATS, Conv: conv,
		},
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerConvSatsToHive,
			Description: "credit user", Timestamp: op.SourceTimestamp,
			Debit: uc.lnHoldings(), Credit: uc.userBalance(payload.Beneficiary),
			Amount: payload.AmountMsat, Unit: domain.UnitMSATS, Conv: conv,
		},
		{
			GroupID: op.GroupID, LedgerType: domain.LedgerFeeConversion,
			Description: "conversion fee", Timestamp: op.SourceTimestamp,
			Debit: uc.userBalance(payload.Beneficiary), Credit: uc.conversionFeeRevenue(),
			Amount: feeSats, Unit: domain.UnitMSATS, Conv: conv,
		},
	}

	if !payload.KeepSats {
		hiveEquivalent := satsToHiveAmount(netMsat, conv)
		hiveSmallestUnit := hiveEquivalent.Shift(3).IntPart()
		entries = append(entries,
			&domain.LedgerEntry{
				GroupID: op.GroupID, LedgerType: domain.LedgerWithdrawHive,
				Description: "outbound on-chain delivery", Timestamp: time.Now().UTC(),
				Debit: uc.userBalance(payload.Beneficiary), Credit: uc.treasuryHive(),
				Amount: hiveSmallestUnit, Unit: domain.UnitHIVE, Conv: conv,
			},
			&domain.LedgerEntry{
				GroupID: op.GroupID, LedgerType: domain.LedgerReclassifyHive,
				Description: "delivery contra", Timestamp: time.Now().UTC(),
				Debit: uc.treasuryHive(), Credit: uc.userBalance(payload.Beneficiary),
				Amount: hiveSmallestUnit, Unit: domain.UnitHIVE, Conv: conv,
			},
		)
	}

	if err := uc.ledgerUC.PostAll(ctx, tx, entries); err != nil {
		return domain.Failed(fmt.Errorf("post credit entries: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Failed(err)
	}

	if !payload.KeepSats {
		hiveEquivalent := satsToHiveAmount(netMsat, conv)
		if _, err := uc.hive.SendTransfer(ctx, uc.cfg.ServerHiveAccount, payload.DeliveryAddress, hiveEquivalent, domain.UnitHIVE, op.GroupID); err != nil {
			return domain.Failed(fmt.Errorf("send delivery transfer: %w", err))
		}
	}

	if uc.rebalanceUC != nil {
		qty := decimal.NewFromInt(payload.AmountMsat)
		quoteValue := satsToHiveAmount(payload.AmountMsat, conv)
		uc.rebalanceUC.Accumulate(ctx, "SATS", "HIVE", "default", domain.DirectionBuyBaseWithQuote, qty, quoteValue, op.GroupID)
	}

	return domain.Processed()
}

// HandleHiveCustomMessage implements F3: a signed internal transfer
// between two registered user balances (spec §4.5 F3).
func (uc *ConversionUseCase) HandleHiveCustomMessage(ctx context.Context, op *domain.TrackedOp) domain.Outcome {
	var payload HiveCustomMessagePayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return domain.Failed(fmt.Errorf("decode custom message payload: %w", err))
	}

	if payload.AmountMsats <= 0 {
		return domain.Skipped("non-positive transfer amount")
	}

	blacklisted, err := uc.counterpartyUC.IsBlacklisted(ctx, payload.From)
	if err != nil {
		return domain.Failed(err)
	}
	if blacklisted {
		return domain.Skipped("sender is blacklisted")
	}

	senderBalance, err := uc.ledgerUC.Balance(ctx, uc.userBalance(payload.From), nil)
	if err != nil {
		return domain.Failed(fmt.Errorf("load sender balance: %w", err))
	}
	if senderBalance.PerUnitTotals[domain.UnitMSATS] < payload.AmountMsats {
		return uc.refuseF3(ctx, op, payload, "insufficient balance")
	}

	tx, err := uc.txMgr.Begin(ctx)
	if err != nil {
		return domain.Failed(err)
	}
	defer tx.Rollback(ctx)

	entry := &domain.LedgerEntry{
		GroupID: op.GroupID, LedgerType: domain.LedgerInternalTransfer,
		Description: "internal transfer", Timestamp: op.SourceTimestamp,
		Debit: uc.userBalance(payload.From), Credit: uc.userBalance(payload.To),
		Amount: payload.AmountMsats, Unit: domain.UnitMSATS,
	}
	if err := uc.ledgerUC.Post(ctx, tx, entry); err != nil {
		return domain.Failed(fmt.Errorf("post internal transfer: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Failed(err)
	}

	return domain.Processed()
}

// refuseF3 emits an outbound signalling custom-message back to the sender,
// linked via parent_group_id, and posts no ledger entry (spec §4.5 F3).
func (uc *ConversionUseCase) refuseF3(ctx context.Context, op *domain.TrackedOp, payload HiveCustomMessagePayload, reason string) domain.Outcome {
	notification := domain.OutboundNotification{
		FromAccount:   uc.cfg.ServerHiveAccount,
		ToAccount:     payload.From,
		Memo:          fmt.Sprintf("internal transfer refused: %s", reason),
		Msats:         payload.AmountMsats,
		ParentGroupID: op.GroupID,
		Notification:  true,
	}
	payload2, err := domain.EncodeOutboundNotification(notification)
	if err != nil {
		return domain.Failed(err)
	}
	if _, err := uc.hive.SendCustomMessage(ctx, uc.cfg.ServerHiveAccount, domain.MessageID("v4vapp", domain.OutboundKindNotification), payload2); err != nil {
		return domain.Failed(fmt.Errorf("send refusal notice: %w", err))
	}
	return domain.Skipped(reason)
}

// --- memo classification and rate-math helpers ---

type destinationKind int

const (
	destinationKindNone destinationKind = iota
	destinationKindBolt11
	destinationKindLightningAddress
)

// classifyOutboundMemo inspects a deposit memo for a BOLT-11 invoice, a
// lightning-address, or neither (spec §4.5 F1 precondition). Full BOLT-11
// grammar parsing is delegated (Non-goal); here only the "lnbc..." prefix
// is recognized.
func classifyOutboundMemo(memo string) (string, destinationKind) {
	memo = strings.TrimSpace(memo)
	lower := strings.ToLower(memo)
	if strings.HasPrefix(lower, "lnbc") {
		return memo, destinationKindBolt11
	}
	if at := strings.IndexByte(memo, '@'); at > 0 && strings.Contains(memo[at+1:], ".") {
		return memo, destinationKindLightningAddress
	}
	return "", destinationKindNone
}

// hiveAmountToSats converts an on-chain amount to its gross sats
// equivalent at the frozen rate snapshot (spec §9: conv snapshots are
// never re-derived after posting).
func hiveAmountToSats(amount decimal.Decimal, unit domain.Unit, conv domain.ConvSnapshot) int64 {
	switch unit {
	case domain.UnitHBD:
		if conv.HBD.IsZero() {
			return 0
		}
		return amount.Mul(conv.Msats).Div(conv.HBD).Div(decimal.NewFromInt(1000)).IntPart()
	default:
		if conv.Hive.IsZero() {
			return 0
		}
		return amount.Mul(conv.Msats).Div(conv.Hive).Div(decimal.NewFromInt(1000)).IntPart()
	}
}

// satsToHiveAmount converts an msats amount back to HIVE at the snapshot
// rate, for the F2 outbound delivery leg.
func satsToHiveAmount(amountMsat int64, conv domain.ConvSnapshot) decimal.Decimal {
	if conv.Msats.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(amountMsat).Mul(conv.Hive).Div(conv.Msats).Mul(decimal.NewFromInt(1000))
}

// applyConversionFee computes percent-of-gross plus a fixed component,
// rounding down to whole sats (spec §4.5: "percent × gross + fixed fee").
// Per DESIGN.md's open-question decision, the percentage is applied before
// the fixed sats component is added.
func applyConversionFee(grossSats int64, percent decimal.Decimal, fixedSats int64) int64 {
	pctFee := decimal.NewFromInt(grossSats).Mul(percent).Div(decimal.NewFromInt(100)).IntPart()
	return pctFee + fixedSats
}
