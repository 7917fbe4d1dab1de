package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/domain"
)

// TrackedOpRepository defines data access for the event envelope journal (C1).
type TrackedOpRepository interface {
	Create(ctx context.Context, op *domain.TrackedOp) error
	GetByGroupID(ctx context.Context, groupID string) (*domain.TrackedOp, error)
	ListByState(ctx context.Context, state domain.TrackedOpState, limit int) ([]*domain.TrackedOp, error)
	UpdateState(ctx context.Context, op *domain.TrackedOp) error
	LastPersistedHeight(ctx context.Context, watcher string) (int64, error)
	SavePersistedHeight(ctx context.Context, watcher string, height int64) error
	// InProgressMsats sums the msats-equivalent value of non-terminal
	// TrackedOps (Ingested or Routed) that name account as their F2/F3
	// beneficiary, for the "in_progress_msats" balance field (spec §3, §4.7)
	// that must never be cached — always a fresh query.
	InProgressMsats(ctx context.Context, account domain.AccountTuple) (int64, error)
}

// AccountTotals carries the summed debit/credit amount for one unit, used
// by the ledger consistency check (spec §8 property 1).
type AccountTotals struct {
	Debits  int64
	Credits int64
}

// LedgerRepository defines data access for ledger entries (C6).
type LedgerRepository interface {
	Post(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	ExistsForGroupAndType(ctx context.Context, groupID string, ledgerType domain.LedgerType) (bool, error)
	Balance(ctx context.Context, account domain.AccountTuple, asOf *time.Time) (*domain.LedgerAccountDetails, error)
	ListAccounts(ctx context.Context) ([]domain.AccountTuple, error)
	CheckConsistency(ctx context.Context) (map[domain.Unit]AccountTotals, error)
}

// RebalanceRepository defines data access for PendingRebalance rows (C8).
type RebalanceRepository interface {
	GetOrCreate(ctx context.Context, tx Transaction, base, quote, exchange string, direction domain.RebalanceDirection) (*domain.PendingRebalance, error)
	SaveIfUnchanged(ctx context.Context, tx Transaction, p *domain.PendingRebalance) error
	RecordResult(ctx context.Context, tx Transaction, result *domain.RebalanceResult) error
	ListPending(ctx context.Context) ([]*domain.PendingRebalance, error)
}

// ErrorCodeRepository defines data access for recurring-error deduplication.
type ErrorCodeRepository interface {
	Get(ctx context.Context, code, machineID string) (*domain.ErrorCode, error)
	Upsert(ctx context.Context, ec *domain.ErrorCode) error
}

// RatesRepository defines access to the cross-currency rate time series.
type RatesRepository interface {
	Latest(ctx context.Context) (domain.ConvSnapshot, error)
	Record(ctx context.Context, at time.Time, conv domain.ConvSnapshot) error
}

// CounterpartyRepository defines data access for the whitelist/blacklist.
type CounterpartyRepository interface {
	Get(ctx context.Context, name string) (*domain.Counterparty, error)
	Upsert(ctx context.Context, c *domain.Counterparty) error
}

// PolicyRepository loads the live operator policy blob.
type PolicyRepository interface {
	LoadRawPolicy(ctx context.Context) (map[string]any, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier wraps an operation with retry-with-backoff on transient infra
// errors (spec §7 "Transient infrastructure").
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates short, human-readable ids (ULID-backed).
type IDGenerator interface {
	Generate() string
}

// GroupIDGenerator mints stable group ids (UUID-backed) when a watcher has
// no natural deterministic identifier to derive one from.
type GroupIDGenerator interface {
	NewGroupID() string
}

// Cache defines the C7 balance-cache operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// IncrGeneration atomically bumps the ledger's generation counter and
	// returns the new value (spec §4.7).
	IncrGeneration(ctx context.Context) (int64, error)
	// Generation returns the current generation without mutating it.
	Generation(ctx context.Context) (int64, error)
}

// IdempotencyStore handles idempotency key storage, a secondary guard
// alongside the document-store unique index (spec §5).
type IdempotencyStore interface {
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// HiveClient is the minimal surface the Hive watcher needs from the chain
// client library (wire protocol itself is a Non-goal, delegated).
type HiveClient interface {
	HeadBlockHeight(ctx context.Context) (int64, error)
	GetBlock(ctx context.Context, height int64) (*HiveBlock, error)
	SendCustomMessage(ctx context.Context, account, id string, payload []byte) (txID string, err error)
	SendTransfer(ctx context.Context, from, to string, amount decimal.Decimal, unit domain.Unit, memo string) (txID string, err error)
	GetAccountMetadata(ctx context.Context, account string) (map[string]any, error)
}

// HiveBlock is the minimal decoded shape the watcher needs per block.
type HiveBlock struct {
	Height    int64
	Timestamp time.Time
	Ops       []HiveOp
}

// HiveOp is one normalized operation inside a block relevant to the bridge.
type HiveOp struct {
	TxID       string
	OpIndex    int
	Kind       domain.SourceKind
	From       string
	To         string
	AmountHIVE decimal.Decimal
	AmountHBD  decimal.Decimal
	Memo       string
	CustomID   string
	CustomJSON []byte
	Witness    string
}

// LightningClient is the minimal surface the LN watcher and conversion
// engine need. Interface shape grounded on the pack's lnd client adapters;
// invoice-request parsing beyond amount/payment-hash is delegated (Non-goal).
type LightningClient interface {
	SubscribeInvoices(ctx context.Context, sinceAddIndex uint64) (<-chan LNInvoiceUpdate, error)
	SubscribePayments(ctx context.Context, sinceCreationIndex uint64) (<-chan LNPaymentUpdate, error)
	SubscribeForwards(ctx context.Context, sinceTimestamp time.Time) (<-chan LNForwardEvent, error)
	AddInvoice(ctx context.Context, amountMsat int64, memo string) (paymentRequest string, paymentHash string, err error)
	PayInvoice(ctx context.Context, paymentRequest string, maxFeeMsat int64) (*LNPaymentResult, error)
	DecodePayReq(ctx context.Context, paymentRequest string) (*LNPayReqInfo, error)
}

// LNInvoiceUpdate is a normalized invoice state-change event.
type LNInvoiceUpdate struct {
	AddIndex    uint64
	PaymentHash string
	AmountMsat  int64
	Memo        string
	State       string // OPEN, SETTLED, CANCELED, ACCEPTED
	SettledAt   time.Time
}

// LNPaymentUpdate is a normalized payment state-change event.
type LNPaymentUpdate struct {
	CreationIndex uint64
	PaymentHash   string
	ValueMsat     int64
	FeeMsat       int64
	Status        string // SUCCEEDED, FAILED, IN_FLIGHT
}

// LNForwardEvent is a normalized HTLC-forward event.
type LNForwardEvent struct {
	Timestamp  time.Time
	AmountMsat int64
	FeeMsat    int64
}

// LNPaymentResult is the outcome of PayInvoice.
type LNPaymentResult struct {
	PaymentHash string
	ValueMsat   int64
	FeeMsat     int64
	Status      string
	FailureMsg  string
}

// LNPayReqInfo is the minimal decode of a BOLT-11 invoice the engine needs.
type LNPayReqInfo struct {
	AmountMsat  int64
	PaymentHash string
	Destination string
}

// LightningAddressResolver turns a lightning-address (user@host) into a
// payable BOLT-11 invoice for a given amount, via the target's well-known
// LNURL-pay endpoint (spec §9 "Lightning-address resolution").
type LightningAddressResolver interface {
	ResolveInvoice(ctx context.Context, address string, amountMsat int64, comment string) (paymentRequest string, err error)
}

// ExchangeClient is the spot market_sell/market_buy port the rebalancer
// depends on (spec §6).
type ExchangeClient interface {
	MarketSell(ctx context.Context, pair string, qty decimal.Decimal, clientID string) (*ExchangeFill, error)
	MarketBuy(ctx context.Context, pair string, quoteQty decimal.Decimal, clientID string) (*ExchangeFill, error)
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetMinOrderRequirements(ctx context.Context, pair string) (minQty, minNotional decimal.Decimal, err error)
	GetPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// ExchangeFill is the normalized result of a market order.
type ExchangeFill struct {
	FilledQty     decimal.Decimal
	QuoteReceived decimal.Decimal
	AvgPrice      decimal.Decimal
	Fee           decimal.Decimal
}

// QuoteAcceptClient is the alternative three-step exchange protocol (spec §6).
type QuoteAcceptClient interface {
	RequestQuote(ctx context.Context, pair string, qty decimal.Decimal, side string) (quoteID string, rate decimal.Decimal, expiresAt time.Time, err error)
	AcceptQuote(ctx context.Context, quoteID string) error
	PollStatus(ctx context.Context, quoteID string) (*ExchangeFill, bool, error)
}

// Notifier is the C9 dispatch surface invoked from log hooks and usecases.
type Notifier interface {
	Notify(ctx context.Context, msg NotificationMessage)
}

// NotificationMessage is one candidate outbound chat message.
type NotificationMessage struct {
	Text      string
	Severity  string
	Component string
	ExtraBots []string
	Notify    bool
}
