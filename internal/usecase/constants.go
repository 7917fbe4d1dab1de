package usecase

import "time"

const (
	// DefaultTransactionTimeout / DevModeTransactionTimeout are the
	// document-store transaction bounds for normal and dev mode (spec §5).
	// No transaction in the module applies either one, and DEV_MODE does
	// not select between them.
	DefaultTransactionTimeout = 10 * time.Second
	DevModeTransactionTimeout = 10 * time.Minute

	// HiveRPCTimeout / LNUnaryTimeout / ExchangeRESTTimeout mirror the
	// per-call deadlines of spec §5.
	HiveRPCTimeout       = 10 * time.Second
	LNUnaryTimeout       = 30 * time.Second
	LNStreamLivenessPing = 30 * time.Second
	ExchangeRESTTimeout  = 15 * time.Second
	NotifyConnectTimeout = 10 * time.Second
	NotifyReadTimeout    = 30 * time.Second

	// HiveCatchUpThreshold is the lag beyond which the Hive watcher switches
	// to bulk catch-up mode (spec §4.2).
	HiveCatchUpThreshold = 2 * time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached.
	IdempotencyKeyTTL = 24 * time.Hour

	// BalanceCacheTTLLive / BalanceCacheTTLHistorical match spec §4.7.
	BalanceCacheTTLLive       = 60 * time.Second
	BalanceCacheTTLHistorical = 300 * time.Second

	// BalanceAdjustmentMarker is the fixed, case-sensitive memo substring
	// that triggers the F4 backdoor (spec §4.5, open question #2: matching
	// stays case-sensitive and exact).
	BalanceAdjustmentMarker = "Balance adjustment"

	// NotificationRateLimitMax / Window enforce spec §4.9 / §8 property 7.
	NotificationRateLimitMax    = 5
	NotificationRateLimitWindow = 60 * time.Second

	// NotificationMaxLength truncates outbound messages per spec §4.9.
	NotificationMaxLength = 300

	// NotificationMaxRetries / SignatureTailLength match spec §4.9.
	NotificationMaxRetries    = 3
	NotificationSignatureTail = 20

	// DefaultReAlertInterval mirrors domain.DefaultReAlertInterval for
	// callers that only import usecase.
	DefaultReAlertInterval = time.Hour
)
