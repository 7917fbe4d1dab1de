package lightning

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

var invoicesIngested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bridge_ln_invoices_ingested_total",
	Help: "Total number of settled LN invoices journaled by the watcher.",
})

// Checkpoint names under which the invoice and payment stream indices are
// persisted via IngestUseCase.ResumeHeight/SaveHeight (spec §4.3 resume).
// HTLC forwards subscribe by wall-clock timestamp, not an index, so they
// have no analogous checkpoint.
const (
	invoiceIndexWatcher = "ln_invoices"
	paymentIndexWatcher = "ln_payments"
)

// Watcher subscribes to lnd's invoice, payment, and HTLC-forward streams
// concurrently and journals each into the C1 ingestion boundary, grounded
// on the withObsrvr pack's errgroup-supervised concurrent stream pattern.
type Watcher struct {
	client usecase.LightningClient
	ingest *usecase.IngestUseCase
	logger zerolog.Logger
}

// Config configures a Watcher.
type Config struct {
	Client usecase.LightningClient
	Ingest *usecase.IngestUseCase
	Logger zerolog.Logger
}

// NewWatcher creates a new Watcher.
func NewWatcher(cfg Config) *Watcher {
	return &Watcher{client: cfg.Client, ingest: cfg.Ingest, logger: cfg.Logger}
}

// Run subscribes to all three lnd streams and blocks until ctx is
// cancelled or any stream setup fails.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.watchInvoices(ctx) })
	g.Go(func() error { return w.watchPayments(ctx) })
	g.Go(func() error { return w.watchForwards(ctx) })

	return g.Wait()
}

func (w *Watcher) watchInvoices(ctx context.Context) error {
	addIndex, err := w.ingest.ResumeHeight(ctx, invoiceIndexWatcher)
	if err != nil {
		return err
	}

	updates, err := w.client.SubscribeInvoices(ctx, uint64(addIndex))
	if err != nil {
		return err
	}
	for update := range updates {
		if update.State == "SETTLED" {
			payload, err := w.buildInvoicePayload(update)
			if err != nil {
				w.logger.Error().Err(err).Str("payment_hash", update.PaymentHash).Msg("ln watcher: decode invoice memo failed")
				continue
			}
			if err := w.ingest.Ingest(ctx, update.PaymentHash, domain.SourceLNInvoice, update.SettledAt, payload, nil); err != nil {
				w.logger.Error().Err(err).Str("payment_hash", update.PaymentHash).Msg("ln watcher: ingest invoice failed")
				continue
			}
			invoicesIngested.Inc()
		}

		if err := w.ingest.SaveHeight(ctx, invoiceIndexWatcher, int64(update.AddIndex)); err != nil {
			w.logger.Error().Err(err).Msg("ln watcher: save invoice add-index failed")
		}
	}
	return nil
}

// buildInvoicePayload normalizes a settled LNInvoiceUpdate into the exact
// JSON shape HandleLNInvoiceSettled decodes, recovering the beneficiary /
// keep-sats / delivery-address instructions the bridge embedded in the
// invoice's memo at creation time (domain.LNInvoiceMemo).
func (w *Watcher) buildInvoicePayload(update usecase.LNInvoiceUpdate) ([]byte, error) {
	instructions, err := domain.DecodeLNInvoiceMemo(update.Memo)
	if err != nil {
		return nil, err
	}
	return json.Marshal(usecase.LNInvoiceSettledPayload{
		PaymentHash:     update.PaymentHash,
		AmountMsat:      update.AmountMsat,
		Memo:            update.Memo,
		Beneficiary:     instructions.Beneficiary,
		KeepSats:        instructions.KeepSats,
		DeliveryAddress: instructions.DeliveryAddress,
	})
}

func (w *Watcher) watchPayments(ctx context.Context) error {
	creationIndex, err := w.ingest.ResumeHeight(ctx, paymentIndexWatcher)
	if err != nil {
		return err
	}

	updates, err := w.client.SubscribePayments(ctx, uint64(creationIndex))
	if err != nil {
		return err
	}
	for update := range updates {
		if update.Status == "SUCCEEDED" {
			payload, err := json.Marshal(update)
			if err != nil {
				w.logger.Error().Err(err).Msg("ln watcher: marshal payment update failed")
				continue
			}
			if err := w.ingest.Ingest(ctx, update.PaymentHash, domain.SourceLNPayment, time.Now().UTC(), payload, nil); err != nil {
				w.logger.Error().Err(err).Str("payment_hash", update.PaymentHash).Msg("ln watcher: ingest payment failed")
			}
		}

		if err := w.ingest.SaveHeight(ctx, paymentIndexWatcher, int64(update.CreationIndex)); err != nil {
			w.logger.Error().Err(err).Msg("ln watcher: save payment creation-index failed")
		}
	}
	return nil
}

func (w *Watcher) watchForwards(ctx context.Context) error {
	updates, err := w.client.SubscribeForwards(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	for update := range updates {
		payload, err := json.Marshal(update)
		if err != nil {
			w.logger.Error().Err(err).Msg("ln watcher: marshal forward event failed")
			continue
		}
		groupID := update.Timestamp.Format(time.RFC3339Nano)
		if err := w.ingest.Ingest(ctx, groupID, domain.SourceLNForward, update.Timestamp, payload, nil); err != nil {
			w.logger.Error().Err(err).Msg("ln watcher: ingest forward event failed")
		}
	}
	return nil
}
