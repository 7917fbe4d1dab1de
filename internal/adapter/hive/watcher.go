package hive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

const watcherName = "hive"

var (
	watchedHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_hive_watcher_height",
		Help: "Last block height processed by the Hive watcher.",
	})
	watcherLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_hive_watcher_lag_blocks",
		Help: "Blocks between chain head and the last processed height.",
	})
)

// Watcher polls the Hive chain for new blocks, normalizes the operations
// the bridge cares about, and journals them via the ingest usecase. It
// runs in catch-up mode on startup, replaying from the last checkpoint
// until it reaches chain head, then settles into a steady poll (spec §4.2),
// grounded on the teacher's eventpublisher ticker loop.
type Watcher struct {
	client      usecase.HiveClient
	ingest      *usecase.IngestUseCase
	pollEvery   time.Duration
	logger      zerolog.Logger
}

// Config configures a Watcher.
type Config struct {
	Client    usecase.HiveClient
	Ingest    *usecase.IngestUseCase
	PollEvery time.Duration
	Logger    zerolog.Logger
}

// NewWatcher creates a new Watcher.
func NewWatcher(cfg Config) *Watcher {
	if cfg.PollEvery == 0 {
		cfg.PollEvery = 3 * time.Second
	}
	return &Watcher{
		client:    cfg.Client,
		ingest:    cfg.Ingest,
		pollEvery: cfg.PollEvery,
		logger:    cfg.Logger,
	}
}

// Run blocks until ctx is cancelled, processing blocks one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	height, err := w.ingest.ResumeHeight(ctx, watcherName)
	if err != nil {
		return err
	}
	if height == 0 {
		head, err := w.client.HeadBlockHeight(ctx)
		if err != nil {
			return err
		}
		height = head
	}

	w.logger.Info().Int64("height", height).Msg("hive watcher starting")

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		if err := w.catchUp(ctx, &height); err != nil {
			w.logger.Error().Err(err).Msg("hive watcher catch-up failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// catchUp processes every block from height+1 up to current chain head
// before returning, so a restarted watcher replays its backlog quickly
// instead of one block per poll tick.
func (w *Watcher) catchUp(ctx context.Context, height *int64) error {
	head, err := w.client.HeadBlockHeight(ctx)
	if err != nil {
		return err
	}
	watcherLag.Set(float64(head - *height))

	for next := *height + 1; next <= head; next++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		block, err := w.client.GetBlock(ctx, next)
		if err != nil {
			return err
		}
		if err := w.processBlock(ctx, block); err != nil {
			return err
		}

		*height = next
		watchedHeight.Set(float64(next))
		if err := w.ingest.SaveHeight(ctx, watcherName, next); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) processBlock(ctx context.Context, block *usecase.HiveBlock) error {
	for _, op := range block.Ops {
		payload, err := w.buildPayload(op)
		if err != nil {
			return err
		}

		groupID := op.TxID
		if groupID == "" {
			groupID = fmt.Sprintf("hive-%d-%d", block.Height, op.OpIndex)
		}

		if err := w.ingest.Ingest(ctx, groupID, op.Kind, block.Timestamp, payload, nil); err != nil {
			return err
		}
	}
	return nil
}

// buildPayload normalizes a raw HiveOp into the exact JSON shape the C5
// conversion handler for its SourceKind decodes (spec §4.2: watchers
// "normalize source events"). Kinds no handler ever decodes (witness
// rewards, limit orders) keep the raw op marshal, since they're routed to
// an informational skip that never unmarshals the payload.
func (w *Watcher) buildPayload(op usecase.HiveOp) ([]byte, error) {
	switch op.Kind {
	case domain.SourceHiveTransfer:
		amount, unit := op.AmountHIVE, domain.UnitHIVE
		if op.AmountHBD.IsPositive() {
			amount, unit = op.AmountHBD, domain.UnitHBD
		}
		return json.Marshal(usecase.HiveTransferPayload{
			TxID: op.TxID, From: op.From, To: op.To,
			Amount: amount, Unit: unit, Memo: op.Memo,
		})
	case domain.SourceHiveCustomMessage:
		// The on-chain custom-message JSON (spec §4.5 F3 wire format:
		// {from, to, amount_msats, memo}) already matches
		// usecase.HiveCustomMessagePayload's shape; pass it through as-is.
		return op.CustomJSON, nil
	default:
		return json.Marshal(op)
	}
}
