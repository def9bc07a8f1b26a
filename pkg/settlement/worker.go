// Package settlement runs the background loop that drives accepted transfers
// through the lifecycle: promoting policy-approved rows into the settlement
// queue and completing transfers whose source transaction has reached
// finality. It only calls the controller's public Advance entry point; the
// transition table stays the single authority on legal state changes.
package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/proof"
	"github.com/norchain/bridge-middleware/pkg/transfer"
)

// batchSize bounds how many transfers one sweep picks up per status.
const batchSize = 100

// Store is the read-side the worker needs: the oldest transfers per status.
type Store interface {
	ListByStatus(ctx context.Context, status transfer.Status, limit int) ([]*transfer.Transfer, error)
}

// Advancer is the controller's state-advance entry point.
type Advancer interface {
	Advance(ctx context.Context, transferID string, next transfer.Status, ev transfer.Evidence) error
}

// Finality grades a source transaction against its chain's head.
type Finality interface {
	FinalityByTx(ctx context.Context, c chain.Chain, txHash string) (chain.FinalityStatus, error)
}

// Config drives the worker loop.
type Config struct {
	Interval     time.Duration `mapstructure:"interval"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
}

// Worker sweeps the transfer store on a fixed interval.
type Worker struct {
	store    Store
	advancer Advancer
	oracle   Finality
	issuer   proof.Issuer
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration

	inFlight prometheus.Gauge

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a settlement worker. registerer may be nil to disable metrics.
func New(
	store Store,
	advancer Advancer,
	oracle Finality,
	issuer proof.Issuer,
	cfg Config,
	registerer prometheus.Registerer,
	logger *zap.Logger,
) *Worker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := cfg.SweepTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	w := &Worker{
		store:    store,
		advancer: advancer,
		oracle:   oracle,
		issuer:   issuer,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}

	w.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bridge",
		Subsystem: "settlement",
		Name:      "in_flight_transfers",
		Help:      "Transfers currently between acceptance and completion, sampled per sweep and capped at the sweep batch size per status.",
	})
	if registerer != nil {
		registerer.MustRegister(w.inFlight)
	}

	return w
}

// Start launches the periodic sweep loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("Started settlement worker", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
				w.Sweep(ctx)
				cancel()
			case <-w.stopCh:
				w.logger.Info("Stopping settlement worker")
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for the current sweep to finish. It is
// safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Sweep runs one pass: promote policy-approved transfers into the settlement
// queue, then complete processing transfers whose source transaction is
// final. Errors on individual transfers are logged and skipped; the next
// sweep retries them.
func (w *Worker) Sweep(ctx context.Context) {
	w.promoteAccepted(ctx)
	w.settleProcessing(ctx)
	w.trackInFlight(ctx)
}

// promoteAccepted hands policy-approved transfers to the settlement queue.
func (w *Worker) promoteAccepted(ctx context.Context) {
	accepted, err := w.store.ListByStatus(ctx, transfer.StatusPendingPolicy, batchSize)
	if err != nil {
		w.logger.Error("Failed to list policy-approved transfers", zap.Error(err))
		return
	}

	for _, t := range accepted {
		if err := w.advancer.Advance(ctx, t.ID, transfer.StatusPending, transfer.Evidence{}); err != nil {
			w.logger.Error("Failed to promote transfer",
				zap.String("transfer_id", t.ID),
				zap.Error(err))
		}
	}
}

// settleProcessing checks finality for every processing transfer with an
// observed source transaction, issues the proof on Final, and completes it.
func (w *Worker) settleProcessing(ctx context.Context) {
	processing, err := w.store.ListByStatus(ctx, transfer.StatusProcessing, batchSize)
	if err != nil {
		w.logger.Error("Failed to list processing transfers", zap.Error(err))
		return
	}

	for _, t := range processing {
		// No source transaction observed yet; custody has not broadcast.
		if t.SrcTxHash == "" {
			continue
		}

		status, err := w.oracle.FinalityByTx(ctx, t.SrcChain, t.SrcTxHash)
		if err != nil {
			// Transient; the next sweep retries.
			w.logger.Warn("Finality check failed",
				zap.String("transfer_id", t.ID),
				zap.String("src_chain", t.SrcChain.String()),
				zap.Error(err))
			continue
		}
		if !status.Final() {
			continue
		}

		issued, err := w.issuer.Issue(ctx, t.SrcChain, t.SrcTxHash, status.BlockNumber)
		if err != nil {
			w.logger.Error("Proof issuance failed",
				zap.String("transfer_id", t.ID),
				zap.Error(err))
			continue
		}

		if err := w.advancer.Advance(ctx, t.ID, transfer.StatusCompleted, transfer.Evidence{Proof: issued}); err != nil {
			w.logger.Error("Failed to complete transfer",
				zap.String("transfer_id", t.ID),
				zap.Error(err))
			continue
		}

		w.logger.Info("Transfer settled",
			zap.String("transfer_id", t.ID),
			zap.Uint64("block_number", status.BlockNumber))
	}
}

func (w *Worker) trackInFlight(ctx context.Context) {
	var inFlight int
	for _, status := range []transfer.Status{transfer.StatusPending, transfer.StatusProcessing} {
		items, err := w.store.ListByStatus(ctx, status, batchSize)
		if err != nil {
			return
		}
		inFlight += len(items)
	}
	w.inFlight.Set(float64(inFlight))
}
