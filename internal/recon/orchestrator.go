package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/reconciler/internal/store"
	"github.com/tournevent/reconciler/internal/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunSummary is the aggregate outcome of one reconciliation run. Results
// holds one entry per eligible order, successes and failures alike.
type RunSummary struct {
	Processed int      `json:"processed"`
	Results   []Result `json:"updates"`
}

// Orchestrator runs reconciliation over the full set of eligible orders
// with bounded concurrency.
type Orchestrator struct {
	store       Store
	reconciler  *Reconciler
	logger      *otelzap.Logger
	metrics     *telemetry.Metrics
	concurrency int
}

// NewOrchestrator creates a batch orchestrator. concurrency bounds the
// number of orders reconciled in parallel; values below one mean eight.
func NewOrchestrator(st Store, reconciler *Reconciler, logger *otelzap.Logger, metrics *telemetry.Metrics, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 8
	}
	return &Orchestrator{
		store:       st,
		reconciler:  reconciler,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Run reconciles every eligible order. The only batch-fatal error is
// failing to load the eligible set; per-order failures are folded into the
// summary.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	started := time.Now()
	ctx, span := otel.Tracer("recon").Start(ctx, "reconciliation.run")
	defer span.End()

	orders, err := o.store.EligibleOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("selecting eligible orders: %w", err)
	}
	span.SetAttributes(attribute.Int("recon.eligible_orders", len(orders)))

	o.logger.Ctx(ctx).Info("Starting reconciliation run",
		zap.Int("eligible_orders", len(orders)),
		zap.Int("concurrency", o.concurrency),
	)

	results := make([]Result, len(orders))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.concurrency)

	for i, order := range orders {
		i, order := i, order
		group.Go(func() error {
			results[i] = o.reconciler.Reconcile(groupCtx, order)
			return nil
		})
	}
	// Workers never return errors; Wait only orders the result writes.
	_ = group.Wait()

	summary := &RunSummary{
		Processed: len(results),
		Results:   results,
	}

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}

	elapsed := time.Since(started)
	o.metrics.RecordRun(elapsed.Seconds(), len(orders))
	o.logger.Ctx(ctx).Info("Reconciliation run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", summary.Processed-succeeded),
		zap.Duration("elapsed", elapsed),
	)
	return summary, nil
}

// ensure the gorm store keeps satisfying the reconciler contract.
var _ Store = (*store.Store)(nil)
