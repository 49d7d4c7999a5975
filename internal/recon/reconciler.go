// Package recon implements the shipment-status reconciliation engine: it
// polls courier APIs for every shipped order, converges the platform's order
// lifecycle on what the carriers report, and restocks inventory on detected
// returns.
package recon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tournevent/reconciler/internal/store"
	"github.com/tournevent/reconciler/internal/telemetry"
	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// returnReason is the audit reason attached to automatic restocks.
const returnReason = "carrier-detected return"

// Store is the persistence surface the reconciler writes through. The
// gorm-backed store.Store satisfies it; tests use an in-memory fake.
type Store interface {
	EligibleOrders(ctx context.Context) ([]store.Order, error)
	CarrierCredential(ctx context.Context, tenantID uint, carrier string) (string, error)
	OrderStatus(ctx context.Context, orderID uint) (store.OrderStatus, error)
	AppendTrackingUpdate(ctx context.Context, update *store.TrackingUpdate) error
	ReplaceShipmentEvents(ctx context.Context, orderID uint, events []store.ShipmentEvent) error
	UpsertFinancialRecord(ctx context.Context, record *store.FinancialRecord) error
	AppendCourierDetail(ctx context.Context, detail *store.CourierDetail) error
	UpdateOrderStatus(ctx context.Context, orderID uint, status store.OrderStatus, deliveredAt *time.Time) error
	ApplyReturn(ctx context.Context, order *store.Order, reason string) error
}

// Result is the outcome of reconciling one order.
type Result struct {
	OrderID      uint              `json:"orderId"`
	OrderNumber  string            `json:"orderNumber,omitempty"`
	Success      bool              `json:"success"`
	NewStatus    store.OrderStatus `json:"newStatus,omitempty"`
	Error        string            `json:"error,omitempty"`
	EnhancedData bool              `json:"enhancedData,omitempty"`
	FallbackUsed bool              `json:"fallbackUsed,omitempty"`
}

// Reconciler drives the per-order reconciliation algorithm.
type Reconciler struct {
	store    Store
	registry *courier.Registry
	notifier Notifier
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	timeout  time.Duration
}

// NewReconciler creates a per-order reconciler. timeout bounds each carrier
// call; zero means 30s.
func NewReconciler(st Store, registry *courier.Registry, notifier Notifier, logger *otelzap.Logger, metrics *telemetry.Metrics, timeout time.Duration) *Reconciler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Reconciler{
		store:    st,
		registry: registry,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// Reconcile runs the full per-order algorithm. It never returns an error:
// every failure is folded into the Result so one order can never abort the
// batch.
func (r *Reconciler) Reconcile(ctx context.Context, order store.Order) Result {
	result := Result{OrderID: order.ID, OrderNumber: order.OrderNumber}

	if !r.registry.Supports(order.Courier) {
		return r.fail(result, order, "unsupported",
			fmt.Errorf("%w: %s", courier.ErrCarrierNotFound, order.Courier))
	}

	credential, err := r.store.CarrierCredential(ctx, order.TenantID, order.Courier)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return r.fail(result, order, "configuration",
				fmt.Errorf("%w: %s", courier.ErrCredentialsMissing, order.Courier))
		}
		return r.fail(result, order, "persistence", err)
	}

	// Trackers are built fresh per order so tenant credentials never leak
	// across orders. A factory error means bad configuration, not a carrier
	// outage; no carrier call has happened yet.
	tracker, err := r.registry.New(order.Courier, courier.Credentials{Key: credential})
	if err != nil {
		return r.fail(result, order, "configuration", err)
	}

	status, enhanced, err := r.track(ctx, tracker, order.TrackingNumber, &result)
	if err != nil {
		return r.fail(result, order, classifyCarrierError(err), err)
	}

	newStatus := Translate(status)

	// Concurrent runs are possible; re-check the live status so a stale
	// snapshot never re-applies a terminal transition.
	current, err := r.store.OrderStatus(ctx, order.ID)
	if err != nil {
		return r.fail(result, order, "persistence", err)
	}
	if current.Terminal() {
		result.Success = true
		result.NewStatus = current
		return result
	}

	update := &store.TrackingUpdate{
		OrderID:   order.ID,
		TenantID:  order.TenantID,
		Status:    string(status),
		CheckedAt: time.Now(),
	}
	if ev := enhanced.CurrentEvent(); ev != nil {
		update.Description = ev.Description
		update.Location = ev.Location
	}
	if err := r.store.AppendTrackingUpdate(ctx, update); err != nil {
		return r.fail(result, order, "persistence", err)
	}

	if enhanced != nil {
		if err := r.persistEnhanced(ctx, order, enhanced); err != nil {
			return r.fail(result, order, "persistence", err)
		}
	}

	switch {
	case newStatus == store.StatusReturned:
		if err := r.store.ApplyReturn(ctx, &order, returnReason); err != nil {
			return r.fail(result, order, "persistence", err)
		}
	case newStatus != current:
		var deliveredAt *time.Time
		if newStatus == store.StatusDelivered {
			now := time.Now()
			deliveredAt = &now
		}
		if err := r.store.UpdateOrderStatus(ctx, order.ID, newStatus, deliveredAt); err != nil {
			return r.fail(result, order, "persistence", err)
		}
	}

	if newStatus != current && r.notifier != nil {
		switch newStatus {
		case store.StatusDelivered, store.StatusReturned, store.StatusRescheduled:
			r.notifier.Notify(ctx, TransitionEvent{
				TenantID:    order.TenantID,
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Status:      newStatus,
			})
		}
	}

	result.Success = true
	result.NewStatus = newStatus
	r.metrics.RecordOrder(order.Courier, string(newStatus))
	return result
}

// track fetches the normalized status, preferring the enhanced contract when
// the carrier offers one and falling back to basic tracking when it fails.
// On a double failure the enhanced error is the one reported.
func (r *Reconciler) track(ctx context.Context, tracker courier.Tracker, trackingNumber string, result *Result) (courier.Status, *courier.EnhancedResult, error) {
	ctx, span := otel.Tracer("recon").Start(ctx, "carrier.track",
		trace.WithAttributes(attribute.String("carrier.name", tracker.Name())))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	enhancedTracker, ok := tracker.(courier.EnhancedTracker)
	if !ok {
		status, err := tracker.TrackShipment(callCtx, trackingNumber)
		return status, nil, err
	}

	enhanced, enhancedErr := enhancedTracker.TrackShipmentEnhanced(callCtx, trackingNumber)
	if enhancedErr == nil {
		result.EnhancedData = true
		return enhanced.Status, enhanced, nil
	}

	r.logger.Warn("Enhanced tracking failed, falling back to basic tracking",
		zap.String("carrier", tracker.Name()),
		zap.Error(enhancedErr),
	)

	status, err := tracker.TrackShipment(callCtx, trackingNumber)
	if err != nil {
		return "", nil, enhancedErr
	}

	result.FallbackUsed = true
	r.metrics.RecordFallback(tracker.Name())
	return status, nil, nil
}

// persistEnhanced stores the richer carrier data: the status history is
// fully resynchronized (replaced, not merged), the financial record is
// upserted, and a raw detail snapshot is appended.
func (r *Reconciler) persistEnhanced(ctx context.Context, order store.Order, enhanced *courier.EnhancedResult) error {
	events := historyToEvents(order, enhanced.History)
	if err := r.store.ReplaceShipmentEvents(ctx, order.ID, events); err != nil {
		return err
	}

	if enhanced.Financial != nil {
		record := &store.FinancialRecord{
			OrderID:       order.ID,
			TenantID:      order.TenantID,
			Subtotal:      enhanced.Financial.Subtotal,
			Shipping:      enhanced.Financial.Shipping,
			Tax:           enhanced.Financial.Tax,
			Discount:      enhanced.Financial.Discount,
			Total:         enhanced.Financial.Total,
			Currency:      enhanced.Financial.Currency,
			PaymentStatus: enhanced.Financial.PaymentStatus,
			PaymentMethod: enhanced.Financial.PaymentMethod,
		}
		if err := r.store.UpsertFinancialRecord(ctx, record); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(enhanced)
	if err != nil {
		return err
	}
	return r.store.AppendCourierDetail(ctx, &store.CourierDetail{
		OrderID:    order.ID,
		TenantID:   order.TenantID,
		Carrier:    order.Courier,
		Payload:    string(payload),
		RecordedAt: time.Now(),
	})
}

func (r *Reconciler) fail(result Result, order store.Order, errorType string, err error) Result {
	r.logger.Error("Order reconciliation failed",
		zap.Uint("order_id", order.ID),
		zap.String("carrier", order.Courier),
		zap.String("error_type", errorType),
		zap.Error(err),
	)
	r.metrics.RecordError(order.Courier, errorType)
	result.Success = false
	result.Error = err.Error()
	return result
}

// historyToEvents converts and deduplicates carrier history into rows,
// ordered oldest first.
func historyToEvents(order store.Order, history []courier.HistoryEvent) []store.ShipmentEvent {
	if len(history) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(history))
	events := make([]store.ShipmentEvent, 0, len(history))
	for _, ev := range history {
		key := fmt.Sprintf("%s|%s|%d", ev.Status, ev.Description, ev.Timestamp.Unix())
		if seen[key] {
			continue
		}
		seen[key] = true
		events = append(events, store.ShipmentEvent{
			OrderID:     order.ID,
			TenantID:    order.TenantID,
			Status:      string(ev.Status),
			Description: ev.Description,
			Location:    ev.Location,
			EventAt:     ev.Timestamp,
			Current:     ev.Current,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].EventAt.Before(events[j].EventAt)
	})
	return events
}

// classifyCarrierError buckets a tracking failure for metrics.
func classifyCarrierError(err error) string {
	if courier.IsConfiguration(err) {
		return "configuration"
	}
	return "provider"
}
