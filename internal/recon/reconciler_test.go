package recon_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/reconciler/internal/recon"
	"github.com/tournevent/reconciler/internal/store"
	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/tournevent/reconciler/pkg/courier/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// fakeStore is an in-memory recon.Store with the same transition semantics
// as the gorm store, plus failure injection.
type fakeStore struct {
	mu sync.Mutex

	orders      map[uint]*store.Order
	products    map[uint]*store.Product
	credentials map[string]string

	trackingUpdates []store.TrackingUpdate
	shipmentEvents  map[uint][]store.ShipmentEvent
	financials      map[uint]store.FinancialRecord
	courierDetails  []store.CourierDetail
	adjustments     []store.StockAdjustment
	notifications   []store.Notification

	failStockUpdate  bool
	failStatusUpdate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:         make(map[uint]*store.Order),
		products:       make(map[uint]*store.Product),
		credentials:    make(map[string]string),
		shipmentEvents: make(map[uint][]store.ShipmentEvent),
		financials:     make(map[uint]store.FinancialRecord),
	}
}

func (f *fakeStore) addOrder(order store.Order) {
	f.orders[order.ID] = &order
}

func (f *fakeStore) addProduct(product store.Product) {
	f.products[product.ID] = &product
}

func (f *fakeStore) setCredential(tenantID uint, carrier, credential string) {
	f.credentials[fmt.Sprintf("%d/%s", tenantID, carrier)] = credential
}

func (f *fakeStore) EligibleOrders(ctx context.Context) ([]store.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var eligible []store.Order
	for _, o := range f.orders {
		if o.Status == store.StatusShipped && o.Courier != "" && o.TrackingNumber != "" && o.DeliveredAt == nil {
			eligible = append(eligible, *o)
		}
	}
	return eligible, nil
}

func (f *fakeStore) CarrierCredential(ctx context.Context, tenantID uint, carrier string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.credentials[fmt.Sprintf("%d/%s", tenantID, carrier)]
	if !ok {
		return "", fmt.Errorf("%w: tenant %d, carrier %s", store.ErrCredentialNotFound, tenantID, carrier)
	}
	return cred, nil
}

func (f *fakeStore) OrderStatus(ctx context.Context, orderID uint) (store.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return "", errors.New("order not found")
	}
	return order.Status, nil
}

func (f *fakeStore) AppendTrackingUpdate(ctx context.Context, update *store.TrackingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trackingUpdates = append(f.trackingUpdates, *update)
	return nil
}

func (f *fakeStore) ReplaceShipmentEvents(ctx context.Context, orderID uint, events []store.ShipmentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shipmentEvents[orderID] = events
	return nil
}

func (f *fakeStore) UpsertFinancialRecord(ctx context.Context, record *store.FinancialRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.financials[record.OrderID] = *record
	return nil
}

func (f *fakeStore) AppendCourierDetail(ctx context.Context, detail *store.CourierDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courierDetails = append(f.courierDetails, *detail)
	return nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, orderID uint, status store.OrderStatus, deliveredAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatusUpdate {
		return errors.New("injected status update failure")
	}
	order, ok := f.orders[orderID]
	if !ok || order.Status != store.StatusShipped {
		return nil
	}
	order.Status = status
	order.DeliveredAt = deliveredAt
	return nil
}

func (f *fakeStore) ApplyReturn(ctx context.Context, order *store.Order, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.orders[order.ID]
	if !ok {
		return errors.New("order not found")
	}
	if current.Status.Terminal() {
		return nil
	}

	product, hasProduct := f.products[order.ProductID]
	if hasProduct && f.failStockUpdate {
		// Atomicity: the status flip rolls back with the stock write.
		return errors.New("injected stock update failure")
	}

	current.Status = store.StatusReturned
	current.DeliveredAt = nil

	if !hasProduct {
		return nil
	}
	previous := product.Stock
	product.Stock += order.Quantity
	f.adjustments = append(f.adjustments, store.StockAdjustment{
		ProductID:     product.ID,
		TenantID:      order.TenantID,
		Delta:         order.Quantity,
		Reason:        reason,
		PreviousStock: previous,
		NewStock:      product.Stock,
		ActorID:       order.PlacedByID,
	})
	return nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *store.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, *n)
	return nil
}

// basicTracker hides the enhanced contract of the mock so the basic path
// can be exercised directly.
type basicTracker struct {
	inner *mock.Client
}

func (b basicTracker) Name() string { return b.inner.Name() }

func (b basicTracker) TrackShipment(ctx context.Context, trackingNumber string) (courier.Status, error) {
	return b.inner.TrackShipment(ctx, trackingNumber)
}

// doubleFailTracker fails both tracking paths with distinct errors.
type doubleFailTracker struct {
	enhancedErr error
	basicErr    error
}

func (d doubleFailTracker) Name() string { return "mockcourier" }

func (d doubleFailTracker) TrackShipment(ctx context.Context, trackingNumber string) (courier.Status, error) {
	return "", d.basicErr
}

func (d doubleFailTracker) TrackShipmentEnhanced(ctx context.Context, trackingNumber string) (*courier.EnhancedResult, error) {
	return nil, d.enhancedErr
}

func testLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

func shippedOrder(id uint) store.Order {
	return store.Order{
		ID:             id,
		TenantID:       1,
		OrderNumber:    fmt.Sprintf("ORD-%04d", id),
		Status:         store.StatusShipped,
		Courier:        "mockcourier",
		TrackingNumber: fmt.Sprintf("TN-%04d", id),
		Quantity:       3,
		ProductID:      100,
	}
}

func newHarness(t *testing.T, tracker courier.Tracker) (*fakeStore, *recon.Reconciler) {
	t.Helper()
	st := newFakeStore()
	st.setCredential(1, "mockcourier", "test-key")
	st.addProduct(store.Product{ID: 100, TenantID: 1, SKU: "SKU-1", Name: "Widget", Stock: 10})

	registry := courier.NewRegistry()
	registry.Register("mockcourier", func(creds courier.Credentials) (courier.Tracker, error) {
		return tracker, nil
	})

	emitter := recon.NewEmitter(st, nil, testLogger())
	r := recon.NewReconciler(st, registry, emitter, testLogger(), nil, time.Second)
	return st, r
}

func TestReconcile_DeliveredTransition(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusDelivered)
	carrier.SetEnhanced("TN-0001", &courier.EnhancedResult{
		Status: courier.StatusDelivered,
		History: []courier.HistoryEvent{
			{Status: courier.StatusInTransit, Description: "Departed facility", Timestamp: time.Now().Add(-48 * time.Hour)},
			{Status: courier.StatusDelivered, Description: "Delivered", Timestamp: time.Now(), Current: true},
		},
		Financial: &courier.FinancialInfo{Total: 64.98, Currency: "CAD"},
	})

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, store.StatusDelivered, result.NewStatus)
	assert.True(t, result.EnhancedData)
	assert.False(t, result.FallbackUsed)

	assert.Equal(t, store.StatusDelivered, st.orders[1].Status)
	require.NotNil(t, st.orders[1].DeliveredAt)
	require.Len(t, st.trackingUpdates, 1)
	assert.Equal(t, "delivered", st.trackingUpdates[0].Status)
	assert.Equal(t, "Delivered", st.trackingUpdates[0].Description)
	assert.Len(t, st.shipmentEvents[1], 2)
	assert.Equal(t, 64.98, st.financials[1].Total)
	assert.Len(t, st.courierDetails, 1)
	require.Len(t, st.notifications, 1)
	assert.Equal(t, "order_delivered", st.notifications[0].Category)
}

func TestReconcile_ReturnRestocksInventory(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusReturned)
	carrier.SetEnhanced("TN-0001", &courier.EnhancedResult{Status: courier.StatusReturned})

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, store.StatusReturned, result.NewStatus)
	assert.Equal(t, store.StatusReturned, st.orders[1].Status)
	assert.Equal(t, 13, st.products[100].Stock)

	require.Len(t, st.adjustments, 1)
	assert.Equal(t, 3, st.adjustments[0].Delta)
	assert.Equal(t, 10, st.adjustments[0].PreviousStock)
	assert.Equal(t, 13, st.adjustments[0].NewStock)

	require.Len(t, st.notifications, 1)
	assert.Equal(t, "order_returned", st.notifications[0].Category)
}

func TestReconcile_ReturnIsAtomic(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusReturned)
	carrier.SetEnhanced("TN-0001", &courier.EnhancedResult{Status: courier.StatusReturned})

	st, r := newHarness(t, carrier)
	st.failStockUpdate = true
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	// The failed transaction must leave both the order and the stock as-is.
	assert.Equal(t, store.StatusShipped, st.orders[1].Status)
	assert.Equal(t, 10, st.products[100].Stock)
	assert.Empty(t, st.adjustments)
	assert.Empty(t, st.notifications)
}

// staleStatusStore reports shipped from OrderStatus regardless of the live
// row, reproducing an overlapping run committing a transition between the
// reconciler's status read and its write.
type staleStatusStore struct {
	*fakeStore
}

func (s *staleStatusStore) OrderStatus(ctx context.Context, orderID uint) (store.OrderStatus, error) {
	return store.StatusShipped, nil
}

func TestReconcile_ReturnAfterConcurrentDeliveryIsNoOp(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusReturned)
	carrier.SetEnhanced("TN-0001", &courier.EnhancedResult{Status: courier.StatusReturned})

	inner := newFakeStore()
	inner.setCredential(1, "mockcourier", "test-key")
	inner.addProduct(store.Product{ID: 100, TenantID: 1, SKU: "SKU-1", Name: "Widget", Stock: 10})
	order := shippedOrder(1)
	inner.addOrder(order)
	// Another run delivered the order after this run's eligibility snapshot.
	now := time.Now()
	inner.orders[1].Status = store.StatusDelivered
	inner.orders[1].DeliveredAt = &now

	st := &staleStatusStore{fakeStore: inner}
	registry := courier.NewRegistry()
	registry.Register("mockcourier", func(creds courier.Credentials) (courier.Tracker, error) {
		return carrier, nil
	})
	r := recon.NewReconciler(st, registry, nil, testLogger(), nil, time.Second)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	// The locked re-check must leave the delivered order and its stock alone.
	assert.Equal(t, store.StatusDelivered, inner.orders[1].Status)
	assert.NotNil(t, inner.orders[1].DeliveredAt)
	assert.Equal(t, 10, inner.products[100].Stock)
	assert.Empty(t, inner.adjustments)
}

func TestReconcile_ReturnWithMissingProduct(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusReturned)
	carrier.SetEnhanced("TN-0001", &courier.EnhancedResult{Status: courier.StatusReturned})

	st, r := newHarness(t, carrier)
	delete(st.products, 100)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, store.StatusReturned, st.orders[1].Status)
	assert.Empty(t, st.adjustments)
}

func TestReconcile_TerminalOrderIsNoOp(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusReturned)

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)
	st.orders[1].Status = store.StatusDelivered

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success)
	assert.Equal(t, store.StatusDelivered, result.NewStatus)
	// No rows of any kind for an order already in a terminal state.
	assert.Empty(t, st.trackingUpdates)
	assert.Empty(t, st.adjustments)
	assert.Empty(t, st.notifications)
	assert.Equal(t, 10, st.products[100].Stock)
}

func TestReconcile_NoChangeStillAppendsTrackingUpdate(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusInTransit)

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, store.StatusShipped, result.NewStatus)
	assert.Equal(t, store.StatusShipped, st.orders[1].Status)
	require.Len(t, st.trackingUpdates, 1)
	assert.Equal(t, "in_transit", st.trackingUpdates[0].Status)
	assert.Empty(t, st.notifications)
}

func TestReconcile_RescheduledNotifies(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusRescheduled)
	carrier.SetEnhanced("TN-0001", &courier.EnhancedResult{Status: courier.StatusRescheduled})

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, store.StatusRescheduled, st.orders[1].Status)
	require.Len(t, st.notifications, 1)
	assert.Equal(t, "order_rescheduled", st.notifications[0].Category)
}

func TestReconcile_FallbackToBasicTracking(t *testing.T) {
	carrier := mock.New("mockcourier")
	carrier.SetStatus("TN-0001", courier.StatusDelivered)
	carrier.EnhancedErr = courier.NewError("mockcourier", courier.CodeNetwork, "upstream 502")

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.True(t, result.FallbackUsed)
	assert.False(t, result.EnhancedData)
	assert.Equal(t, store.StatusDelivered, st.orders[1].Status)
	// Basic tracking carries no history; nothing enhanced gets persisted.
	assert.Empty(t, st.shipmentEvents[1])
	assert.Empty(t, st.courierDetails)
}

func TestReconcile_DoubleFailureSurfacesEnhancedError(t *testing.T) {
	carrier := doubleFailTracker{
		enhancedErr: courier.NewError("mockcourier", courier.CodeMalformed, "truncated body"),
		basicErr:    courier.NewError("mockcourier", courier.CodeNetwork, "connection refused"),
	}

	st, r := newHarness(t, carrier)
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	assert.False(t, result.Success)
	// When the fallback also fails, the richer enhanced error wins.
	assert.Contains(t, result.Error, "truncated body")
	assert.NotContains(t, result.Error, "connection refused")
	assert.Equal(t, store.StatusShipped, st.orders[1].Status)
	assert.Empty(t, st.trackingUpdates)
}

func TestReconcile_MissingCredentialSkipsCarrierCall(t *testing.T) {
	carrier := mock.New("mockcourier")
	factoryCalls := 0

	st := newFakeStore()
	st.addProduct(store.Product{ID: 100, Stock: 10})
	registry := courier.NewRegistry()
	registry.Register("mockcourier", func(creds courier.Credentials) (courier.Tracker, error) {
		factoryCalls++
		return carrier, nil
	})
	r := recon.NewReconciler(st, registry, nil, testLogger(), nil, time.Second)

	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "credentials")
	assert.Zero(t, factoryCalls, "no tracker may be built without a credential")
	assert.Equal(t, store.StatusShipped, st.orders[1].Status)
	assert.Empty(t, st.trackingUpdates)
}

func TestReconcile_UnsupportedCarrier(t *testing.T) {
	st := newFakeStore()
	registry := courier.NewRegistry()
	r := recon.NewReconciler(st, registry, nil, testLogger(), nil, time.Second)

	order := shippedOrder(1)
	order.Courier = "unknowncarrier"
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknowncarrier")
}

func TestReconcile_BasicOnlyTrackerSkipsEnhancedPersistence(t *testing.T) {
	inner := mock.New("mockcourier")
	inner.SetStatus("TN-0001", courier.StatusDelivered)

	st, r := newHarness(t, basicTracker{inner: inner})
	order := shippedOrder(1)
	st.addOrder(order)

	result := r.Reconcile(context.Background(), order)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.False(t, result.EnhancedData)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, store.StatusDelivered, st.orders[1].Status)
	assert.Empty(t, st.shipmentEvents[1])
	assert.Empty(t, st.courierDetails)
	require.Len(t, st.trackingUpdates, 1)
}
