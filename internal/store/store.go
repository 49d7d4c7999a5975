package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrCredentialNotFound indicates a tenant has no credential stored for a carrier.
var ErrCredentialNotFound = errors.New("carrier credential not found")

// Store is the gorm-backed persistence layer.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.AutoMigrate(
		&Tenant{},
		&CarrierCredential{},
		&Product{},
		&Order{},
		&TrackingUpdate{},
		&ShipmentEvent{},
		&FinancialRecord{},
		&CourierDetail{},
		&StockAdjustment{},
		&Notification{},
	); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm handle. Useful for tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// eligibleOrderConditions narrows a query to orders due for a status check:
// shipped, carrier and tracking number present, not yet delivered.
func eligibleOrderConditions(db *gorm.DB) *gorm.DB {
	return db.
		Where("status = ?", StatusShipped).
		Where("courier <> ''").
		Where("tracking_number <> ''").
		Where("delivered_at IS NULL")
}

// lockForUpdate takes a FOR UPDATE row lock on the queried rows.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// shippedOrderByID narrows an update to one order still in the shipped
// state, so concurrent runs converge instead of clobbering a terminal state.
func shippedOrderByID(db *gorm.DB, orderID uint) *gorm.DB {
	return db.Model(&Order{}).Where("id = ? AND status = ?", orderID, StatusShipped)
}

// EligibleOrders returns a snapshot of orders due for a status check.
func (s *Store) EligibleOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := eligibleOrderConditions(s.db.WithContext(ctx)).Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("selecting eligible orders: %w", err)
	}
	return orders, nil
}

// CarrierCredential returns a tenant's credential string for a carrier.
func (s *Store) CarrierCredential(ctx context.Context, tenantID uint, carrier string) (string, error) {
	var cred CarrierCredential
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND carrier = ?", tenantID, carrier).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: tenant %d, carrier %s", ErrCredentialNotFound, tenantID, carrier)
	}
	if err != nil {
		return "", err
	}
	return cred.Credential, nil
}

// OrderStatus returns the current lifecycle status of an order.
func (s *Store) OrderStatus(ctx context.Context, orderID uint) (OrderStatus, error) {
	var order Order
	err := s.db.WithContext(ctx).Select("status").First(&order, orderID).Error
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// AppendTrackingUpdate appends one row to the polling audit trail.
func (s *Store) AppendTrackingUpdate(ctx context.Context, update *TrackingUpdate) error {
	if update.CheckedAt.IsZero() {
		update.CheckedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(update).Error
}

// ReplaceShipmentEvents replaces the stored enhanced status history for an
// order with the carrier's latest full snapshot.
func (s *Store) ReplaceShipmentEvents(ctx context.Context, orderID uint, events []ShipmentEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&ShipmentEvent{}).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Create(&events).Error
	})
}

// UpsertFinancialRecord creates or updates the per-order financial record.
func (s *Store) UpsertFinancialRecord(ctx context.Context, record *FinancialRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subtotal", "shipping", "tax", "discount", "total",
			"currency", "payment_status", "payment_method", "updated_at",
		}),
	}).Create(record).Error
}

// AppendCourierDetail appends one carrier-specific detail snapshot.
func (s *Store) AppendCourierDetail(ctx context.Context, detail *CourierDetail) error {
	if detail.RecordedAt.IsZero() {
		detail.RecordedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(detail).Error
}

// UpdateOrderStatus applies a lifecycle transition to a shipped order. A row
// already moved out of shipped is left untouched.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus, deliveredAt *time.Time) error {
	return shippedOrderByID(s.db.WithContext(ctx), orderID).
		Updates(map[string]interface{}{
			"status":       status,
			"delivered_at": deliveredAt,
		}).Error
}

// ApplyReturn atomically marks an order returned, restocks its product, and
// writes a stock-adjustment audit row. A missing product degrades to the
// status update alone. Any failure rolls back all writes.
func (s *Store) ApplyReturn(ctx context.Context, order *Order, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current Order
		if err := lockForUpdate(tx).First(&current, order.ID).Error; err != nil {
			return err
		}
		if current.Status.Terminal() {
			// Already returned, or a concurrent run delivered the order
			// between the caller's status read and this lock.
			return nil
		}

		if err := tx.Model(&Order{}).Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":       StatusReturned,
				"delivered_at": nil,
			}).Error; err != nil {
			return err
		}

		var product Product
		err := lockForUpdate(tx).First(&product, order.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Product was deleted; the status update still stands.
			return nil
		}
		if err != nil {
			return err
		}

		previous := product.Stock
		if err := tx.Model(&product).Update("stock", previous+order.Quantity).Error; err != nil {
			return err
		}

		adjustment := StockAdjustment{
			ID:            uuid.New().String(),
			ProductID:     product.ID,
			TenantID:      order.TenantID,
			Delta:         order.Quantity,
			Reason:        reason,
			PreviousStock: previous,
			NewStock:      previous + order.Quantity,
			ActorID:       order.PlacedByID,
		}
		return tx.Create(&adjustment).Error
	})
}

// CreateNotification appends one notification row.
func (s *Store) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(n).Error
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}
