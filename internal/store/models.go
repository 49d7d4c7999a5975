// Package store provides the gorm-backed persistence layer for the
// reconciliation engine.
package store

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the platform's order lifecycle state. This engine owns the
// shipped → {delivered, returned, rescheduled} transitions; pre-shipment
// states belong to other subsystems and are opaque here.
type OrderStatus string

const (
	StatusPending     OrderStatus = "pending"
	StatusProcessing  OrderStatus = "processing"
	StatusShipped     OrderStatus = "shipped"
	StatusDelivered   OrderStatus = "delivered"
	StatusReturned    OrderStatus = "returned"
	StatusRescheduled OrderStatus = "rescheduled"
)

// Terminal reports whether the status is terminal to the reconciliation
// engine. Reconciling a terminal order is a no-op.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusReturned
}

// Tenant is a platform tenant. Only the fields this engine reads are modeled.
type Tenant struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CarrierCredential holds one tenant's credential string for one carrier.
// The format is carrier-specific; adapters own its validation.
type CarrierCredential struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   uint   `gorm:"index:idx_tenant_carrier,unique;not null"`
	Carrier    string `gorm:"index:idx_tenant_carrier,unique;not null"`
	Credential string `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Product is a stockable product. Stock is mutated only inside the return
// transaction.
type Product struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"index;not null"`
	SKU       string `gorm:"not null"`
	Name      string `gorm:"not null"`
	Stock     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Order is the unit of reconciliation. Courier and TrackingNumber are both
// present or both absent; DeliveredAt is set iff Status is delivered.
type Order struct {
	ID             uint        `gorm:"primaryKey"`
	TenantID       uint        `gorm:"index;not null"`
	OrderNumber    string      `gorm:"uniqueIndex;not null"`
	Status         OrderStatus `gorm:"index;not null;default:'pending'"`
	Courier        string      `gorm:"index"`
	TrackingNumber string
	Quantity       int  `gorm:"not null;default:1"`
	ProductID      uint `gorm:"not null"`
	PlacedByID     uint
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TrackingUpdate is the append-only polling audit trail: one row per order
// per reconciliation pass, whether or not the status changed.
type TrackingUpdate struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     uint   `gorm:"index;not null"`
	TenantID    uint   `gorm:"index;not null"`
	Status      string `gorm:"not null"`
	Description string
	Location    string
	CheckedAt   time.Time `gorm:"not null"`
}

// ShipmentEvent is one entry of the enhanced status history. The full set
// for an order is replaced on each successful enhanced fetch.
type ShipmentEvent struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     uint   `gorm:"index;not null"`
	TenantID    uint   `gorm:"not null"`
	Status      string `gorm:"not null"`
	Description string
	Location    string
	EventAt     time.Time
	Current     bool
}

// FinancialRecord is the carrier-reported financial breakdown, one row per
// order, upserted. Informational only, never authoritative for pricing.
type FinancialRecord struct {
	ID            uint `gorm:"primaryKey"`
	OrderID       uint `gorm:"uniqueIndex;not null"`
	TenantID      uint `gorm:"not null"`
	Subtotal      float64
	Shipping      float64
	Tax           float64
	Discount      float64
	Total         float64
	Currency      string
	PaymentStatus string
	PaymentMethod string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CourierDetail is a carrier-specific tracking detail snapshot, appended per
// run when enhanced data is present.
type CourierDetail struct {
	ID         uint      `gorm:"primaryKey"`
	OrderID    uint      `gorm:"index;not null"`
	TenantID   uint      `gorm:"not null"`
	Carrier    string    `gorm:"not null"`
	Payload    string    `gorm:"type:jsonb"`
	RecordedAt time.Time `gorm:"not null"`
}

// StockAdjustment is an immutable audit entry for an inventory change.
type StockAdjustment struct {
	ID            string `gorm:"primaryKey;size:36"`
	ProductID     uint   `gorm:"index;not null"`
	TenantID      uint   `gorm:"not null"`
	Delta         int    `gorm:"not null"`
	Reason        string `gorm:"not null"`
	PreviousStock int    `gorm:"not null"`
	NewStock      int    `gorm:"not null"`
	ActorID       uint
	CreatedAt     time.Time
}

// Notification is a fire-and-forget event record consumed by the external
// notification subsystem.
type Notification struct {
	ID        string `gorm:"primaryKey;size:36"`
	TenantID  uint   `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	Body      string
	Category  string `gorm:"not null"`
	OrderID   uint   `gorm:"index"`
	CreatedAt time.Time
}
