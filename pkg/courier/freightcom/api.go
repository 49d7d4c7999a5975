package freightcom

import (
	"context"
)

// APIClient defines the interface for Freightcom tracking operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetTracking fetches the current tracking status and event list
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error)

	// GetShipmentDetails fetches the full shipment record including
	// financial breakdown and last known location
	GetShipmentDetails(ctx context.Context, trackingNumber string) (*ShipmentDetailsResponse, error)
}

// ============================================================================
// API Request/Response Types (match Freightcom REST API v2 structure)
// ============================================================================

// TrackingResponse represents tracking information.
// GET /shipment/{tracking_number}/tracking-events
type TrackingResponse struct {
	ShipmentID     string          `json:"shipment_id"`
	TrackingNumber string          `json:"tracking_number"`
	Status         string          `json:"status"`
	Events         []TrackingEvent `json:"events"`
}

// TrackingEvent represents a single tracking event.
type TrackingEvent struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Code        string `json:"code,omitempty"`
	Current     bool   `json:"current,omitempty"`
}

// ShipmentDetailsResponse represents the full shipment record.
// GET /shipment/{tracking_number}
type ShipmentDetailsResponse struct {
	ShipmentID     string          `json:"shipment_id"`
	TrackingNumber string          `json:"tracking_number"`
	Status         string          `json:"status"`
	Events         []TrackingEvent `json:"events,omitempty"`
	Charges        *Charges        `json:"charges,omitempty"`
	Location       *Location       `json:"current_location,omitempty"`
}

// Charges is the financial breakdown reported by Freightcom.
type Charges struct {
	Subtotal      float64 `json:"subtotal"`
	ShippingCost  float64 `json:"shipping_cost"`
	TotalTax      float64 `json:"total_tax"`
	Discount      float64 `json:"discount,omitempty"`
	TotalCharged  float64 `json:"total_charged"`
	Currency      string  `json:"currency"`
	PaymentStatus string  `json:"payment_status,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
}

// Location is the last known location of a shipment.
type Location struct {
	City        string `json:"city"`
	Province    string `json:"province"`
	Country     string `json:"country"`
	Description string `json:"description,omitempty"`
}

// APIError represents an error from the Freightcom API.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"` // Field-level errors
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
