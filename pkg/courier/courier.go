// Package courier provides an abstraction layer for courier tracking APIs.
package courier

import (
	"context"
)

// Tracker defines the interface that all courier integrations must implement.
type Tracker interface {
	// Name returns the carrier identifier (e.g., "freightcom", "canadapost", "purolator").
	Name() string

	// TrackShipment resolves a tracking number into a normalized shipment status.
	TrackShipment(ctx context.Context, trackingNumber string) (Status, error)
}

// EnhancedTracker is implemented by carriers whose API exposes richer
// tracking data (event history, financial breakdown, current location).
// TrackShipmentEnhanced must report at minimum the same status a basic
// TrackShipment call would.
type EnhancedTracker interface {
	Tracker

	// TrackShipmentEnhanced resolves a tracking number into the full
	// carrier-reported detail for the shipment.
	TrackShipmentEnhanced(ctx context.Context, trackingNumber string) (*EnhancedResult, error)
}

// Credentials holds a tenant's credential material for one carrier.
// The format of Key is carrier-specific; adapters own its validation.
type Credentials struct {
	Key string
}
