package canadapost

import (
	"context"
)

// APIClient defines the interface for Canada Post tracking operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetTracking retrieves the tracking summary for a PIN
	GetTracking(ctx context.Context, trackingPIN string) (*TrackingResponse, error)
}

// ============================================================================
// API Request/Response Types (match Canada Post REST/XML API structure)
// ============================================================================

// TrackingResponse represents tracking information.
type TrackingResponse struct {
	TrackingPIN string
	Status      string
	Events      []TrackingEvent
}

// TrackingEvent represents a single tracking event.
type TrackingEvent struct {
	Timestamp   string
	Description string
	Location    string
	Type        string
}

// APIError represents an error from the Canada Post API.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}
