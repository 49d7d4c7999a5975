package purolator

import (
	"context"
)

// APIClient defines the interface for Purolator tracking operations.
// This abstraction allows for mock implementations during testing
// and real SOAP implementations in production.
type APIClient interface {
	// GetTracking retrieves tracking information via TrackingService
	GetTracking(ctx context.Context, trackingPIN string) (*TrackingResponse, error)
}

// ============================================================================
// API Request/Response Types (match Purolator SOAP API structure)
// ============================================================================

// TrackingResponse represents tracking information.
type TrackingResponse struct {
	TrackingPIN string
	Scans       []Scan
}

// Scan represents a single tracking scan event. The most recent scan is
// first, matching Purolator's response ordering.
type Scan struct {
	ScanType    string
	Timestamp   string
	Description string
	Location    string
}

// APIError represents an error from the Purolator API.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}
