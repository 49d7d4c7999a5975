package purolator

import (
	"context"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetTracking func(ctx context.Context, trackingPIN string) (*TrackingResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetTracking returns mock tracking information.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingPIN string) (*TrackingResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}

	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingPIN)
	}

	now := time.Now()
	return &TrackingResponse{
		TrackingPIN: trackingPIN,
		Scans: []Scan{
			{
				ScanType:    "InTransit",
				Timestamp:   now.Add(-3 * time.Hour).Format("2006-01-02T15:04:05"),
				Description: "Package in transit",
				Location:    "Etobicoke, ON",
			},
			{
				ScanType:    "PickedUp",
				Timestamp:   now.Add(-26 * time.Hour).Format("2006-01-02T15:04:05"),
				Description: "Picked up by Purolator",
				Location:    "Toronto, ON",
			},
		},
	}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
