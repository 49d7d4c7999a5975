package canadapost

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

	return &TrackingResponse{
		TrackingPIN: trackingPIN,
		Status:      "IN_TRANSIT",
		Events: []TrackingEvent{
			{
				Timestamp:   time.Now().Add(-6 * time.Hour).Format(time.RFC3339),
				Description: "Item in transit",
				Location:    "OTTAWA, ON",
				Type:        "IN_TRANSIT",
			},
		},
	}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
