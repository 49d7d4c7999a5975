package freightcom

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetTracking        func(ctx context.Context, trackingNumber string) (*TrackingResponse, error)
	OnGetShipmentDetails func(ctx context.Context, trackingNumber string) (*ShipmentDetailsResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetTracking returns mock tracking information.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingNumber)
	}

	return &TrackingResponse{
		ShipmentID:     "fc-ship-" + uuid.New().String()[:8],
		TrackingNumber: trackingNumber,
		Status:         "in_transit",
		Events:         mockEvents(),
	}, nil
}

// GetShipmentDetails returns a mock shipment record.
func (m *MockAPIClient) GetShipmentDetails(ctx context.Context, trackingNumber string) (*ShipmentDetailsResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnGetShipmentDetails != nil {
		return m.OnGetShipmentDetails(ctx, trackingNumber)
	}

	return &ShipmentDetailsResponse{
		ShipmentID:     "fc-ship-" + uuid.New().String()[:8],
		TrackingNumber: trackingNumber,
		Status:         "in_transit",
		Events:         mockEvents(),
		Charges: &Charges{
			Subtotal:      45.00,
			ShippingCost:  12.50,
			TotalTax:      7.48,
			TotalCharged:  64.98,
			Currency:      "CAD",
			PaymentStatus: "paid",
			PaymentMethod: "card",
		},
		Location: &Location{
			City:     "Mississauga",
			Province: "ON",
			Country:  "CA",
		},
	}, nil
}

func mockEvents() []TrackingEvent {
	now := time.Now()
	return []TrackingEvent{
		{
			Timestamp:   now.Add(-48 * time.Hour).Format(time.RFC3339),
			Description: "Shipment picked up",
			Location:    "Toronto, ON",
			Status:      "picked_up",
		},
		{
			Timestamp:   now.Add(-24 * time.Hour).Format(time.RFC3339),
			Description: "Arrived at sorting facility",
			Location:    "Mississauga, ON",
			Status:      "in_transit",
		},
		{
			Timestamp:   now.Add(-2 * time.Hour).Format(time.RFC3339),
			Description: "In transit to destination",
			Location:    "Mississauga, ON",
			Status:      "in_transit",
			Current:     true,
		},
	}
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
