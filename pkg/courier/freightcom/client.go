// Package freightcom provides integration with the Freightcom tracking API.
package freightcom

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "freightcom"

// Config holds Freightcom configuration.
type Config struct {
	APIKey  string // Tenant-scoped API key
	BaseURL string
	Timeout time.Duration
	UseMock bool // When true, uses mock API client
}

// Client is the Freightcom tracking client. It implements
// courier.EnhancedTracker and delegates API calls to the underlying
// APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Freightcom client bound to one tenant's API key.
// If cfg.UseMock is true, it uses a mock API client for testing.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" && !cfg.UseMock {
		return nil, courier.NewError(carrierName, courier.CodeConfiguration, "missing API key").
			WithCause(courier.ErrCredentialsMissing)
	}

	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}, nil
}

// NewWithAPIClient creates a new Freightcom client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// TrackShipment resolves a tracking number into a normalized status.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (courier.Status, error) {
	c.logger.Info("Tracking Freightcom shipment",
		zap.String("tracking_number", trackingNumber),
	)

	apiResp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("Freightcom API error", zap.Error(err))
		return "", wrapAPIError(err)
	}

	return mapStatus(apiResp.Status), nil
}

// TrackShipmentEnhanced resolves a tracking number into the full shipment
// detail: status, event history, financial breakdown, and current location.
func (c *Client) TrackShipmentEnhanced(ctx context.Context, trackingNumber string) (*courier.EnhancedResult, error) {
	c.logger.Info("Tracking Freightcom shipment (enhanced)",
		zap.String("tracking_number", trackingNumber),
	)

	apiResp, err := c.apiClient.GetShipmentDetails(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("Freightcom API error", zap.Error(err))
		return nil, wrapAPIError(err)
	}

	return detailsToEnhanced(apiResp), nil
}

// ============================================================================
// Conversion helpers: API models -> courier models
// ============================================================================

func detailsToEnhanced(resp *ShipmentDetailsResponse) *courier.EnhancedResult {
	result := &courier.EnhancedResult{
		Status:  mapStatus(resp.Status),
		History: eventsToHistory(resp.Events),
	}

	if resp.Charges != nil {
		result.Financial = &courier.FinancialInfo{
			Subtotal:      resp.Charges.Subtotal,
			Shipping:      resp.Charges.ShippingCost,
			Tax:           resp.Charges.TotalTax,
			Discount:      resp.Charges.Discount,
			Total:         resp.Charges.TotalCharged,
			Currency:      resp.Charges.Currency,
			PaymentStatus: resp.Charges.PaymentStatus,
			PaymentMethod: resp.Charges.PaymentMethod,
		}
	}

	if resp.Location != nil {
		result.Location = &courier.LocationInfo{
			City:        resp.Location.City,
			Region:      resp.Location.Province,
			Country:     resp.Location.Country,
			Description: resp.Location.Description,
		}
	}

	return result
}

func eventsToHistory(events []TrackingEvent) []courier.HistoryEvent {
	if len(events) == 0 {
		return nil
	}
	history := make([]courier.HistoryEvent, 0, len(events))
	for _, ev := range events {
		timestamp, _ := time.Parse(time.RFC3339, ev.Timestamp)
		history = append(history, courier.HistoryEvent{
			Status:      mapStatus(ev.Status),
			Description: ev.Description,
			Location:    ev.Location,
			Timestamp:   timestamp,
			Current:     ev.Current,
		})
	}
	return history
}

func mapStatus(status string) courier.Status {
	switch status {
	case "pending", "processing", "booked", "label_created":
		return courier.StatusPending
	case "picked_up", "in_transit", "at_facility":
		return courier.StatusInTransit
	case "out_for_delivery":
		return courier.StatusOutForDelivery
	case "delivered":
		return courier.StatusDelivered
	case "returned", "return_to_sender", "returning":
		return courier.StatusReturned
	case "rescheduled", "delivery_rescheduled", "held":
		return courier.StatusRescheduled
	case "exception", "error", "failed", "delayed":
		return courier.StatusException
	default:
		return courier.StatusPending
	}
}

func wrapAPIError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		code := courier.CodeNetwork
		switch apiErr.Code {
		case "HTTP_401", "HTTP_403":
			code = courier.CodeAuth
		case "HTTP_404":
			code = courier.CodeNotFound
		case "TIMEOUT":
			code = courier.CodeTimeout
		}
		return courier.NewError(carrierName, code, apiErr.Message).WithCause(err)
	}
	if strings.Contains(err.Error(), "failed to decode") {
		return courier.NewError(carrierName, courier.CodeMalformed, "unexpected response shape").WithCause(err)
	}
	return courier.NewError(carrierName, courier.CodeNetwork, "request failed").
		WithCause(err).
		WithRetryable(true)
}

var _ courier.EnhancedTracker = (*Client)(nil)
