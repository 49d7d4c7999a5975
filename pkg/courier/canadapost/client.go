// Package canadapost provides integration with the Canada Post tracking API.
package canadapost

import (
	"context"
	"strings"
	"time"

	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "canadapost"

// Config holds Canada Post configuration.
type Config struct {
	// APIKey is the tenant's composite credential in "user:password" form.
	APIKey  string
	BaseURL string
	Timeout time.Duration
	UseMock bool
}

// Client is the Canada Post tracking client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Canada Post client. The tenant credential must be a
// composite "user:password" key; a value that does not split into two
// non-empty halves is a configuration error, reported before any API call.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		user, secret, err := splitAPIKey(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIUser:   user,
			APISecret: secret,
			Timeout:   cfg.Timeout,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}, nil
}

// NewWithAPIClient creates a new Canada Post client with a custom API client.
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

// TrackShipment resolves a tracking PIN into a normalized status.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (courier.Status, error) {
	c.logger.Info("Tracking Canada Post shipment",
		zap.String("tracking_pin", trackingNumber),
	)

	apiResp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("Canada Post API error", zap.Error(err))
		return "", wrapAPIError(err)
	}

	return mapEventType(apiResp.Status), nil
}

func splitAPIKey(key string) (string, string, error) {
	if strings.TrimSpace(key) == "" {
		return "", "", courier.NewError(carrierName, courier.CodeConfiguration, "missing API key").
			WithCause(courier.ErrCredentialsMissing)
	}
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", courier.NewError(carrierName, courier.CodeConfiguration,
			"API key must be a \"user:password\" pair").
			WithCause(courier.ErrCredentialsMalformed)
	}
	return parts[0], parts[1], nil
}

// mapEventType maps Canada Post track event types to normalized statuses.
func mapEventType(eventType string) courier.Status {
	switch strings.ToUpper(eventType) {
	case "INDUCTION", "ACCEPTED", "PROCESSING":
		return courier.StatusPending
	case "IN_TRANSIT", "TRANSIT", "ARRIVAL", "DEPARTURE":
		return courier.StatusInTransit
	case "OUT_FOR_DELIVERY", "OUT-FOR-DELIVERY":
		return courier.StatusOutForDelivery
	case "DELIVERED", "SIGNATURE":
		return courier.StatusDelivered
	case "RETURNED", "RETURN_TO_SENDER", "UNDELIVERABLE":
		return courier.StatusReturned
	case "ATTEMPTED_DELIVERY", "NOTICE_CARD", "RESCHEDULED":
		return courier.StatusRescheduled
	case "EXCEPTION", "DELAYED", "MISSORTED":
		return courier.StatusException
	default:
		return courier.StatusInTransit
	}
}

func wrapAPIError(err error) error {
	if apiErr, ok := err.(*APIError); ok {
		code := courier.CodeNetwork
		switch apiErr.Code {
		case "HTTP_401", "HTTP_403", "E002":
			code = courier.CodeAuth
		case "HTTP_404", "004":
			code = courier.CodeNotFound
		}
		return courier.NewError(carrierName, code, apiErr.Description).WithCause(err)
	}
	if strings.Contains(err.Error(), "failed to decode") {
		return courier.NewError(carrierName, courier.CodeMalformed, "unexpected response shape").WithCause(err)
	}
	return courier.NewError(carrierName, courier.CodeNetwork, "request failed").
		WithCause(err).
		WithRetryable(true)
}

var _ courier.Tracker = (*Client)(nil)
