// Package purolator provides integration with the Purolator tracking API.
package purolator

import (
	"context"
	"strings"
	"time"

	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "purolator"

// Config holds Purolator configuration.
type Config struct {
	// APIKey is the tenant's composite credential in "username:password" form.
	APIKey  string
	BaseURL string
	Timeout time.Duration
	UseMock bool
}

// Client is the Purolator tracking client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Purolator client bound to one tenant's credentials. The
// credential must be a composite "username:password" key; a value that does
// not split into two non-empty halves is a configuration error, reported
// before any API call.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		username, password, err := splitAPIKey(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			Username: username,
			Password: password,
			Timeout:  cfg.Timeout,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}, nil
}

// NewWithAPIClient creates a new Purolator client with a custom API client.
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

// TrackShipment resolves a tracking PIN into a normalized status. Purolator
// reports scan history only; the newest scan determines the status.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (courier.Status, error) {
	c.logger.Info("Tracking Purolator shipment",
		zap.String("tracking_pin", trackingNumber),
	)

	apiResp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("Purolator API error", zap.Error(err))
		return "", wrapAPIError(err)
	}

	if len(apiResp.Scans) == 0 {
		return courier.StatusPending, nil
	}

	return mapScanType(apiResp.Scans[0].ScanType), nil
}

func splitAPIKey(key string) (string, string, error) {
	if strings.TrimSpace(key) == "" {
		return "", "", courier.NewError(carrierName, courier.CodeConfiguration, "missing credentials").
			WithCause(courier.ErrCredentialsMissing)
	}
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", courier.NewError(carrierName, courier.CodeConfiguration,
			"credentials must be a \"username:password\" pair").
			WithCause(courier.ErrCredentialsMalformed)
	}
	return parts[0], parts[1], nil
}

// mapScanType maps Purolator scan types to normalized statuses.
func mapScanType(scanType string) courier.Status {
	switch strings.ToUpper(scanType) {
	case "PICKEDUP", "SHIPMENTCREATED":
		return courier.StatusPending
	case "ONDELIVERY":
		return courier.StatusOutForDelivery
	case "DELIVERY", "DELIVERED", "PROOFOFDELIVERY":
		return courier.StatusDelivered
	case "RETURNEDTOSENDER", "UNDELIVERABLE":
		return courier.StatusReturned
	case "DELIVERYEXCEPTION", "MISSEDDELIVERY":
		return courier.StatusRescheduled
	case "WEATHERDELAY", "OTHER":
		return courier.StatusException
	default:
		return courier.StatusInTransit
	}
}

func wrapAPIError(err error) error {
	if apiErr, ok := err.(*APIError); ok {
		code := courier.CodeNetwork
		switch apiErr.Code {
		case "HTTP_401", "HTTP_403":
			code = courier.CodeAuth
		case "1100002", "HTTP_404":
			code = courier.CodeNotFound
		case "PARSE_ERROR":
			code = courier.CodeMalformed
		}
		return courier.NewError(carrierName, code, apiErr.Description).WithCause(err)
	}
	if strings.Contains(err.Error(), "failed to parse") {
		return courier.NewError(carrierName, courier.CodeMalformed, "unexpected response shape").WithCause(err)
	}
	return courier.NewError(carrierName, courier.CodeNetwork, "request failed").
		WithCause(err).
		WithRetryable(true)
}

var _ courier.Tracker = (*Client)(nil)
