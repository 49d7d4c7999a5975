package canadapost

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/XML.
type HTTPAPIClient struct {
	baseURL    string
	apiUser    string
	apiSecret  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIUser   string
	APISecret string // Password half of the Basic Auth pair
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		apiUser:   cfg.APIUser,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// XML Response structures for Canada Post tracking API
// ============================================================================

// trackingSummary is the XML response for GET /vis/track/pin/{pin}/summary
type trackingSummary struct {
	XMLName    xml.Name   `xml:"tracking-summary"`
	PINSummary pinSummary `xml:"pin-summary"`
}

type pinSummary struct {
	PIN              string `xml:"pin"`
	EventType        string `xml:"event-type"`
	EventDescription string `xml:"event-description"`
	EventLocation    string `xml:"event-location"`
	EventDateTime    string `xml:"event-date-time"`
}

// messages is the XML error envelope
type messages struct {
	XMLName xml.Name  `xml:"messages"`
	Message []message `xml:"message"`
}

type message struct {
	Code        string `xml:"code"`
	Description string `xml:"description"`
}

// GetTracking retrieves tracking information from the Canada Post API.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, trackingPIN string) (*TrackingResponse, error) {
	path := fmt.Sprintf("/vis/track/pin/%s/summary", trackingPIN)
	resp, err := c.doRequest(ctx, http.MethodGet, path, "application/vnd.cpc.track-v2+xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var summary trackingSummary
	if err := xml.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &TrackingResponse{
		TrackingPIN: summary.PINSummary.PIN,
		Status:      summary.PINSummary.EventType,
		Events: []TrackingEvent{
			{
				Timestamp:   summary.PINSummary.EventDateTime,
				Description: summary.PINSummary.EventDescription,
				Location:    summary.PINSummary.EventLocation,
				Type:        summary.PINSummary.EventType,
			},
		},
	}, nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, accept string) (*http.Response, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Canada Post uses Basic Auth with API user:secret
	auth := base64.StdEncoding.EncodeToString([]byte(c.apiUser + ":" + c.apiSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept-Language", "en-CA")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	return c.httpClient.Do(req)
}

func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	// Try to parse as XML error
	var msgs messages
	if err := xml.Unmarshal(body, &msgs); err == nil && len(msgs.Message) > 0 {
		return &APIError{
			Code:        msgs.Message[0].Code,
			Description: msgs.Message[0].Description,
		}
	}

	return &APIError{
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: string(body),
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
