// Package mock provides a mock courier implementation for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tournevent/reconciler/pkg/courier"
)

// Client is a mock courier for testing. Statuses can be scripted per
// tracking number; unknown numbers report in_transit.
type Client struct {
	name string

	mu       sync.RWMutex
	statuses map[string]courier.Status
	enhanced map[string]*courier.EnhancedResult

	// Err, when set, is returned by every call.
	Err error
	// EnhancedErr, when set, fails only the enhanced path.
	EnhancedErr error
}

// New creates a new mock courier.
func New(name string) *Client {
	return &Client{
		name:     name,
		statuses: make(map[string]courier.Status),
		enhanced: make(map[string]*courier.EnhancedResult),
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// SetStatus scripts the status reported for a tracking number.
func (c *Client) SetStatus(trackingNumber string, status courier.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[trackingNumber] = status
}

// SetEnhanced scripts the enhanced result reported for a tracking number.
func (c *Client) SetEnhanced(trackingNumber string, result *courier.EnhancedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enhanced[trackingNumber] = result
}

// TrackShipment returns the scripted status for a tracking number.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (courier.Status, error) {
	if c.Err != nil {
		return "", c.Err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if status, ok := c.statuses[trackingNumber]; ok {
		return status, nil
	}
	return courier.StatusInTransit, nil
}

// TrackShipmentEnhanced returns the scripted enhanced result, or a minimal
// one derived from the scripted status.
func (c *Client) TrackShipmentEnhanced(ctx context.Context, trackingNumber string) (*courier.EnhancedResult, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if c.EnhancedErr != nil {
		return nil, c.EnhancedErr
	}

	c.mu.RLock()
	if result, ok := c.enhanced[trackingNumber]; ok {
		c.mu.RUnlock()
		return result, nil
	}
	c.mu.RUnlock()

	status, _ := c.TrackShipment(ctx, trackingNumber)
	return &courier.EnhancedResult{
		Status: status,
		History: []courier.HistoryEvent{
			{
				Status:      status,
				Description: "Mock tracking event",
				Location:    "Toronto, ON",
				Timestamp:   time.Now(),
				Current:     true,
			},
		},
	}, nil
}

var _ courier.EnhancedTracker = (*Client)(nil)
