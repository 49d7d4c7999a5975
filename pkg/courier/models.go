package courier

import (
	"time"
)

// Status represents the normalized status of a shipment. It is the sole
// vocabulary adapters are allowed to produce; all provider-specific decoding
// happens inside the adapter.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusReturned       Status = "returned"
	StatusException      Status = "exception"
	StatusRescheduled    Status = "rescheduled"
)

// Statuses lists every normalized shipment status.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusInTransit,
		StatusOutForDelivery,
		StatusDelivered,
		StatusReturned,
		StatusException,
		StatusRescheduled,
	}
}

// HistoryEvent is a single carrier-reported tracking event.
type HistoryEvent struct {
	Status      Status
	Description string
	Location    string
	Timestamp   time.Time
	Current     bool
}

// FinancialInfo is the carrier-reported financial breakdown for a shipment.
// It is informational only and never authoritative for platform pricing.
type FinancialInfo struct {
	Subtotal      float64
	Shipping      float64
	Tax           float64
	Discount      float64
	Total         float64
	Currency      string
	PaymentStatus string
	PaymentMethod string
}

// LocationInfo is the carrier-reported current location of a shipment.
type LocationInfo struct {
	City        string
	Region      string
	Country     string
	Description string
}

// EnhancedResult is the richer tracking payload returned by carriers that
// implement EnhancedTracker. Status is always populated; the remaining
// fields are present only when the carrier reported them.
type EnhancedResult struct {
	Status    Status
	History   []HistoryEvent
	Financial *FinancialInfo
	Location  *LocationInfo
}

// CurrentEvent returns the event flagged as current, or the latest event by
// timestamp when the carrier did not flag one. Returns nil for an empty
// history.
func (r *EnhancedResult) CurrentEvent() *HistoryEvent {
	if r == nil || len(r.History) == 0 {
		return nil
	}
	var latest *HistoryEvent
	for i := range r.History {
		ev := &r.History[i]
		if ev.Current {
			return ev
		}
		if latest == nil || ev.Timestamp.After(latest.Timestamp) {
			latest = ev
		}
	}
	return latest
}
