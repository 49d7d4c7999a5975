package recon

import (
	"github.com/tournevent/reconciler/internal/store"
	"github.com/tournevent/reconciler/pkg/courier"
)

// Translate maps a normalized shipment status to the order lifecycle state.
// Pending, in-transit, out-for-delivery, and exception all leave the order
// shipped: the carrier has made no forward progress the platform acts on.
func Translate(status courier.Status) store.OrderStatus {
	switch status {
	case courier.StatusDelivered:
		return store.StatusDelivered
	case courier.StatusReturned:
		return store.StatusReturned
	case courier.StatusRescheduled:
		return store.StatusRescheduled
	default:
		return store.StatusShipped
	}
}
