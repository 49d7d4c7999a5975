package recon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/reconciler/internal/recon"
	"github.com/tournevent/reconciler/internal/store"
	"github.com/tournevent/reconciler/pkg/courier"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		in   courier.Status
		want store.OrderStatus
	}{
		{courier.StatusPending, store.StatusShipped},
		{courier.StatusInTransit, store.StatusShipped},
		{courier.StatusOutForDelivery, store.StatusShipped},
		{courier.StatusException, store.StatusShipped},
		{courier.StatusDelivered, store.StatusDelivered},
		{courier.StatusReturned, store.StatusReturned},
		{courier.StatusRescheduled, store.StatusRescheduled},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, recon.Translate(tt.in))
		})
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	for _, status := range courier.Statuses() {
		first := recon.Translate(status)
		second := recon.Translate(status)
		assert.Equal(t, first, second, "translating %s twice must agree", status)
	}
}

func TestTranslate_NonTerminalStatusesStayOpen(t *testing.T) {
	for _, status := range courier.Statuses() {
		if status == courier.StatusDelivered || status == courier.StatusReturned {
			continue
		}
		got := recon.Translate(status)
		assert.False(t, got.Terminal(), "%s must not translate to a terminal state", status)
		assert.Contains(t, []store.OrderStatus{store.StatusShipped, store.StatusRescheduled}, got)
	}
}
