package canadapost_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/tournevent/reconciler/pkg/courier/canadapost"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *canadapost.MockAPIClient) *canadapost.Client {
	logger := otelzap.New(zap.NewNop())
	return canadapost.NewWithAPIClient(
		canadapost.Config{},
		mockClient,
		logger,
		nil,
	)
}

func TestNew_CompositeKeyValidation(t *testing.T) {
	logger := otelzap.New(zap.NewNop())

	tests := []struct {
		name   string
		apiKey string
	}{
		{"empty", ""},
		{"no separator", "justonevalue"},
		{"empty user", ":secret"},
		{"empty secret", "user:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := canadapost.New(canadapost.Config{APIKey: tt.apiKey}, logger, nil)
			require.Error(t, err)
			assert.True(t, courier.IsConfiguration(err))
		})
	}
}

func TestNew_ValidCompositeKey(t *testing.T) {
	logger := otelzap.New(zap.NewNop())

	client, err := canadapost.New(canadapost.Config{APIKey: "apiuser:apisecret"}, logger, nil)

	require.NoError(t, err)
	assert.Equal(t, "canadapost", client.Name())
}

func TestClient_TrackShipment_Success(t *testing.T) {
	mockAPI := canadapost.NewMockAPIClient()
	client := newTestClient(mockAPI)

	ctx := context.Background()
	status, err := client.TrackShipment(ctx, "1234567890123456")

	require.NoError(t, err)
	assert.Equal(t, courier.StatusInTransit, status)
}

func TestClient_TrackShipment_EventTypeMapping(t *testing.T) {
	tests := []struct {
		eventType string
		want      courier.Status
	}{
		{"DELIVERED", courier.StatusDelivered},
		{"RETURN_TO_SENDER", courier.StatusReturned},
		{"UNDELIVERABLE", courier.StatusReturned},
		{"ATTEMPTED_DELIVERY", courier.StatusRescheduled},
		{"OUT_FOR_DELIVERY", courier.StatusOutForDelivery},
		{"INDUCTION", courier.StatusPending},
		{"DELAYED", courier.StatusException},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			mockAPI := canadapost.NewMockAPIClient()
			mockAPI.OnGetTracking = func(ctx context.Context, trackingPIN string) (*canadapost.TrackingResponse, error) {
				return &canadapost.TrackingResponse{
					TrackingPIN: trackingPIN,
					Status:      tt.eventType,
				}, nil
			}

			client := newTestClient(mockAPI)

			status, err := client.TrackShipment(context.Background(), "PIN1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClient_TrackShipment_APIError(t *testing.T) {
	mockAPI := canadapost.NewMockAPIClient()
	mockAPI.SimulateErrors = true

	client := newTestClient(mockAPI)

	_, err := client.TrackShipment(context.Background(), "PIN1")

	require.Error(t, err)
	var cErr *courier.Error
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "canadapost", cErr.Carrier)
}
