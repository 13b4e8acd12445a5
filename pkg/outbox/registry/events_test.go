package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorledger/pkg/config"
	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	"github.com/angelmondragon/vendorledger/pkg/outbox"
	"github.com/angelmondragon/vendorledger/pkg/outbox/payloads"
)

func newTestRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{SettlementTopic: "settlement-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return payload
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}

func TestResolveSettledEvent(t *testing.T) {
	reg := newTestRegistry(t)
	vendorOrderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventVendorOrderSettled,
		AggregateType: enums.AggregateVendorOrder,
		AggregateID:   vendorOrderID,
		Payload: envelopeFor(t, payloads.VendorOrderSettledEvent{
			VendorOrderID: vendorOrderID,
			VendorAmount:  decimal.RequireFromString("90.00"),
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "settlement-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.VendorOrderSettledEvent)
	require.True(t, ok)
	assert.Equal(t, vendorOrderID, payload.VendorOrderID)
	assert.True(t, payload.VendorAmount.Equal(decimal.NewFromInt(90)))
}

func TestEveryEventTypeIsRegistered(t *testing.T) {
	reg := newTestRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventPayoutRequested,
		enums.EventPayoutCompleted,
		enums.EventPayoutRejected,
		enums.EventPayoutCancelled,
		enums.EventVendorOrdersSplit,
		enums.EventVendorOrderStatus,
		enums.EventVendorOrderSettled,
		enums.EventCommissionChanged,
	} {
		_, ok := reg.entries[eventType]
		assert.True(t, ok, eventType)
	}
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := newTestRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     enums.OutboxEventType("mystery"),
			AggregateType: enums.AggregatePayout,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, map[string]string{}),
		},
		"aggregate mismatch": {
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregateVendorOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, payloads.PayoutCompletedEvent{}),
		},
		"missing aggregate id": {
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			Payload:       envelopeFor(t, payloads.PayoutCompletedEvent{}),
		},
		"null data": {
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, nil),
		},
		"broken envelope": {
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry))
		})
	}
}
