package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for attempt, d := range want {
		assert.Equal(t, d, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, 30*time.Second, exponentialBackoff(64))
}

func TestIsConnectionError(t *testing.T) {
	transient := []error{
		amqp091.ErrClosed,
		fmt.Errorf("publish: %w", amqp091.ErrClosed),
		errors.New("dial tcp 127.0.0.1:5672: connect: connection refused"),
		errors.New("unexpected EOF"),
		errors.New("write: broken pipe"),
		errors.New("Exception (504) Reason: \"channel/connection is not open\""),
	}
	for _, err := range transient {
		assert.True(t, isConnectionError(err), err.Error())
	}

	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("PRECONDITION_FAILED - inequivalent arg 'durable'")))
}

func TestPublishRefusedWhileCircuitOpen(t *testing.T) {
	client := newClient("amqp://unused", "bounty", "sale_events")
	for i := 0; i < maxFailures; i++ {
		client.breaker.Failure()
	}
	require.Equal(t, StateOpen, client.BreakerState())

	err := client.PublishSaleEvent(context.Background(), "sale-1", OperationUpsert)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	err = client.PublishAlertDigest(context.Background(), &AlertDigestMessage{Date: "2024-04-10"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	client := newClient("amqp://unused", "bounty", "sale_events")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.PublishSaleEvent(ctx, "sale-1", OperationDelete)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, client.BreakerState(), "a cancelled call is not a broker failure")
}

func TestCloseWithoutConnection(t *testing.T) {
	client := newClient("amqp://unused", "bounty", "sale_events")
	assert.NoError(t, client.Close())
}

func TestSaleEventMessage(t *testing.T) {
	before := time.Now()
	msg := NewSaleEventMessage("sale-7", OperationUpsert)
	assert.Equal(t, "sale-7", msg.SaleID)
	assert.Equal(t, OperationUpsert, msg.Operation)
	assert.False(t, msg.Timestamp.Before(before))

	body, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"saleId":"sale-7"`)
	assert.Contains(t, string(body), `"operation":"upsert"`)

	parsed, err := SaleEventMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.SaleID, parsed.SaleID)
	assert.Equal(t, msg.Operation, parsed.Operation)
	assert.True(t, msg.Timestamp.Equal(parsed.Timestamp))
}

func TestSaleEventMessageFromJSONRejects(t *testing.T) {
	tests := map[string]string{
		"not json":          `{`,
		"missing id":        `{"operation":"upsert"}`,
		"unknown operation": `{"saleId":"sale-1","operation":"archive"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := SaleEventMessageFromJSON([]byte(body))
			assert.Error(t, err)
		})
	}
}

type recordingAck struct {
	acks    int
	nacks   int
	requeue bool
}

func (r *recordingAck) Ack(bool) error { r.acks++; return nil }

func (r *recordingAck) Nack(_ bool, requeue bool) error {
	r.nacks++
	r.requeue = requeue
	return nil
}

func TestSettle(t *testing.T) {
	valid := []byte(`{"saleId":"sale-1","operation":"delete","timestamp":"2024-04-10T09:00:00Z"}`)

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantAcks    int
		wantNacks   int
		wantRequeue bool
		wantCalled  bool
	}{
		{name: "handled", body: valid, wantAcks: 1, wantCalled: true},
		{name: "handler fails", body: valid, handlerErr: errors.New("store down"), wantNacks: 1, wantRequeue: true, wantCalled: true},
		{name: "poison message", body: []byte(`garbage`), wantNacks: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAck{}
			var got *SaleEventMessage
			settle(context.Background(), ack, tt.body, func(_ context.Context, m *SaleEventMessage) error {
				got = m
				return tt.handlerErr
			})

			assert.Equal(t, tt.wantAcks, ack.acks)
			assert.Equal(t, tt.wantNacks, ack.nacks)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
			if tt.wantCalled {
				require.NotNil(t, got)
				assert.Equal(t, OperationDelete, got.Operation)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestAlertDigestMessageJSON(t *testing.T) {
	digest := &AlertDigestMessage{
		Date:       "2024-04-10",
		WindowDays: 14,
		Overdue:    1,
		DueSoon:    2,
		Items: []AlertDigestItem{
			{SaleID: "sale-1", IMEI: "490154203237518", MonthNumber: 2, CheckDate: "2024-04-15", DaysUntilCheck: 5, Status: "DUE_SOON"},
		},
		GeneratedAt: time.Date(2024, 4, 10, 6, 0, 0, 0, time.UTC),
	}

	body, err := digest.ToJSON()
	require.NoError(t, err)

	parsed, err := AlertDigestMessageFromJSON(body)
	require.NoError(t, err)
	assert.True(t, digest.GeneratedAt.Equal(parsed.GeneratedAt))
	parsed.GeneratedAt = digest.GeneratedAt
	assert.Equal(t, digest, parsed)

	_, err = AlertDigestMessageFromJSON([]byte(`[1,2]`))
	assert.Error(t, err)
}
