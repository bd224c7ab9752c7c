package events

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPublishing_Envelope(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	userID := "3f1c2a9e-0000-4000-8000-000000000001"
	env := Envelope{
		SchemaVersion: 1,
		EventType:     TimerFinalized,
		OccurredAt:    "2026-03-10T17:00:00Z",
		Environment:   "production",
		RequestID:     "req-42",
		UserID:        &userID,
		Payload:       map[string]int{"duration": 90},
	}

	msg, err := buildPublishing(TimerFinalized, env, at)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.NotEmpty(t, msg.MessageId)
	assert.Equal(t, at.UTC(), msg.Timestamp)
	assert.Equal(t, TimerFinalized, msg.Type)
	assert.Equal(t, "rally-backend", msg.AppId)
	assert.Equal(t, "req-42", msg.CorrelationId)
	assert.Equal(t, int32(1), msg.Headers["schema_version"])
	assert.Equal(t, "production", msg.Headers["environment"])
	assert.Equal(t, userID, msg.Headers["user_id"])

	var decoded Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, TimerFinalized, decoded.EventType)
	assert.Equal(t, "req-42", decoded.RequestID)
}

func TestBuildPublishing_AnonymousEnvelopeOmitsUserHeader(t *testing.T) {
	msg, err := buildPublishing(ClassJoined, Envelope{SchemaVersion: 1, EventType: ClassJoined}, time.Now())
	require.NoError(t, err)

	_, ok := msg.Headers["user_id"]
	assert.False(t, ok)
}

func TestBuildPublishing_RawEventUsesRoutingKey(t *testing.T) {
	msg, err := buildPublishing("custom.key", map[string]string{"a": "b"}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "custom.key", msg.Type)
	assert.Nil(t, msg.Headers)
	assert.Empty(t, msg.CorrelationId)
	assert.JSONEq(t, `{"a":"b"}`, string(msg.Body))
}

func TestBuildPublishing_MessageIDsAreUnique(t *testing.T) {
	a, err := buildPublishing(TimerStarted, Envelope{EventType: TimerStarted}, time.Now())
	require.NoError(t, err)
	b, err := buildPublishing(TimerStarted, Envelope{EventType: TimerStarted}, time.Now())
	require.NoError(t, err)

	assert.NotEqual(t, a.MessageId, b.MessageId)
}

func TestBuildPublishing_UnencodableEvent(t *testing.T) {
	_, err := buildPublishing(TimerStarted, make(chan int), time.Now())
	assert.Error(t, err)
}
