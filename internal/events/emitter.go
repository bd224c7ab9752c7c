package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rally-backend/internal/logging"
	"rally-backend/internal/metrics"
)

const (
	TimerStarted        = "timer.started"
	TimerFinalized      = "timer.finalized"
	FriendshipRequested = "friendship.requested"
	FriendshipAccepted  = "friendship.accepted"
	FriendshipRejected  = "friendship.rejected"
	ClassJoined         = "class.joined"
)

type Envelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Environment   string  `json:"environment"`
	RequestID     string  `json:"request_id"`
	UserID        *string `json:"user_id,omitempty"`
	Payload       any     `json:"payload"`
}

// Emitter wraps payloads in an Envelope and publishes them with the event
// type as routing key. Failures are logged and counted, never returned.
type Emitter struct {
	publisher   Publisher
	environment string
	now         func() time.Time
}

func NewEmitter(publisher Publisher, environment string) *Emitter {
	return &Emitter{publisher: publisher, environment: environment, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, eventType string, userID uuid.UUID, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Environment:   e.environment,
		RequestID:     logging.RequestIDFromContext(ctx),
		Payload:       payload,
	}
	if userID != uuid.Nil {
		id := userID.String()
		envelope.UserID = &id
	}

	if err := e.publisher.Publish(ctx, eventType, envelope); err != nil {
		metrics.IncAMQPPublishError()
		logging.FromContext(ctx).Warn("event publish failed",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
	}
}
