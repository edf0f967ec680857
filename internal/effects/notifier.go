package effects

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event string

const (
	EventBookingCreated      Event = "booking_created"
	EventBookingRequested    Event = "booking_requested"
	EventSessionStarted      Event = "session_started"
	EventSessionCancelled    Event = "session_cancelled"
	EventSessionNoShow       Event = "session_no_show"
	EventRescheduleRequested Event = "reschedule_requested"
	EventRescheduleCountered Event = "reschedule_counter_proposed"
	EventRescheduleAccepted  Event = "reschedule_accepted"
	EventRescheduleRejected  Event = "reschedule_rejected"
	EventRescheduleWithdrawn Event = "reschedule_withdrawn"
	EventRescheduleExpired   Event = "reschedule_expired"
)

type Notifier interface {
	Notify(ctx context.Context, userID string, event Event, payload any) error
}

type Message struct {
	UserID  string    `json:"user_id"`
	Event   Event     `json:"event"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisNotifier publishes notifications on a Redis channel for the
// notification service to deliver.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID string, event Event, payload any) error {
	const op = "effects.RedisNotifier.Notify"

	b, err := json.Marshal(Message{UserID: userID, Event: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := n.client.Publish(ctx, n.channel, b).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LogNotifier only logs notifications. Used when Redis is not configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, userID string, event Event, payload any) error {
	n.log.Info("notification",
		slog.String("user_id", userID),
		slog.String("event", string(event)),
		slog.Any("payload", payload),
	)
	return nil
}
