// Package events publishes account lifecycle notifications to the
// message broker. Delivery is best effort: a publish failure is logged
// and never fails the originating request.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/usermgmt/apiserver/internal/mq"
	"github.com/usermgmt/apiserver/types"
)

// ChannelUserEvents is the broker channel account events are sent to.
const ChannelUserEvents = "user-events"

const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
)

type userEvent struct {
	Event  string    `json:"event"`
	UserID int       `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// Publisher emits account lifecycle events. It satisfies
// services.EventSink.
type Publisher struct {
	mq     *mq.MQ
	logger *slog.Logger
}

func NewPublisher(m *mq.MQ, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{mq: m, logger: logger}
}

func (p *Publisher) UserRegistered(ctx context.Context, user types.User) {
	p.publish(ctx, EventUserRegistered, user)
}

func (p *Publisher) UserUpdated(ctx context.Context, user types.User) {
	p.publish(ctx, EventUserUpdated, user)
}

func (p *Publisher) UserDeleted(ctx context.Context, user types.User) {
	p.publish(ctx, EventUserDeleted, user)
}

func (p *Publisher) publish(ctx context.Context, event string, user types.User) {
	payload, err := json.Marshal(userEvent{
		Event:  event,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("marshal user event", "event", event, "error", err)
		return
	}

	attrs := map[string]string{"event": event}
	if _, err := p.mq.Publish(ctx, ChannelUserEvents, payload, attrs); err != nil {
		p.logger.Error("publish user event", "event", event, "user_id", user.ID, "error", err)
	}
}
