package application

import (
	"context"
	"time"
)

// Event names published on the user lifecycle queue.
const (
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserSoftDeleted = "user.soft_deleted"
	EventUserRestored    = "user.restored"
	EventUserHardDeleted = "user.hard_deleted"
)

// UserEvent is the JSON message consumed by downstream workers.
type UserEvent struct {
	Event      string    `json:"event"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is satisfied by helpers.RabbitPublisher. A nil publisher
// disables event publishing without failing the use case.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

func (s *Service) publishEvent(ctx context.Context, event, userID, email string) {
	if s.Events == nil {
		return
	}
	msg := UserEvent{Event: event, UserID: userID, Email: email, OccurredAt: time.Now().UTC()}
	if err := s.Events.PublishJSON(ctx, msg); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("event", event).Warn("event publish failed")
	}
}
