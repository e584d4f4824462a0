package notification

import (
	"context"
	"encoding/json"
	"time"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	// Notify records an in-app notification and publishes the event to the
	// outbound queue. Best-effort: failures are logged, never returned, so
	// a committed order mutation is never rolled back by its notification.
	Notify(ctx context.Context, userID uint, typ, message string, metadata map[string]any)

	ListByUser(ctx context.Context, userID uint, limit int32) ([]*Notification, error)
	MarkRead(ctx context.Context, id, userID uint) error
}

type service struct {
	repo      Repository
	publisher Publisher
}

func NewService(repo Repository, publisher Publisher) Service {
	return &service{repo: repo, publisher: publisher}
}

func (s *service) Notify(ctx context.Context, userID uint, typ, message string, metadata map[string]any) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Notify"),
		zap.Uint("user_id", userID),
		zap.String("type", typ),
	)

	raw, err := json.Marshal(metadata)
	if err != nil {
		log.Error("failed to marshal notification metadata", zap.Error(err))
		raw = []byte("{}")
	}

	n := &Notification{
		UserID:   userID,
		Type:     typ,
		Message:  message,
		Metadata: raw,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Error("failed to record notification", zap.Error(err))
	}

	if s.publisher == nil {
		return
	}

	ev := Event{
		EventID:    uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		Message:    message,
		Metadata:   raw,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Error("failed to publish notification event", zap.Error(err))
	}
}

func (s *service) ListByUser(ctx context.Context, userID uint, limit int32) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *service) MarkRead(ctx context.Context, id, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID)
}
