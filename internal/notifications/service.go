package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/identity"
	"github.com/surveychain/backend/internal/models"
	"github.com/surveychain/backend/pkg/queue"
)

// Service turns notification events into stored notifications.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a notification service over store.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Deliver stores one unread notification for the event's recipient.
func (s *Service) Deliver(ctx context.Context, ev models.NotificationEvent) (models.Notification, error) {
	n := models.Notification{
		ID:        s.newID(),
		UserID:    identity.Normalize(ev.Recipient),
		SurveyID:  ev.SurveyID,
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		Read:      false,
		Timestamp: s.now(),
	}
	if n.UserID == "" {
		return models.Notification{}, errors.New("notification recipient is required")
	}
	if err := s.store.Add(ctx, n); err != nil {
		return models.Notification{}, err
	}
	s.logger.Debug("notification stored",
		zap.String("user_id", n.UserID),
		zap.String("survey_id", n.SurveyID),
		zap.String("type", string(n.Type)),
	)
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.store.ListByUser(ctx, identity.Normalize(userID))
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.MarkRead(ctx, identity.Normalize(userID), id)
}

// Clear removes all of the user's notifications.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.ClearForUser(ctx, identity.Normalize(userID))
}

// DirectDispatcher delivers events synchronously in the request path.
type DirectDispatcher struct {
	service *Service
}

// NewDirectDispatcher creates a dispatcher that stores notifications immediately.
func NewDirectDispatcher(service *Service) *DirectDispatcher {
	return &DirectDispatcher{service: service}
}

// Dispatch stores every event, continuing past failures and returning them joined.
func (d *DirectDispatcher) Dispatch(ctx context.Context, events []models.NotificationEvent) error {
	var errs []error
	for _, ev := range events {
		if _, err := d.service.Deliver(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueueDispatcher hands events to the worker through the Redis job queue.
type QueueDispatcher struct {
	queue *queue.Queue
}

// NewQueueDispatcher creates a dispatcher that enqueues delivery jobs.
func NewQueueDispatcher(q *queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

// Dispatch enqueues all events as one batch; the worker stores them.
func (d *QueueDispatcher) Dispatch(ctx context.Context, events []models.NotificationEvent) error {
	payloads := make([]queue.NotificationPayload, 0, len(events))
	for _, ev := range events {
		payloads = append(payloads, PayloadFromEvent(ev))
	}
	return d.queue.EnqueueNotifications(ctx, payloads...)
}

// PayloadFromEvent converts an event to its queue payload.
func PayloadFromEvent(ev models.NotificationEvent) queue.NotificationPayload {
	return queue.NotificationPayload{
		Recipient: ev.Recipient,
		SurveyID:  ev.SurveyID,
		Type:      string(ev.Type),
		Title:     ev.Title,
		Message:   ev.Message,
	}
}

// EventFromPayload converts a queue payload back to an event.
func EventFromPayload(p queue.NotificationPayload) models.NotificationEvent {
	return models.NotificationEvent{
		Recipient: p.Recipient,
		SurveyID:  p.SurveyID,
		Type:      models.NotificationType(p.Type),
		Title:     p.Title,
		Message:   p.Message,
	}
}
