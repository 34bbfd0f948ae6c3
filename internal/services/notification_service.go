package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/events"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type notificationService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewNotificationService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, n *models.Notification) error {
	now := time.Now()
	n.SentAt = &now
	n.DeliveryStatus = "sent"
	if n.Priority == 0 {
		n.Priority = int(models.PriorityNormal)
	}

	if err := s.repo.Notification().Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// NotifyMany fans a template out to several recipients and publishes one
// bulk event for downstream delivery channels.
func (s *notificationService) NotifyMany(ctx context.Context, recipientIDs []uuid.UUID, template *models.Notification) error {
	for _, recipientID := range recipientIDs {
		id := recipientID
		n := *template
		n.ID = uuid.Nil
		n.RecipientID = &id
		if err := s.Notify(ctx, &n); err != nil {
			s.logger.Error("Failed to store notification", "recipient_id", recipientID, "error", err)
		}
	}

	event := events.NewNotificationEvent(events.EventBulkNotification, events.BulkNotificationEvent{
		RecipientIDs: recipientIDs,
		Title:        template.Title,
		Message:      template.Message,
		Priority:     template.Priority,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish bulk notification: %w", err)
	}
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	return s.repo.Notification().ListByRecipient(ctx, userID, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	notifications, err := s.repo.Notification().ListByRecipient(ctx, userID, 100)
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}

	for _, n := range notifications {
		if n.ID == notificationID {
			return s.repo.Notification().MarkRead(ctx, notificationID, time.Now())
		}
	}
	return ErrNotFound
}
