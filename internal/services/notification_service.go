package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// SendNotificationInput is an admin message for one user, or for everyone when All is set.
type SendNotificationInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
	UserID  *uint  `json:"user_id" validate:"omitempty,gt=0"`
	All     bool   `json:"all"`
}

// NotificationService manages in-app notifications and turns order events into them.
type NotificationService struct {
	repo  repositories.NotificationRepository
	users repositories.UserRepository
	log   logrus.FieldLogger
}

func NewNotificationService(repo repositories.NotificationRepository, users repositories.UserRepository, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{repo: repo, users: users, log: log}
}

// HandleOrderEvent is the events.Handler used by the broker consumers.
func (s *NotificationService) HandleOrderEvent(ctx context.Context, e events.OrderEvent) error {
	n := &models.Notification{UserID: e.UserID}
	switch e.Type {
	case events.TypeOrderCreated:
		n.Title = "Order placed"
		n.Message = fmt.Sprintf("Your order %s for %s has been placed.", e.OrderNumber, e.TotalAmount.StringFixed(2))
	case events.TypeOrderStatusChanged:
		n.Title = fmt.Sprintf("Order %s", e.Status)
		n.Message = fmt.Sprintf("Your order %s is now %s.", e.OrderNumber, e.Status)
	default:
		s.log.WithField("event", e.Type).Debug("ignoring unknown event")
		return nil
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"event": e.Type, "order_number": e.OrderNumber, "user_id": e.UserID}).Debug("notification created")
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkRead flags a notification as read. Only the recipient may do this.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.Forbidden("access denied")
	}
	if n.IsRead {
		return nil
	}
	return s.repo.SetRead(ctx, id, true)
}

// Send stores an admin message for the chosen recipients and returns their ids.
func (s *NotificationService) Send(ctx context.Context, in SendNotificationInput) ([]uint, error) {
	title, message := strings.TrimSpace(in.Title), strings.TrimSpace(in.Message)
	if title == "" || message == "" {
		return nil, apperr.Validation("title and message are required", nil)
	}
	if in.All == (in.UserID != nil) {
		return nil, apperr.Validation("set either user_id or all", nil)
	}

	var recipients []uint
	if in.All {
		ids, err := s.users.IDs(ctx)
		if err != nil {
			return nil, err
		}
		recipients = ids
	} else {
		user, err := s.users.GetByID(ctx, *in.UserID)
		if err != nil {
			return nil, err
		}
		recipients = []uint{user.ID}
	}

	list := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		list = append(list, models.Notification{UserID: id, Title: title, Message: message})
	}
	if err := s.repo.CreateBatch(ctx, list); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"title": title, "recipients": len(recipients)}).Info("notification sent")
	return recipients, nil
}

// ListAll returns every notification with its recipient, newest first.
func (s *NotificationService) ListAll(ctx context.Context, page repositories.Pagination) ([]repositories.NotificationWithUser, int64, error) {
	return s.repo.List(ctx, page)
}

// SetRead lets an admin flag any notification as read or unread.
func (s *NotificationService) SetRead(ctx context.Context, id uint, read bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetRead(ctx, id, read)
}

func (s *NotificationService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
