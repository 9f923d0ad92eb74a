package notification

import (
	"context"
	"strings"

	"instauto_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the notification use cases.
type Service interface {
	CreateNotification(ctx context.Context, userID string, notifType NotificationType, message string) (*Notification, error)
	GetNotificationsForUser(ctx context.Context, userID string, page, pageSize int) ([]Notification, *common.Pagination, error)
	MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID string) (int64, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new notification service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		logger: logger.Named("NotificationService"),
	}
}

func (s *ServiceImplementation) CreateNotification(ctx context.Context, userID string, notifType NotificationType, message string) (*Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.ErrBadRequest.WithDetails("Notification recipient is required.")
	}
	n := &Notification{
		UserID:  userID,
		Type:    notifType,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.String("uid", userID), zap.String("type", string(notifType)), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}
	s.logger.Debug("Notification created", zap.String("uid", userID), zap.String("type", string(notifType)))
	return n, nil
}

func (s *ServiceImplementation) GetNotificationsForUser(ctx context.Context, userID string, page, pageSize int) ([]Notification, *common.Pagination, error) {
	notifications, pagination, err := s.repo.GetByUserID(ctx, userID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.String("uid", userID), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return notifications, pagination, nil
}

func (s *ServiceImplementation) MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	err := s.repo.MarkAsRead(ctx, notificationID, userID)
	if err == nil {
		return nil
	}
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr
	}
	s.logger.Error("Failed to mark notification as read", zap.String("id", notificationID.String()), zap.Error(err))
	return common.ErrInternalServer.WithDetails("Could not mark notification as read.")
}

func (s *ServiceImplementation) MarkAllUserNotificationsAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.String("uid", userID), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not mark all notifications as read.")
	}
	return count, nil
}
