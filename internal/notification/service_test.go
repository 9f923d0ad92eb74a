package notification

import (
	"context"
	"errors"
	"testing"

	"instauto_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock type for notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	args := m.Called(ctx, notification)
	if args.Error(0) == nil && notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID string, page, pageSize int) ([]Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, page, pageSize)
	var notifications []Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]Notification)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return notifications, pagination, args.Error(2)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, notificationID uuid.UUID, userID string) (*Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type NotificationServiceTestSuite struct {
	service       Service
	mockNotifRepo *MockNotificationRepository
}

func setupNotificationServiceTestSuite(t *testing.T) *NotificationServiceTestSuite {
	ts := &NotificationServiceTestSuite{}
	ts.mockNotifRepo = new(MockNotificationRepository)
	ts.service = NewService(ts.mockNotifRepo, zap.NewNop())
	return ts
}

func TestNotificationService_CreateNotification_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := "uid-oficina-1"
	message := "Seu plano Pro expirou."

	ts.mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Run(func(args mock.Arguments) {
		notifArg := args.Get(1).(*Notification)
		assert.Equal(t, userID, notifArg.UserID)
		assert.Equal(t, PlanDowngraded, notifArg.Type)
		assert.Equal(t, message, notifArg.Message)
		assert.False(t, notifArg.IsRead)
	}).Return(nil)

	created, err := ts.service.CreateNotification(ctx, userID, PlanDowngraded, message)

	assert.NoError(t, err)
	if assert.NotNil(t, created) {
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, userID, created.UserID)
	}
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_CreateNotification_Error(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()

	ts.mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Return(errors.New("repo error"))

	created, err := ts.service.CreateNotification(ctx, "uid-1", PlanDowngraded, "test")

	assert.Nil(t, created)
	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, common.ErrInternalServer.Code, apiErr.Code)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_CreateNotification_RequiresRecipient(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)

	_, err := ts.service.CreateNotification(context.Background(), "  ", PlanDowngraded, "test")

	assert.ErrorIs(t, err, common.ErrBadRequest)
	ts.mockNotifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotificationService_GetNotificationsForUser_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := "uid-1"
	page, pageSize := 1, 5

	mockNotifications := []Notification{
		{ID: uuid.New(), UserID: userID, Message: "Notif 1"},
		{ID: uuid.New(), UserID: userID, Message: "Notif 2"},
	}
	mockPagination := common.NewPagination(2, page, pageSize)

	ts.mockNotifRepo.On("GetByUserID", ctx, userID, page, pageSize).Return(mockNotifications, mockPagination, nil)

	notifications, pagination, err := ts.service.GetNotificationsForUser(ctx, userID, page, pageSize)

	assert.NoError(t, err)
	assert.Len(t, notifications, 2)
	assert.Equal(t, mockPagination, pagination)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_GetNotificationsForUser_Error(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()

	ts.mockNotifRepo.On("GetByUserID", ctx, "uid-1", 1, 5).Return(nil, nil, errors.New("repo error"))

	notifications, pagination, err := ts.service.GetNotificationsForUser(ctx, "uid-1", 1, 5)

	assert.Nil(t, notifications)
	assert.Nil(t, pagination)
	assert.ErrorIs(t, err, common.ErrInternalServer)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_MarkNotificationAsRead(t *testing.T) {
	ctx := context.Background()
	notificationID := uuid.New()

	t.Run("success", func(t *testing.T) {
		ts := setupNotificationServiceTestSuite(t)
		ts.mockNotifRepo.On("MarkAsRead", ctx, notificationID, "uid-1").Return(nil)

		assert.NoError(t, ts.service.MarkNotificationAsRead(ctx, notificationID, "uid-1"))
		ts.mockNotifRepo.AssertExpectations(t)
	})

	t.Run("not found keeps api error", func(t *testing.T) {
		ts := setupNotificationServiceTestSuite(t)
		ts.mockNotifRepo.On("MarkAsRead", ctx, notificationID, "uid-1").
			Return(common.ErrNotFound.WithDetails("Notification not found or not owned by user."))

		err := ts.service.MarkNotificationAsRead(ctx, notificationID, "uid-1")

		apiErr, ok := common.IsAPIError(err)
		assert.True(t, ok)
		assert.Equal(t, common.ErrNotFound.Code, apiErr.Code)
	})

	t.Run("unexpected error is hidden", func(t *testing.T) {
		ts := setupNotificationServiceTestSuite(t)
		ts.mockNotifRepo.On("MarkAsRead", ctx, notificationID, "uid-1").Return(errors.New("disk full"))

		assert.ErrorIs(t, ts.service.MarkNotificationAsRead(ctx, notificationID, "uid-1"), common.ErrInternalServer)
	})
}

func TestNotificationService_MarkAllUserNotificationsAsRead(t *testing.T) {
	ctx := context.Background()

	ts := setupNotificationServiceTestSuite(t)
	ts.mockNotifRepo.On("MarkAllAsRead", ctx, "uid-1").Return(int64(5), nil)
	count, err := ts.service.MarkAllUserNotificationsAsRead(ctx, "uid-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)

	ts = setupNotificationServiceTestSuite(t)
	ts.mockNotifRepo.On("MarkAllAsRead", ctx, "uid-1").Return(int64(0), errors.New("repo error"))
	count, err = ts.service.MarkAllUserNotificationsAsRead(ctx, "uid-1")
	assert.Equal(t, int64(0), count)
	assert.ErrorIs(t, err, common.ErrInternalServer)
}
