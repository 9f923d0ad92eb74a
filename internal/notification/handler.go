package notification

import (
	"net/http"

	"instauto_backend/internal/common"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("NotificationHandler"),
	}
}

// RegisterRoutes mounts the inbox of the resolved principal under
// /notifications. requireProfile must run before the handlers.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireProfile gin.HandlerFunc) {
	group := router.Group("/notifications", requireProfile)
	{
		group.GET("", h.getNotifications)
		group.POST("/:notification_id/mark-read", h.markNotificationAsRead)
		group.POST("/mark-all-read", h.markAllNotificationsAsRead)
	}
}

func (h *Handler) userID(c *gin.Context) (string, bool) {
	identity, ok := shared.IdentityFromContext(c)
	if !ok || identity.ID == "" {
		common.RespondWithError(c, common.ErrUnauthenticated)
		return "", false
	}
	return identity.ID, true
}

func (h *Handler) getNotifications(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)

	notifications, pagination, err := h.service.GetNotificationsForUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Notifications retrieved successfully.", notifications, pagination)
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	notificationID, err := uuid.Parse(c.Param("notification_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid notification ID format."))
		return
	}

	if err := h.service.MarkNotificationAsRead(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "Notification marked as read successfully.", nil)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	count, err := h.service.MarkAllUserNotificationsAsRead(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read successfully.", gin.H{"updated": count})
}
