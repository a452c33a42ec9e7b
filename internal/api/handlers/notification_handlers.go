package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/api"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

// NotificationHandlers contains handlers for notification preferences and dispatch
type NotificationHandlers struct {
	service *application.NotificationApplicationService
	logger  *logging.Logger
}

// NewNotificationHandlers creates a new NotificationHandlers
func NewNotificationHandlers(service *application.NotificationApplicationService, logger *logging.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers notification routes on the router. Guards run
// before every notification handler; deployments with token auth pass
// middleware.RequireUser so per-user preferences are never served to the
// shared fallback user.
func (h *NotificationHandlers) RegisterRoutes(router *gin.RouterGroup, guards ...gin.HandlerFunc) {
	notifications := router.Group("/notifications", guards...)
	{
		notifications.GET("/preferences", h.GetPreferences)
		notifications.PUT("/preferences", h.SavePreferences)
		notifications.POST("/test", h.SendTestNotification)
	}
}

// GetPreferences handles fetching the current user's notification preferences
func (h *NotificationHandlers) GetPreferences(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	query := application.GetPreferencesQuery{UserID: currentUser(c)}

	prefs, err := h.service.GetPreferences(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// SavePreferences handles upserting the current user's notification preferences
func (h *NotificationHandlers) SavePreferences(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		Email       string `json:"email" binding:"omitempty,email"`
		WebhookURL  string `json:"webhookUrl" binding:"omitempty,url"`
		OnArrival   bool   `json:"onArrival"`
		OnDelay     bool   `json:"onDelay"`
		OnStored    bool   `json:"onStored"`
		OnCancelled bool   `json:"onCancelled"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	cmd := application.SavePreferencesCommand{
		UserID:      currentUser(c),
		Email:       req.Email,
		WebhookURL:  req.WebhookURL,
		OnArrival:   req.OnArrival,
		OnDelay:     req.OnDelay,
		OnStored:    req.OnStored,
		OnCancelled: req.OnCancelled,
	}

	prefs, err := h.service.SavePreferences(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// SendTestNotification handles dispatching a test notification to the
// current user's webhook
func (h *NotificationHandlers) SendTestNotification(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	cmd := application.TestNotificationCommand{UserID: currentUser(c)}

	delivery, err := h.service.SendTestNotification(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, delivery)
}

// currentUser resolves the authenticated user; preferences are keyed per
// user so unauthenticated deployments share one record
func currentUser(c *gin.Context) string {
	if user := middleware.GetUser(c); user != "" {
		return user
	}
	return "default"
}
