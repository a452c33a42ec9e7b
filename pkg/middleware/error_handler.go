package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
)

// APIErrorResponse is the error shape every endpoint returns.
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func newAPIError(c *gin.Context, code, message string, details map[string]string) APIErrorResponse {
	return APIErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

// ErrorHandler renders errors attached via c.Error after the handler chain
// ran. Domain errors map to their HTTP status; anything unknown becomes a
// 500 without leaking its message.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := errors.MapDomainError(c.Errors.Last().Err)
		logError(logger, c, appErr)
		c.JSON(appErr.HTTPStatus, newAPIError(c, appErr.Code, appErr.Message, appErr.Details))
	}
}

// ErrorResponder renders errors from within a handler in the standard shape.
type ErrorResponder struct {
	ctx    *gin.Context
	logger *slog.Logger
}

// NewErrorResponder creates an ErrorResponder bound to the request.
func NewErrorResponder(ctx *gin.Context, logger *slog.Logger) *ErrorResponder {
	return &ErrorResponder{ctx: ctx, logger: logger}
}

// RespondWithError maps any error onto the standard response. Domain errors
// keep their status and code; everything else is reported as a 500.
func (r *ErrorResponder) RespondWithError(err error) {
	r.RespondWithAppError(errors.MapDomainError(err))
}

// RespondWithAppError renders the given application error. Server errors
// are also recorded on the active trace span.
func (r *ErrorResponder) RespondWithAppError(appErr *errors.AppError) {
	logError(r.logger, r.ctx, appErr)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		SetSpanError(r.ctx, appErr)
	}

	r.ctx.JSON(appErr.HTTPStatus, newAPIError(r.ctx, appErr.Code, appErr.Message, appErr.Details))
}

// RespondBadRequest renders a 400 with the given message.
func (r *ErrorResponder) RespondBadRequest(message string) {
	r.RespondWithAppError(errors.ErrBadRequest(message))
}

// RespondInternalError renders a 500 wrapping the given cause.
func (r *ErrorResponder) RespondInternalError(err error) {
	r.RespondWithAppError(errors.ErrInternal("").Wrap(err))
}

func logError(logger *slog.Logger, c *gin.Context, appErr *errors.AppError) {
	level := slog.LevelError
	if appErr.HTTPStatus < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	attrs := []any{
		"code", appErr.Code,
		"message", appErr.Message,
		"status", appErr.HTTPStatus,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"requestId", requestIDFrom(c),
		"clientIP", c.ClientIP(),
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}
	if appErr.Details != nil {
		attrs = append(attrs, "details", appErr.Details)
	}

	logger.Log(c.Request.Context(), level, "API error", attrs...)
}

// AbortWithAppError aborts the request chain, rendering the given error.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, newAPIError(c, appErr.Code, appErr.Message, appErr.Details))
}
