package response

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/pkg/logger"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	Code    string         `json:"code" example:"POST_NOT_FOUND"`
	Message string         `json:"message" example:"Post not found"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse 统一错误包装 {"error": {...}}
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Success 200
func Success(c *gin.Context, data any) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, data)
}

// Created 201
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Unauthorized 401
func Unauthorized(c *gin.Context) {
	Error(c, apperror.ErrUnauthorized)
}

// InternalError 500，不向调用方暴露内部错误
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	capture(c, err)
	writeError(c, apperror.ErrInternal)
}

// Error 把服务层错误翻译为结构化响应；非 AppError 一律按 500 处理
func Error(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		InternalError(c, err)
		return
	}
	if appErr.Status >= http.StatusInternalServerError {
		InternalError(c, err)
		return
	}
	writeError(c, appErr)
}

func writeError(c *gin.Context, e *apperror.AppError) {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details["messageKey"] = apperror.MessageKey(e.Code)

	c.AbortWithStatusJSON(e.Status, ErrorResponse{Error: ErrorBody{
		Code:    string(e.Code),
		Message: e.Message,
		Details: details,
	}})
}

func capture(c *gin.Context, err error) {
	hub := sentry.GetHubFromContext(c.Request.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
