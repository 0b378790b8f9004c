package middleware

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/pkg/logger"
	"github.com/d60-Lab/anotoki/pkg/response"
)

// Recovery 为每个请求挂一个 Sentry hub，panic 时上报并返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		c.Request = c.Request.WithContext(sentry.SetHubOnContext(c.Request.Context(), hub))

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			if id := ViewerID(c); id != "" {
				hub.Scope().SetUser(sentry.User{ID: id})
			}
			hub.RecoverWithContext(c.Request.Context(), rec)
			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			e := apperror.ErrInternal
			c.AbortWithStatusJSON(e.Status, response.ErrorResponse{Error: response.ErrorBody{
				Code:    string(e.Code),
				Message: e.Message,
				Details: map[string]any{"messageKey": apperror.MessageKey(e.Code)},
			}})
		}()
		c.Next()
	}
}
