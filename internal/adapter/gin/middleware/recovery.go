package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// It must run inside Logger and Metrics so recovered requests are still
// logged and counted.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithContext(c.Request.Context(), log).Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   apperrors.CodeInternal,
					"message": apperrors.InternalClientMessage,
				})
			}
		}()
		c.Next()
	}
}
