package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medmanage/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// requestID tags every request with an id and binds a logger carrying it to the request context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Header(requestIDHeader, id)

		ctxLogger := logger.GetLogger().With(zap.String("request_id", id))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), ctxLogger))
		c.Next()
	}
}
