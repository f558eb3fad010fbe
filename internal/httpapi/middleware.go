package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, HEAD, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Range")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Range, Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestLogger logs one line per request. Query strings are left out so
// signatures never reach the logs.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ctx := c.Request.Context()
		if status >= http.StatusInternalServerError {
			log.Warn(ctx, "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
			return
		}
		log.Debug(ctx, "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}
