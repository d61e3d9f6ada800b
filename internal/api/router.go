package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"igfetch/pkg/logger"
)

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-ID"

// NewRouter builds the gin engine with recovery, request ids, access logs
// and CORS, and registers all routes
func NewRouter(handlers *Handlers, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(log))

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	RegisterRoutes(router, handlers)
	return router
}

// RequestID reuses the caller's request id or assigns a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration":    time.Since(start),
			"request_id":  c.GetString("request_id"),
		}
		if c.Writer.Status() >= 500 {
			log.WarnWithFields("request served", fields)
			return
		}
		log.DebugWithFields("request served", fields)
	}
}
