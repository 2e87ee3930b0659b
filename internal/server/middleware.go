package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	headerRequestID = "X-Request-Id"
	ctxKeyRequestID = "requestID"
)

// requestID sets the request id header from the client value when it is a
// valid UUID, a new id is generated otherwise.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		c.Set(ctxKeyRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow() {
			metrics.RateLimitRejects.Inc()

			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})

			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", int(s.opts.RateLimit)))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int(s.rateLimiter.Tokens())))

		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()

		metrics.HTTPRequestCounter.With(prometheus.Labels{"route": route, "code": strconv.Itoa(status)}).Inc()

		entry := s.logger.WithFields(logrus.Fields{
			"requestID": c.GetString(ctxKeyRequestID),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"query":     c.Request.URL.RawQuery,
			"status":    status,
			"duration":  time.Since(start).String(),
			"client":    c.ClientIP(),
		})

		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last())
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		default:
			entry.Debug("request completed")
		}
	}
}
