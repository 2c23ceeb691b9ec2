package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tazhibayda/task-service/internal/metrics"
	"github.com/tazhibayda/task-service/internal/repo"
	"github.com/tazhibayda/task-service/internal/security"
)

const (
	requestIDKey = "X-Request-ID"
	uidKey       = "uid"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Next()
	}
}

func reqID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CORS answers preflights and marks responses for the configured
// origins only.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// APIKeyGate lets requests from trusted origins straight through and
// demands a configured X-API-Key from everyone else (curl, tests,
// third parties).
func APIKeyGate(trustedOrigins, keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = c.GetHeader("Referer")
		}
		for _, trusted := range trustedOrigins {
			if trusted != "" && strings.HasPrefix(origin, trusted) {
				c.Next()
				return
			}
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			failWith(c, http.StatusForbidden, "API key required")
			return
		}
		for _, k := range keys {
			if k != "" && key == k {
				c.Next()
				return
			}
		}
		failWith(c, http.StatusForbidden, "invalid API key")
	}
}

// AuthRequired parses the bearer session token and stores the owner id
// in the request context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			failWith(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		uid, err := security.Parse(secret, strings.TrimSpace(h[len("Bearer "):]))
		if err != nil {
			failWith(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Set(uidKey, uid)
		c.Next()
	}
}

func ownerID(c *gin.Context) string { return c.GetString(uidKey) }

// RateLimit is a Redis fixed-window limiter per client IP. Nil Redis
// disables it.
func RateLimit(rds *repo.Redis, perMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rds == nil || perMin <= 0 {
			c.Next()
			return
		}
		bucket := c.ClientIP() + c.FullPath()
		if !rds.Allow(c.Request.Context(), bucket, perMin, time.Minute) {
			failWith(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
