package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/docrag/internal/pkg/errcode"
	"github.com/xxxsen/docrag/internal/pkg/response"
)

const rateLimitKeys = 10000

type rateLimiter struct {
	limit   int
	window  time.Duration
	buckets *expirable.LRU[string, *rate.Limiter]
}

// RateLimit allows limit requests per window for each tenant and route.
// Requests without a tenant are keyed by client ip. A non-positive limit or
// window disables limiting.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: expirable.NewLRU[string, *rate.Limiter](rateLimitKeys, nil, 2*window),
	}
	return l.handle
}

func (l *rateLimiter) bucket(key string) *rate.Limiter {
	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
	l.buckets.Add(key, b)
	return b
}

func (l *rateLimiter) handle(c *gin.Context) {
	tenantID := TenantID(c)
	key := tenantID
	if key == "" {
		key = "ip:" + c.ClientIP()
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key += "|" + path
	if !l.bucket(key).Allow() {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("tenant_id", tenantID),
			zap.String("ip", c.ClientIP()),
			zap.String("path", path),
		)
		response.Abort(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	c.Next()
}
