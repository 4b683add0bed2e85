package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/thoughtspace/internal/pkg/errcode"
	"github.com/xxxsen/thoughtspace/internal/pkg/response"
)

const rateLimitEntries = 4096

type rateLimiter struct {
	window time.Duration
	last   *lru.Cache[string, time.Time]
	now    func() time.Time
}

// RateLimit allows one request per window per client/path pair. The entry
// set is LRU-bounded, so a very old client may occasionally get one free
// extra request instead of a block.
func RateLimit(window time.Duration) gin.HandlerFunc {
	cache, _ := lru.New[string, time.Time](rateLimitEntries)
	limiter := &rateLimiter{
		window: window,
		last:   cache,
		now:    time.Now,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, path}, "|")

	now := l.now()
	if last, ok := l.last.Get(key); ok && now.Sub(last) < l.window {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("path", path),
		)
		response.Error(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	l.last.Add(key, now)
	c.Next()
}
