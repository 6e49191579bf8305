package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
)

type responseMeta struct {
	start    time.Time
	cacheHit *bool
}

// WithResponseMeta starts the clock used for meta.processing_time_ms.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit marks whether the payload came from the read-through cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if m := metaOf(c); m != nil {
		m.cacheHit = &hit
	}
}

// ExtractMeta snapshots the response metadata for the envelope. It returns
// nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaOf(c)
	if m == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(m.start).Milliseconds(),
	}
	if m.cacheHit != nil {
		out[cacheHitKey] = *m.cacheHit
	}
	if id := requestid.Value(c); id != "" {
		out["request_id"] = id
	}
	return out
}

func metaOf(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	m, _ := value.(*responseMeta)
	return m
}
