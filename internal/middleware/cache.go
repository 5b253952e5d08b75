package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/libris-api/internal/service"
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// CacheResponse serves GET responses from Redis keyed by request URI.
// Only 200 responses are stored; mutating circulation operations flush the
// prefix via CacheService.Invalidate.
func CacheResponse(cache *service.CacheService, prefix string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cache.Enabled() || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := prefix + c.Request.URL.RequestURI()
		var cached cachedResponse
		hit, err := cache.Get(c.Request.Context(), key, &cached)
		if err == nil && hit {
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		writer := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		if writer.Status() != http.StatusOK {
			return
		}
		_ = cache.Set(c.Request.Context(), key, cachedResponse{
			Status:      writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.buf.Bytes(),
		}, ttl)
	}
}
