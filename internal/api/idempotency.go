package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	inFlightTTL          = 30 * time.Second
)

// IdempotencyStore keeps the first successful response per idempotency key
type IdempotencyStore interface {
	LoadResponse(ctx context.Context, key string) (*redisclient.CachedResponse, error)
	SaveResponse(ctx context.Context, key string, resp *redisclient.CachedResponse, ttl time.Duration) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// recordingWriter copies the response body as it is written
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotencyMiddleware replays the stored response when a mutating request
// repeats an Idempotency-Key. Keys are scoped to the tenant; only 2xx
// responses are stored, so a failed request can be retried with its key.
func idempotencyMiddleware(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(headerIdempotencyKey)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		scoped := actorOf(c).TenantID + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		ctx := c.Request.Context()
		logger := util.LoggerFromContext(ctx, nil)

		cached, err := store.LoadResponse(ctx, scoped)
		if err != nil {
			logger.Warn("Idempotency lookup failed, processing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if cached != nil {
			util.IdempotentReplaysTotal.Inc()
			c.Header(headerReplayed, "true")
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		acquired, err := store.AcquireLock(ctx, scoped, inFlightTTL)
		if err != nil {
			logger.Warn("Idempotency lock failed, processing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A request with this Idempotency-Key is in progress"})
			return
		}
		defer func() {
			if err := store.ReleaseLock(context.Background(), scoped); err != nil {
				logger.Warn("Failed to release idempotency lock", zap.String("key", key), zap.Error(err))
			}
		}()

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < 200 || status >= 300 {
			return
		}
		resp := &redisclient.CachedResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := store.SaveResponse(context.Background(), scoped, resp, ttl); err != nil {
			logger.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}
