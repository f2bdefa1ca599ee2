package api

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// ChangeSubscriber opens a subscription to a tenant's change events
type ChangeSubscriber interface {
	SubscribeChanges(ctx context.Context, tenantID string) *redis.PubSub
}

// streamChanges forwards the tenant's change events as server-sent events
// until the client goes away
func (h *Handler) streamChanges(c *gin.Context) {
	ctx := c.Request.Context()
	sub := h.changes.SubscribeChanges(ctx, actorOf(c).TenantID)
	defer sub.Close()

	messages := sub.Channel()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("change", msg.Payload)
			return true
		}
	})
}
