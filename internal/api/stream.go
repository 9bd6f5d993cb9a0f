package api

import (
	"io"
	"time"

	"checkout-builder/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 25 * time.Second
)

// streamPageChanges handles GET /pages/:id/changes
func (h *Handler) streamPageChanges(c *gin.Context) {
	h.streamChanges(c, models.TableCheckoutPages)
}

// streamOrderChanges handles GET /pages/:id/orders/changes
func (h *Handler) streamOrderChanges(c *gin.Context) {
	h.streamChanges(c, models.TableOrders)
}

// streamChanges sends change events for one page as server-sent events until
// the client goes away. Slow clients lose events rather than block the hub.
func (h *Handler) streamChanges(c *gin.Context, table string) {
	pageID := c.Param("id")
	if _, err := h.pageService.GetPage(c.Request.Context(), currentUser(c), pageID); err != nil {
		respondError(c, err)
		return
	}

	events := make(chan *models.ChangeEvent, streamBuffer)
	sub := h.hub.Subscribe(models.ChannelName(table, pageID), func(ev *models.ChangeEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	defer sub.Unsubscribe()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("subscribed", gin.H{"channel": sub.Channel()})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-h.streamsDone:
			return false
		case ev := <-events:
			c.SSEvent("change", ev)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
