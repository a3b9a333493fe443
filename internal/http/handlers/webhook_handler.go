package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pull-party-bot/internal/http/middleware"
)

// Webhook godoc
// @ID          webhook
// @Summary     Receive a platform update
// @Description Accepts one update and queues it for the dispatcher. Ignored update kinds are acknowledged with 200.
// @Description When the queue stays full for the enqueue wait the platform gets 503 and will redeliver.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       secret  path  string  true  "Webhook secret path segment"
// @Param       body    body  object  true  "Platform update"
//
// @Success     200  {string} string "Accepted or ignored"
// @Failure     400  {object} handlers.ErrorResponse "Malformed update"
// @Failure     503  {object} handlers.ErrorResponse "Update queue is full"
// @Router      /webhook/{secret} [post]
func (h *Handlers) Webhook(c *gin.Context) {
	u, accepted, err := h.decoder.DecodeWebhook(c.Request)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("webhook decode failed")
		fail(c, http.StatusBadRequest, ErrCodeBadUpdate, "malformed update")
		return
	}
	if !accepted {
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	if h.enqueueWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.enqueueWait)
		defer cancel()
	}
	select {
	case h.updates <- u:
		c.Status(http.StatusOK)
	case <-ctx.Done():
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "update queue is full")
	}
}
