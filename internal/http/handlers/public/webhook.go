package public

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payline-next/internal/http/response"
)

// StripeWebhook 处理器回调入口。
// 签名校验失败一律拒绝，校验通过后交由结账服务处理。
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("stripe_webhook_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	event, err := h.StripeClient.VerifyAndParseWebhook(headers, body, time.Now())
	if err != nil {
		log.Warnw("stripe_webhook_verify_failed", "client_ip", c.ClientIP(), "error", err)
		respondError(c, response.CodeBadRequest, "error.webhook_invalid", err)
		return
	}
	log.Infow("stripe_webhook_received", "event_id", event.EventID, "event_type", event.EventType)

	if err := h.CheckoutService.HandleWebhookEvent(c.Request.Context(), "", event); err != nil {
		log.Warnw("stripe_webhook_handle_failed", "event_id", event.EventID, "error", err)
		respondError(c, response.CodeInternal, "error.webhook_handle_failed", err)
		return
	}
	response.Success(c, gin.H{"accepted": true, "event_id": event.EventID})
}
