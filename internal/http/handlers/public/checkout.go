package public

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/payline-next/internal/http/response"
	"github.com/payline-next/internal/payment/flow"
	"github.com/payline-next/internal/service"
)

// PayOrderRequest 支付请求体。
// 新卡 token 与已保存支付方式二选一。
type PayOrderRequest struct {
	PaymentMethodToken string `json:"payment_method_token"`
	SavedMethodID      string `json:"saved_method_id"`
}

// PayOrder 对订单发起支付
func (h *Handler) PayOrder(c *gin.Context) {
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}
	var req PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	var method flow.PaymentMethod
	switch {
	case strings.TrimSpace(req.PaymentMethodToken) != "":
		method = flow.NewCardPaymentMethod(strings.TrimSpace(req.PaymentMethodToken))
	case strings.TrimSpace(req.SavedMethodID) != "":
		method = flow.SavedPaymentMethod(strings.TrimSpace(req.SavedMethodID))
	default:
		respondError(c, response.CodeBadRequest, "error.payment_method_required", nil)
		return
	}

	sid := h.sessionID(c)
	result, err := h.CheckoutService.ProcessPayment(c.Request.Context(), sid, orderID, method)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
		case errors.Is(err, service.ErrOrderNotPayable):
			respondError(c, response.CodeBadRequest, "error.order_not_payable", nil)
		case errors.Is(err, service.ErrPaymentFailed):
			respondError(c, response.CodeInternal, "error.payment_failed", err)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	payload := gin.H{
		"order_id":      result.OrderID,
		"paid":          result.Paid,
		"reused_intent": result.ReusedIntent,
	}
	if result.DuplicateOf != 0 {
		payload["duplicate_of"] = result.DuplicateOf
	}
	if result.Intent != nil {
		payload["intent_id"] = result.Intent.ID
		payload["intent_status"] = result.Intent.Status
		payload["client_secret"] = result.Intent.ClientSecret
	}
	response.Success(c, payload)
}
