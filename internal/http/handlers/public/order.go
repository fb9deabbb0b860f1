package public

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/payline-next/internal/http/response"
	"github.com/payline-next/internal/models"
	"github.com/payline-next/internal/repository"
	"github.com/payline-next/internal/service"
)

// CreateOrderRequest 创建订单请求体
type CreateOrderRequest struct {
	CustomerID       uint                   `json:"customer_id"`
	Currency         string                 `json:"currency"`
	ShippingTotal    float64                `json:"shipping_total"`
	ShippingTax      float64                `json:"shipping_tax"`
	ShippingCountry  string                 `json:"shipping_country"`
	ShippingPostcode string                 `json:"shipping_postcode"`
	Items            []CreateOrderItemInput `json:"items" binding:"required,min=1"`
	Fees             []CreateOrderFeeInput  `json:"fees"`
}

// CreateOrderItemInput 订单项输入
type CreateOrderItemInput struct {
	Name        string  `json:"name" binding:"required"`
	ProductID   uint    `json:"product_id"`
	VariationID uint    `json:"variation_id"`
	Quantity    float64 `json:"quantity" binding:"required"`
	Subtotal    float64 `json:"subtotal"`
	Total       float64 `json:"total"`
	TotalTax    float64 `json:"total_tax"`
}

// CreateOrderFeeInput 订单级费用输入
type CreateOrderFeeInput struct {
	Name  string  `json:"name" binding:"required"`
	Total float64 `json:"total"`
	Tax   float64 `json:"tax"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, in := range req.Items {
		items = append(items, models.OrderItem{
			Name:        in.Name,
			ProductID:   in.ProductID,
			VariationID: in.VariationID,
			Quantity:    decimal.NewFromFloat(in.Quantity),
			Subtotal:    models.NewMoneyFromFloat(in.Subtotal),
			Total:       models.NewMoneyFromFloat(in.Total),
			TotalTax:    models.NewMoneyFromFloat(in.TotalTax),
		})
	}
	fees := make([]models.OrderFee, 0, len(req.Fees))
	for _, in := range req.Fees {
		fees = append(fees, models.OrderFee{
			Name:  in.Name,
			Total: models.NewMoneyFromFloat(in.Total),
			Tax:   models.NewMoneyFromFloat(in.Tax),
		})
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		CustomerID:       req.CustomerID,
		Currency:         req.Currency,
		ShippingTotal:    models.NewMoneyFromFloat(req.ShippingTotal),
		ShippingTax:      models.NewMoneyFromFloat(req.ShippingTax),
		ShippingCountry:  req.ShippingCountry,
		ShippingPostcode: req.ShippingPostcode,
		ClientIP:         c.ClientIP(),
		Items:            items,
		Fees:             fees,
	})
	if err != nil {
		if errors.Is(err, service.ErrOrderNotPayable) {
			respondError(c, response.CodeBadRequest, "error.order_invalid", err)
			return
		}
		respondError(c, response.CodeInternal, "error.order_create_failed", err)
		return
	}
	response.Success(c, order)
}

// ListOrders 分页查询订单
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	customerID, _ := strconv.ParseUint(c.Query("customer_id"), 10, 64)

	filter := repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: uint(customerID),
		Status:     c.Query("status"),
		OrderNo:    c.Query("order_no"),
	}
	orders, total, err := h.OrderService.ListOrders(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_list_failed", err)
		return
	}

	totalPage := int64(0)
	if filter.PageSize > 0 {
		totalPage = (total + int64(filter.PageSize) - 1) / int64(filter.PageSize)
	}
	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      filter.Page,
		PageSize:  filter.PageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetOrder 查询订单
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, order)
}

// OrderReceived 订单完成页着陆回执，清理会话中的处理中订单槽位。
func (h *Handler) OrderReceived(c *gin.Context) {
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}
	sid := h.sessionID(c)
	if err := h.CheckoutService.OnOrderReceivedPage(c.Request.Context(), sid, true, orderID); err != nil {
		requestLog(c).Warnw("order_received_hook_failed", "order_id", orderID, "error", err)
	}
	response.Success(c, gin.H{"order_id": orderID})
}

func pathOrderID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", err)
		return 0, false
	}
	return uint(id), true
}
