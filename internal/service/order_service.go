package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/payline-next/internal/config"
	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/models"
	"github.com/payline-next/internal/queue"
	"github.com/payline-next/internal/repository"
)

// OrderService 订单服务：创建订单、计算购物车指纹、安排超时取消。
type OrderService struct {
	orderRepo   repository.OrderRepository
	queueClient *queue.Client
	orderCfg    config.OrderConfig
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, queueClient *queue.Client, orderCfg config.OrderConfig) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		queueClient: queueClient,
		orderCfg:    orderCfg,
	}
}

// CreateOrderInput 创建订单请求
type CreateOrderInput struct {
	CustomerID       uint
	Currency         string
	ShippingTotal    models.Money
	ShippingTax      models.Money
	ShippingCountry  string
	ShippingPostcode string
	ClientIP         string
	Items            []models.OrderItem
	Fees             []models.OrderFee
}

// CreateOrder 创建订单。
// 购物车指纹由商品行内容哈希得出，同一购物车的重复下单会得到相同指纹。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrOrderNotPayable)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	total := models.Money{}
	for _, item := range input.Items {
		total = models.NewMoneyFromDecimal(total.Decimal.Add(item.Total.Decimal).Add(item.TotalTax.Decimal))
	}
	for _, fee := range input.Fees {
		total = models.NewMoneyFromDecimal(total.Decimal.Add(fee.Total.Decimal).Add(fee.Tax.Decimal))
	}
	total = models.NewMoneyFromDecimal(total.Decimal.Add(input.ShippingTotal.Decimal).Add(input.ShippingTax.Decimal))

	expireMinutes := s.orderCfg.PaymentExpireMinutes
	if expireMinutes <= 0 {
		expireMinutes = 30
	}
	expiresAt := time.Now().Add(time.Duration(expireMinutes) * time.Minute)

	order := &models.Order{
		OrderNo:          newOrderNo(),
		CustomerID:       input.CustomerID,
		CartHash:         CartHash(input.CustomerID, currency, input.Items),
		Status:           constants.OrderStatusPendingPayment,
		Currency:         currency,
		TotalAmount:      total,
		ShippingTotal:    input.ShippingTotal,
		ShippingTax:      input.ShippingTax,
		ShippingCountry:  strings.ToUpper(strings.TrimSpace(input.ShippingCountry)),
		ShippingPostcode: strings.TrimSpace(input.ShippingPostcode),
		ClientIP:         strings.TrimSpace(input.ClientIP),
		ExpiresAt:        &expiresAt,
	}
	if err := s.orderRepo.Create(order, input.Items, input.Fees); err != nil {
		return nil, err
	}

	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, time.Until(expiresAt)); err != nil {
		logger.Warnw("order: enqueue timeout cancel failed", "error", err, "order_id", order.ID)
	}
	return order, nil
}

// GetOrder 按 ID 读取订单
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 分页查询订单
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.orderRepo.List(filter)
}

// CartHash 计算购物车内容指纹。
// 行内容按商品与数量归一后哈希，行顺序不影响结果。
func CartHash(customerID uint, currency string, items []models.OrderItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%d:%d:%s:%s", item.ProductID, item.VariationID, item.Quantity.String(), item.Total.String()))
	}
	sort.Strings(lines)
	payload := fmt.Sprintf("%d|%s|%s", customerID, strings.ToUpper(currency), strings.Join(lines, ";"))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func newOrderNo() string {
	return "PL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
