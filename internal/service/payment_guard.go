package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/payment/stripe"
	"github.com/payline-next/internal/repository"
	"github.com/payline-next/internal/session"
)

// IntentReader 处理器侧 Intent 查询接口
type IntentReader interface {
	GetIntent(ctx context.Context, id string) (*stripe.Intent, error)
}

// PaymentGuard 重复支付防护。
// 围绕会话级“处理中订单”槽位做事后比对，保证同一购物车不会被扣款两次。
type PaymentGuard struct {
	orderRepo repository.OrderRepository
	sessions  session.Store
	intents   IntentReader
}

// NewPaymentGuard 创建重复支付防护
func NewPaymentGuard(orderRepo repository.OrderRepository, sessions session.Store, intents IntentReader) *PaymentGuard {
	return &PaymentGuard{
		orderRepo: orderRepo,
		sessions:  sessions,
		intents:   intents,
	}
}

// UpdateSessionProcessingOrder 无条件覆写槽位。结账开始处理订单时调用。
func (g *PaymentGuard) UpdateSessionProcessingOrder(ctx context.Context, sessionID string, orderID uint) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	return g.sessions.Set(ctx, sessionID, constants.SessionKeyProcessingOrder, strconv.FormatUint(uint64(orderID), 10))
}

// RemoveSessionProcessingOrder 仅当槽位恰好持有 orderID 时清除（比对后清除）。
// 不匹配时静默跳过，防止迟到的旧请求覆盖新订单的记录。
func (g *PaymentGuard) RemoveSessionProcessingOrder(ctx context.Context, sessionID string, orderID uint) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	current, err := g.sessions.Get(ctx, sessionID, constants.SessionKeyProcessingOrder, "")
	if err != nil {
		return err
	}
	if current != strconv.FormatUint(uint64(orderID), 10) {
		return nil
	}
	return g.sessions.Delete(ctx, sessionID, constants.SessionKeyProcessingOrder)
}

// GetPreviousPaidDuplicateOrderID 判定会话槽位中的订单是否为当前订单的已付款重复单。
// 四项条件全部成立才返回重复订单 ID：购物车指纹一致、客户一致、
// 会话订单已付款、当前订单仍待支付。任何查询失败按“无重复”降级，不向外传播。
func (g *PaymentGuard) GetPreviousPaidDuplicateOrderID(ctx context.Context, sessionID string, currentOrderID uint) uint {
	if sessionID == "" || currentOrderID == 0 {
		return 0
	}
	slot, err := g.sessions.Get(ctx, sessionID, constants.SessionKeyProcessingOrder, "")
	if err != nil {
		logger.Warnw("payment_guard: read session slot failed", "error", err, "order_id", currentOrderID)
		return 0
	}
	if slot == "" {
		return 0
	}
	sessionOrderID64, err := strconv.ParseUint(slot, 10, 64)
	if err != nil || sessionOrderID64 == 0 {
		return 0
	}
	sessionOrderID := uint(sessionOrderID64)
	if sessionOrderID == currentOrderID {
		return 0
	}

	sessionHash, err := g.orderRepo.GetCartHash(sessionOrderID)
	if err != nil {
		logger.Warnw("payment_guard: read session order cart hash failed", "error", err, "order_id", sessionOrderID)
		return 0
	}
	currentHash, err := g.orderRepo.GetCartHash(currentOrderID)
	if err != nil {
		logger.Warnw("payment_guard: read current order cart hash failed", "error", err, "order_id", currentOrderID)
		return 0
	}
	if sessionHash == "" || sessionHash != currentHash {
		return 0
	}

	sessionCustomer, err := g.orderRepo.GetCustomerID(sessionOrderID)
	if err != nil {
		return 0
	}
	currentCustomer, err := g.orderRepo.GetCustomerID(currentOrderID)
	if err != nil {
		return 0
	}
	if sessionCustomer != currentCustomer {
		return 0
	}

	paid, err := g.orderRepo.IsPaid(sessionOrderID)
	if err != nil || !paid {
		return 0
	}
	pending, err := g.orderRepo.IsPending(currentOrderID)
	if err != nil || !pending {
		return 0
	}
	return sessionOrderID
}

// CleanUpWhenDetectingDuplicateOrder 以会话订单为权威订单善后：
// 给权威订单追加备注、永久删除当前冗余订单，并在槽位仍指向权威订单时清除槽位。
func (g *PaymentGuard) CleanUpWhenDetectingDuplicateOrder(ctx context.Context, sessionID string, duplicateOrderID, currentOrderID uint) error {
	note := fmt.Sprintf("Duplicate checkout detected: redundant order %d for the same cart was removed, this order remains the authoritative one.", currentOrderID)
	if err := g.orderRepo.AddNote(duplicateOrderID, note); err != nil {
		logger.Warnw("payment_guard: annotate duplicate order failed", "error", err, "order_id", duplicateOrderID)
	}
	if err := g.orderRepo.Delete(currentOrderID); err != nil {
		return fmt.Errorf("delete redundant order %d: %w", currentOrderID, err)
	}
	if err := g.RemoveSessionProcessingOrder(ctx, sessionID, duplicateOrderID); err != nil {
		logger.Warnw("payment_guard: clear session slot failed", "error", err, "order_id", duplicateOrderID)
	}
	logger.Infow("payment_guard: duplicate order cleaned up", "kept_order_id", duplicateOrderID, "removed_order_id", currentOrderID)
	return nil
}

// GetAuthorizedPaymentIntentAttachedToOrder 返回订单已挂载且可复用的 Intent。
// 复用要求处理器侧状态属于已授权集合，且 Intent 元数据回指的订单与当前订单一致；
// 查询失败一律按无可用 Intent 处理，复用只是优化而非正确性前提。
func (g *PaymentGuard) GetAuthorizedPaymentIntentAttachedToOrder(ctx context.Context, orderID uint) *stripe.Intent {
	intentID, err := g.orderRepo.GetIntentID(orderID)
	if err != nil {
		logger.Warnw("payment_guard: read attached intent id failed", "error", err, "order_id", orderID)
		return nil
	}
	if intentID == "" {
		return nil
	}
	intent, err := g.intents.GetIntent(ctx, intentID)
	if err != nil {
		logger.Warnw("payment_guard: fetch intent failed", "error", err, "order_id", orderID, "intent_id", intentID)
		return nil
	}
	if !intent.IsAuthorized() {
		return nil
	}
	if intent.MetadataOrderID() != orderID {
		logger.Warnw("payment_guard: attached intent belongs to another order", "order_id", orderID, "intent_id", intentID, "intent_order_id", intent.MetadataOrderID())
		return nil
	}
	return intent
}

// ClearSessionProcessingOrderAfterLandingOrderReceivedPage 到达订单完成页时触发的钩子。
// 页面订单 ID 与槽位一致时清除槽位；非完成页或无订单 ID 时不做任何事。
func (g *PaymentGuard) ClearSessionProcessingOrderAfterLandingOrderReceivedPage(ctx context.Context, sessionID string, isOrderReceivedPage bool, orderID uint) error {
	if !isOrderReceivedPage || orderID == 0 || sessionID == "" {
		return nil
	}
	return g.RemoveSessionProcessingOrder(ctx, sessionID, orderID)
}
