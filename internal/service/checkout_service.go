package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/payline-next/internal/config"
	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/models"
	"github.com/payline-next/internal/payment/flow"
	"github.com/payline-next/internal/payment/level3"
	"github.com/payline-next/internal/payment/stripe"
	"github.com/payline-next/internal/queue"
	"github.com/payline-next/internal/repository"
)

// IntentClient 处理器侧 Intent 读写接口
type IntentClient interface {
	IntentReader
	CreateAndConfirmIntent(ctx context.Context, pc *flow.PaymentContext) (*stripe.Intent, error)
}

// CheckoutService 结账编排：重复防护、支付上下文、Intent 创建与审计落盘。
type CheckoutService struct {
	orderRepo     repository.OrderRepository
	guard         *PaymentGuard
	intents       IntentClient
	level3Builder *level3.Builder
	queueClient   *queue.Client
	merchant      config.MerchantConfig
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(orderRepo repository.OrderRepository, guard *PaymentGuard, intents IntentClient, level3Builder *level3.Builder, queueClient *queue.Client, merchant config.MerchantConfig) *CheckoutService {
	return &CheckoutService{
		orderRepo:     orderRepo,
		guard:         guard,
		intents:       intents,
		level3Builder: level3Builder,
		queueClient:   queueClient,
		merchant:      merchant,
	}
}

// PaymentResult 一次支付处理的结果
type PaymentResult struct {
	OrderID      uint
	DuplicateOf  uint
	Intent       *stripe.Intent
	ReusedIntent bool
	Paid         bool
}

// ProcessPayment 处理一笔订单支付。
// 先对会话槽位做重复检测，命中时删除冗余订单并指回已付款订单；
// 否则构建支付上下文，复用已授权 Intent 或创建新 Intent，最后落审计备注。
func (s *CheckoutService) ProcessPayment(ctx context.Context, sessionID string, orderID uint, method flow.PaymentMethod) (*PaymentResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	// 重复检测读取的是上一次请求留下的槽位，必须先于本次覆写
	if dupID := s.guard.GetPreviousPaidDuplicateOrderID(ctx, sessionID, orderID); dupID != 0 {
		if err := s.guard.CleanUpWhenDetectingDuplicateOrder(ctx, sessionID, dupID, orderID); err != nil {
			logger.Warnw("checkout: duplicate cleanup failed", "error", err, "order_id", orderID, "duplicate_order_id", dupID)
		}
		return &PaymentResult{OrderID: dupID, DuplicateOf: dupID, Paid: true}, nil
	}

	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrOrderNotPayable
	}
	if err := s.guard.UpdateSessionProcessingOrder(ctx, sessionID, orderID); err != nil {
		logger.Warnw("checkout: update session slot failed", "error", err, "order_id", orderID)
	}

	pc, err := s.buildPaymentContext(order, method)
	if err != nil {
		return nil, err
	}

	result := &PaymentResult{OrderID: orderID}
	intent := s.guard.GetAuthorizedPaymentIntentAttachedToOrder(ctx, orderID)
	if intent != nil {
		result.ReusedIntent = true
		pc.TransitionTo(constants.PaymentStateAuthorized)
	} else {
		pc.TransitionTo(constants.PaymentStateProcessing)
		intent, err = s.intents.CreateAndConfirmIntent(ctx, pc)
		if err != nil {
			pc.TransitionTo(constants.PaymentStateFailed)
			s.persistAudit(orderID, pc)
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		if err := s.orderRepo.SetIntentID(orderID, intent.ID); err != nil {
			logger.Errorw("checkout: attach intent to order failed", "error", err, "order_id", orderID, "intent_id", intent.ID)
		}
	}
	result.Intent = intent

	switch intent.Status {
	case constants.IntentStatusSucceeded:
		if err := s.orderRepo.MarkPaid(orderID, intent.ID, time.Now()); err != nil {
			logger.Errorw("checkout: mark order paid failed", "error", err, "order_id", orderID)
		} else {
			result.Paid = true
		}
		pc.TransitionTo(constants.PaymentStateSucceeded)
		if err := s.guard.RemoveSessionProcessingOrder(ctx, sessionID, orderID); err != nil {
			logger.Warnw("checkout: release session slot failed", "error", err, "order_id", orderID)
		}
	case constants.IntentStatusRequiresCapture:
		pc.TransitionTo(constants.PaymentStateAuthorized)
	case constants.IntentStatusProcessing:
		pc.TransitionTo(constants.PaymentStatePendingWebhook)
	default:
		pc.TransitionTo(constants.PaymentStateFailed)
	}

	s.persistAudit(orderID, pc)
	return result, nil
}

func (s *CheckoutService) buildPaymentContext(order *models.Order, method flow.PaymentMethod) (*flow.PaymentContext, error) {
	minor, err := stripe.MinorAmount(order.TotalAmount.Decimal, order.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderNotPayable, err)
	}

	pc := flow.NewPaymentContext(order.ID, order.OrderNo)
	pc.SetAmount(minor)
	pc.SetCurrency(order.Currency)
	if order.ProcessorCustomer != "" {
		pc.SetCustomerID(order.ProcessorCustomer)
	}
	pc.SetCaptureAutomatic(s.merchant.CaptureAutomatic)
	pc.SetMetadata(map[string]string{
		stripe.MetadataKeyOrderID: strconv.FormatUint(uint64(order.ID), 10),
		"order_no":                order.OrderNo,
	})
	pc.SetPaymentMethod(method)
	if data := s.level3Builder.Build(order); !data.IsZero() {
		pc.SetLevel3Data(data)
	}
	pc.TransitionTo(constants.PaymentStateInitialized)
	return pc, nil
}

// persistAudit 审计文本先进 debug 日志，再异步落为订单备注。
func (s *CheckoutService) persistAudit(orderID uint, pc *flow.PaymentContext) {
	audit := flow.LogChanges(pc)
	logger.Debugw("checkout: payment lifecycle", "order_id", orderID, "audit", audit)
	if err := s.queueClient.EnqueueOrderAuditNote(queue.OrderAuditNotePayload{OrderID: orderID, Note: audit}); err != nil {
		logger.Warnw("checkout: enqueue audit note failed", "error", err, "order_id", orderID)
	}
}

// HandleWebhookEvent 处理校验通过的处理器回调事件。
func (s *CheckoutService) HandleWebhookEvent(ctx context.Context, sessionID string, event *stripe.WebhookEvent) error {
	if event == nil || event.Intent == nil {
		return nil
	}
	orderID := event.Intent.MetadataOrderID()
	if orderID == 0 {
		logger.Warnw("checkout: webhook intent carries no order id", "event_id", event.EventID, "intent_id", event.Intent.ID)
		return nil
	}

	switch event.EventType {
	case "payment_intent.succeeded":
		if err := s.orderRepo.MarkPaid(orderID, event.Intent.ID, time.Now()); err != nil {
			return fmt.Errorf("mark order %d paid: %w", orderID, err)
		}
		if sessionID != "" {
			if err := s.guard.RemoveSessionProcessingOrder(ctx, sessionID, orderID); err != nil {
				logger.Warnw("checkout: release session slot failed", "error", err, "order_id", orderID)
			}
		}
		logger.Infow("checkout: order paid via webhook", "order_id", orderID, "intent_id", event.Intent.ID)
	case "payment_intent.payment_failed", "payment_intent.canceled":
		note := fmt.Sprintf("Payment attempt failed at the processor (intent %s, event %s).", event.Intent.ID, event.EventType)
		if err := s.orderRepo.AddNote(orderID, note); err != nil {
			logger.Warnw("checkout: annotate failed payment failed", "error", err, "order_id", orderID)
		}
	default:
		logger.Debugw("checkout: webhook event ignored", "event_type", event.EventType, "order_id", orderID)
	}
	return nil
}

// OnOrderReceivedPage 订单完成页着陆钩子
func (s *CheckoutService) OnOrderReceivedPage(ctx context.Context, sessionID string, isOrderReceivedPage bool, orderID uint) error {
	return s.guard.ClearSessionProcessingOrderAfterLandingOrderReceivedPage(ctx, sessionID, isOrderReceivedPage, orderID)
}

// CancelOrderIfExpired 取消已过期且仍待支付的订单，返回是否发生取消。
func (s *CheckoutService) CancelOrderIfExpired(orderID uint) (bool, error) {
	canceled, err := s.orderRepo.CancelIfPendingExpired(orderID, time.Now())
	if err != nil {
		return false, err
	}
	if canceled {
		logger.Infow("checkout: pending order canceled by timeout", "order_id", orderID)
	}
	return canceled, nil
}
