package worker

import (
	"context"
	"encoding/json"

	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/provider"
	"github.com/payline-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderAuditNote, c.handleOrderAuditNote)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

func (c *Consumer) handleOrderAuditNote(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_audit_note_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderAuditNotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_audit_note_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || payload.Note == "" {
		logger.Debugw("worker_order_audit_note_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderRepo.AddNote(payload.OrderID, payload.Note); err != nil {
		logger.Warnw("worker_order_audit_note_persist_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CheckoutService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_checkout_service_nil", "order_id", payload.OrderID)
		return nil
	}
	canceled, err := c.CheckoutService.CancelOrderIfExpired(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if !canceled {
		logger.Debugw("worker_order_timeout_cancel_skip_not_expired", "order_id", payload.OrderID)
	}
	return nil
}
