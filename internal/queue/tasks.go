package queue

import (
	"encoding/json"

	"github.com/payline-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderAuditNote 支付审计备注落库任务
	TaskOrderAuditNote = constants.TaskOrderAuditNote
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
)

// OrderAuditNotePayload 审计备注任务载荷
type OrderAuditNotePayload struct {
	OrderID uint   `json:"order_id"`
	Note    string `json:"note"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderAuditNoteTask 创建审计备注任务
func NewOrderAuditNoteTask(payload OrderAuditNotePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderAuditNote, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}
