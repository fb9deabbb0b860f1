package models

import (
	"time"
)

// OrderNote 订单备注表（管理端可见的审计痕迹）
type OrderNote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OrderNote) TableName() string {
	return "order_notes"
}
