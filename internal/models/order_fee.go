package models

import (
	"time"
)

// OrderFee 订单级费用表（手续费、包装费等）
type OrderFee struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Name      string    `gorm:"not null" json:"name"`
	Total     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	Tax       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"tax"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (OrderFee) TableName() string {
	return "order_fees"
}
