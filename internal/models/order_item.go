package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem 订单项表
type OrderItem struct {
	ID          uint            `gorm:"primarykey" json:"id"`              // 主键
	OrderID     uint            `gorm:"index;not null" json:"order_id"`    // 订单ID
	Name        string          `gorm:"not null" json:"name"`              // 商品名称快照
	ProductID   uint            `gorm:"index" json:"product_id"`           // 商品ID
	VariationID uint            `gorm:"index" json:"variation_id"`         // 规格ID（无规格为 0）
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity"` // 数量（允许小数）
	Subtotal    Money           `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`  // 折前小计
	Total       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"total"`     // 折后小计
	TotalTax    Money           `gorm:"type:decimal(20,2);not null;default:0" json:"total_tax"` // 税额
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
