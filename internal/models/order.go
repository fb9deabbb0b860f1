package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo          string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	CustomerID       uint           `gorm:"index;not null" json:"customer_id"`                         // 客户ID（游客订单为 0）
	CartHash         string         `gorm:"index;type:varchar(64)" json:"cart_hash"`                   // 购物车内容指纹
	Status           string         `gorm:"index;not null" json:"status"`                              // 订单状态
	Currency         string         `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额
	ShippingTotal    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_total"`
	ShippingTax      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_tax"`
	ShippingCountry  string         `gorm:"type:varchar(2)" json:"shipping_country"`     // 收货国家
	ShippingPostcode string         `gorm:"type:varchar(20)" json:"shipping_postcode"`   // 收货邮编
	IntentID         string         `gorm:"index;type:varchar(64)" json:"intent_id"`     // 关联的处理器 Intent ID
	ProcessorCustomer string        `gorm:"type:varchar(64)" json:"processor_customer"`  // 处理器侧客户ID
	Metadata         JSON           `gorm:"type:json" json:"metadata,omitempty"`         // 附加元数据
	ClientIP         string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"` // 下单客户端IP
	ExpiresAt        *time.Time     `gorm:"index" json:"expires_at"`                     // 过期时间
	PaidAt           *time.Time     `gorm:"index" json:"paid_at"`                        // 支付时间
	CanceledAt       *time.Time     `gorm:"index" json:"canceled_at"`                    // 取消时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
	Fees  []OrderFee  `gorm:"foreignKey:OrderID" json:"fees,omitempty"`  // 订单级费用
	Notes []OrderNote `gorm:"foreignKey:OrderID" json:"notes,omitempty"` // 订单备注
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
