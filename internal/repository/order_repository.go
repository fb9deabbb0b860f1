package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem, fees []models.OrderFee) error
	Update(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	GetCartHash(orderID uint) (string, error)
	GetCustomerID(orderID uint) (uint, error)
	IsPending(orderID uint) (bool, error)
	IsPaid(orderID uint) (bool, error)
	GetIntentID(orderID uint) (string, error)
	SetIntentID(orderID uint, intentID string) error
	AddNote(orderID uint, content string) error
	Delete(orderID uint) error
	MarkPaid(orderID uint, intentID string, paidAt time.Time) error
	CancelIfPendingExpired(orderID uint, now time.Time) (bool, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单、订单项与订单费用
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem, fees []models.OrderFee) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	for i := range fees {
		fees[i].OrderID = order.ID
	}
	if len(fees) > 0 {
		if err := r.db.Create(&fees).Error; err != nil {
			return err
		}
	}
	return nil
}

// Update 更新订单
func (r *GormOrderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// GetByID 根据 ID 获取订单（含订单项与费用）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	query := r.db.Preload("Items").Preload("Fees")
	if err := query.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单编号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var order models.Order
	result := r.db.Preload("Items").Preload("Fees").Where("order_no = ?", orderNo).Limit(1).Find(&order)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &order, nil
}

// List 分页查询订单
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no = ?", orderNo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	listQuery := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize)
	if err := listQuery.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetCartHash 获取订单的购物车内容指纹
func (r *GormOrderRepository) GetCartHash(orderID uint) (string, error) {
	var hash string
	err := r.db.Model(&models.Order{}).Where("id = ?", orderID).Pluck("cart_hash", &hash).Error
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(hash), nil
}

// GetCustomerID 获取订单的客户 ID
func (r *GormOrderRepository) GetCustomerID(orderID uint) (uint, error) {
	var customerID uint
	err := r.db.Model(&models.Order{}).Where("id = ?", orderID).Pluck("customer_id", &customerID).Error
	if err != nil {
		return 0, err
	}
	return customerID, nil
}

// IsPending 订单是否仍处于待支付状态
func (r *GormOrderRepository) IsPending(orderID uint) (bool, error) {
	status, err := r.getStatus(orderID)
	if err != nil {
		return false, err
	}
	return status == constants.OrderStatusPendingPayment, nil
}

// IsPaid 订单是否已完成支付
func (r *GormOrderRepository) IsPaid(orderID uint) (bool, error) {
	status, err := r.getStatus(orderID)
	if err != nil {
		return false, err
	}
	switch status {
	case constants.OrderStatusPaid, constants.OrderStatusProcessing, constants.OrderStatusCompleted:
		return true, nil
	default:
		return false, nil
	}
}

// GetIntentID 获取订单关联的处理器 Intent ID
func (r *GormOrderRepository) GetIntentID(orderID uint) (string, error) {
	var intentID string
	err := r.db.Model(&models.Order{}).Where("id = ?", orderID).Pluck("intent_id", &intentID).Error
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(intentID), nil
}

// SetIntentID 记录订单关联的处理器 Intent ID
func (r *GormOrderRepository) SetIntentID(orderID uint, intentID string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"intent_id":  strings.TrimSpace(intentID),
		"updated_at": time.Now(),
	}).Error
}

// AddNote 追加订单备注
func (r *GormOrderRepository) AddNote(orderID uint, content string) error {
	content = strings.TrimSpace(content)
	if orderID == 0 || content == "" {
		return nil
	}
	note := &models.OrderNote{
		OrderID:   orderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	return r.db.Create(note).Error
}

// Delete 永久删除订单及其订单项、费用与备注
func (r *GormOrderRepository) Delete(orderID uint) error {
	if orderID == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderFee{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderNote{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Order{}, orderID).Error
	})
}

// MarkPaid 将订单标记为已支付
func (r *GormOrderRepository) MarkPaid(orderID uint, intentID string, paidAt time.Time) error {
	updates := map[string]interface{}{
		"status":     constants.OrderStatusPaid,
		"paid_at":    paidAt,
		"updated_at": paidAt,
	}
	if strings.TrimSpace(intentID) != "" {
		updates["intent_id"] = strings.TrimSpace(intentID)
	}
	return r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, constants.OrderStatusPendingPayment).
		Updates(updates).Error
}

// CancelIfPendingExpired 取消已过期的待支付订单，返回是否发生了取消
func (r *GormOrderRepository) CancelIfPendingExpired(orderID uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			orderID, constants.OrderStatusPendingPayment, now).
		Updates(map[string]interface{}{
			"status":      constants.OrderStatusCanceled,
			"canceled_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormOrderRepository) getStatus(orderID uint) (string, error) {
	var status string
	err := r.db.Model(&models.Order{}).Where("id = ?", orderID).Pluck("status", &status).Error
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(status), nil
}
