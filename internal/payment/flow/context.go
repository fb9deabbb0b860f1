package flow

import (
	"time"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/payment/level3"
)

// Change 单个字段变更记录。Old 为 nil 表示该字段此前未设置。
type Change struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Transition 一次状态迁移及其携带的字段变更。
// FromState 为空串表示上下文的初始迁移；ToState 为空串表示状态内变更。
type Transition struct {
	At        time.Time
	FromState string
	ToState   string
	Changes   []Change
}

// PaymentMethod 支付方式取值：新卡 token 或已保存的支付方式 ID。
type PaymentMethod struct {
	source  string
	token   string
	savedID string
}

// NewCardPaymentMethod 使用处理器返回的新卡 token 构造支付方式
func NewCardPaymentMethod(token string) PaymentMethod {
	return PaymentMethod{source: constants.PaymentMethodSourceNew, token: token}
}

// SavedPaymentMethod 使用已保存的支付方式 ID 构造支付方式
func SavedPaymentMethod(id string) PaymentMethod {
	return PaymentMethod{source: constants.PaymentMethodSourceSaved, savedID: id}
}

// Source 返回支付方式来源（new/saved）
func (m PaymentMethod) Source() string {
	return m.source
}

// Token 返回新卡 token（仅 new 来源有值）
func (m PaymentMethod) Token() string {
	return m.token
}

// SavedID 返回已保存支付方式 ID（仅 saved 来源有值）
func (m PaymentMethod) SavedID() string {
	return m.savedID
}

// IsZero 判断支付方式是否未设置
func (m PaymentMethod) IsZero() bool {
	return m.source == ""
}

// PaymentContext 一次支付尝试的完整上下文。
// 所有字段只能通过记录迁移的操作修改，保证每次变更都落入审计轨迹。
type PaymentContext struct {
	orderID           uint
	orderNo           string
	amount            int64
	currency          string
	customerID        string
	paymentMethod     PaymentMethod
	captureAutomatic  bool
	metadata          map[string]string
	level3Data        level3.Data
	fingerprint       string
	confirmationToken string

	state       string
	pending     []Change
	transitions []Transition
	fieldSet    map[string]struct{}
	now         func() time.Time
}

// NewPaymentContext 创建支付上下文
func NewPaymentContext(orderID uint, orderNo string) *PaymentContext {
	return &PaymentContext{
		orderID:  orderID,
		orderNo:  orderNo,
		metadata: make(map[string]string),
		fieldSet: make(map[string]struct{}),
		now:      time.Now,
	}
}

// OrderID 返回订单 ID
func (c *PaymentContext) OrderID() uint { return c.orderID }

// OrderNo 返回订单编号
func (c *PaymentContext) OrderNo() string { return c.orderNo }

// Amount 返回金额（最小货币单位）
func (c *PaymentContext) Amount() int64 { return c.amount }

// Currency 返回币种
func (c *PaymentContext) Currency() string { return c.currency }

// CustomerID 返回处理器侧客户 ID
func (c *PaymentContext) CustomerID() string { return c.customerID }

// PaymentMethod 返回支付方式
func (c *PaymentContext) PaymentMethod() PaymentMethod { return c.paymentMethod }

// CaptureAutomatic 返回是否授权后立即捕获
func (c *PaymentContext) CaptureAutomatic() bool { return c.captureAutomatic }

// Metadata 返回元数据副本
func (c *PaymentContext) Metadata() map[string]string {
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Level3Data 返回 Level 3 行项目数据
func (c *PaymentContext) Level3Data() level3.Data { return c.level3Data }

// Fingerprint 返回防欺诈指纹
func (c *PaymentContext) Fingerprint() string { return c.fingerprint }

// ConfirmationToken 返回 CVC 确认 token
func (c *PaymentContext) ConfirmationToken() string { return c.confirmationToken }

// State 返回当前命名状态
func (c *PaymentContext) State() string { return c.state }

// Transitions 返回完整迁移历史（审计与日志的唯一读取路径）
func (c *PaymentContext) Transitions() []Transition {
	out := make([]Transition, len(c.transitions))
	copy(out, c.transitions)
	return out
}

// SetAmount 设置金额（最小货币单位）
func (c *PaymentContext) SetAmount(amount int64) {
	c.queue("amount", c.amount, amount)
	c.amount = amount
}

// SetCurrency 设置币种
func (c *PaymentContext) SetCurrency(currency string) {
	c.queue("currency", c.currency, currency)
	c.currency = currency
}

// SetCustomerID 设置处理器侧客户 ID
func (c *PaymentContext) SetCustomerID(customerID string) {
	c.queue("customer_id", c.customerID, customerID)
	c.customerID = customerID
}

// SetPaymentMethod 设置支付方式
func (c *PaymentContext) SetPaymentMethod(method PaymentMethod) {
	c.queue("payment_method", c.paymentMethod, method)
	c.paymentMethod = method
}

// SetCaptureAutomatic 设置捕获模式
func (c *PaymentContext) SetCaptureAutomatic(automatic bool) {
	c.queue("capture_automatic", c.captureAutomatic, automatic)
	c.captureAutomatic = automatic
}

// SetMetadata 整体替换元数据
func (c *PaymentContext) SetMetadata(metadata map[string]string) {
	old := c.Metadata()
	next := make(map[string]string, len(metadata))
	for k, v := range metadata {
		next[k] = v
	}
	c.queue("metadata", old, next)
	c.metadata = next
}

// SetLevel3Data 设置 Level 3 行项目数据
func (c *PaymentContext) SetLevel3Data(data level3.Data) {
	c.queue("level3_data", c.level3Data.Audit(), data.Audit())
	c.level3Data = data
}

// SetFingerprint 设置防欺诈指纹
func (c *PaymentContext) SetFingerprint(fingerprint string) {
	c.queue("fingerprint", c.fingerprint, fingerprint)
	c.fingerprint = fingerprint
}

// SetConfirmationToken 设置 CVC 确认 token
func (c *PaymentContext) SetConfirmationToken(token string) {
	c.queue("confirmation_token", c.confirmationToken, token)
	c.confirmationToken = token
}

// TransitionTo 将排队中的变更连同状态迁移一并写入历史。
// 首次调用记录初始迁移（FromState 为空）。
func (c *PaymentContext) TransitionTo(state string) {
	c.transitions = append(c.transitions, Transition{
		At:        c.now(),
		FromState: c.state,
		ToState:   state,
		Changes:   c.flushPending(),
	})
	c.state = state
}

// Commit 将排队中的变更作为状态内变更写入历史。
// 尚未进入任何命名状态时保持排队，由下一次 TransitionTo 携带。
func (c *PaymentContext) Commit() {
	if c.state == "" {
		return
	}
	if len(c.pending) == 0 {
		return
	}
	c.transitions = append(c.transitions, Transition{
		At:        c.now(),
		FromState: c.state,
		Changes:   c.flushPending(),
	})
}

func (c *PaymentContext) queue(field string, old, next interface{}) {
	var oldValue interface{}
	if _, ok := c.fieldSet[field]; ok {
		oldValue = old
	}
	c.fieldSet[field] = struct{}{}
	c.pending = append(c.pending, Change{Field: field, Old: oldValue, New: next})
}

func (c *PaymentContext) flushPending() []Change {
	changes := c.pending
	c.pending = nil
	return changes
}
