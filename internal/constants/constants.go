package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusProcessing     = "processing"
	OrderStatusPaid           = "paid"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

// 支付生命周期状态常量（PaymentContext 命名状态）
const (
	PaymentStateInitialized       = "initialized"
	PaymentStatePreparing         = "preparing"
	PaymentStateProcessing        = "processing"
	PaymentStateAuthorized        = "authorized"
	PaymentStateSucceeded         = "succeeded"
	PaymentStateFailed            = "failed"
	PaymentStatePendingWebhook    = "pending_webhook"
	PaymentStateDuplicateDetected = "duplicate_detected"
)

// 处理器侧 Intent 状态常量
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusProcessing            = "processing"
	IntentStatusRequiresCapture       = "requires_capture"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
)

// AuthorizedIntentStatuses 视为“已授权、可复用”的 Intent 状态集合
var AuthorizedIntentStatuses = []string{
	IntentStatusProcessing,
	IntentStatusRequiresCapture,
	IntentStatusSucceeded,
}

// 支付方式来源常量
const (
	PaymentMethodSourceNew   = "new"
	PaymentMethodSourceSaved = "saved"
)

// 捕获模式常量
const (
	CaptureMethodAutomatic = "automatic"
	CaptureMethodManual    = "manual"
)

// 会话键常量
const (
	SessionKeyProcessingOrder = "processing_order_id"
)

// Level 3 数据限制常量
const (
	// Level3QualifyingCountry Level 3 数据仅对该国家的商户账号生效
	Level3QualifyingCountry = "US"
	// Level3MaxLineItems 处理器单笔请求接受的最大行项目数
	Level3MaxLineItems = 200
	// Level3ProductCodeMaxLen product_code 文本值的最大长度
	Level3ProductCodeMaxLen = 12
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskOrderAuditNote     = "order:audit_note"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)
