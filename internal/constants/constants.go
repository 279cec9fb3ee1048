package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
	OrderStatusCancelled  = "cancelled"
)

// 订单支付状态常量
const (
	OrderPaymentStatusPending           = "pending"
	OrderPaymentStatusPaid              = "paid"
	OrderPaymentStatusPartiallyRefunded = "partially_refunded"
	OrderPaymentStatusRefunded          = "refunded"
	OrderPaymentStatusFailed            = "failed"
)

// 交易状态常量
const (
	TransactionStatusPending   = "pending"
	TransactionStatusSucceeded = "succeeded"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

// 交易类型常量
const (
	TransactionTypeCharge = "charge"
	TransactionTypeRefund = "refund"
)

// 交付类型常量
const (
	FulfillmentTypeDigital  = "digital"
	FulfillmentTypePhysical = "physical"
)

// 地址类型常量
const (
	AddressTypeBilling  = "billing"
	AddressTypeShipping = "shipping"
)

// 支付方式常量
const (
	PaymentMethodChip = "chip"
)

// CHIP 相关存储键
const (
	// SettingKeyChipPublicKey 缓存的 CHIP 验签公钥（按 brand_id）
	SettingKeyChipPublicKey = "chip-for-fluent-cart-public-key"
	// SettingKeyChipRedirectPassphrase 回跳口令
	SettingKeyChipRedirectPassphrase = "chip-for-fluent-cart-redirect-passphrase"
	// ChipRedirectQueryKey 回跳口令的查询参数名
	ChipRedirectQueryKey = "chip-for-fluent-cart-redirect"
	// OrderMetaChipPurchaseID 订单元数据中的 CHIP purchase id
	OrderMetaChipPurchaseID = "chip_purchase_id"
)

// 支付对账来源
const (
	ReconcileSourceWebhook  = "webhook"
	ReconcileSourceRedirect = "redirect"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskOrderPaymentPaid = "order:payment_paid"
)

// 分布式锁驱动
const (
	LockDriverAuto     = "auto"
	LockDriverMySQL    = "mysql"
	LockDriverPostgres = "postgres"
	LockDriverRedis    = "redis"
	LockDriverMemory   = "memory"
)
