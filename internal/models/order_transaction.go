package models

import "time"

// OrderTransaction 订单交易记录，支付成功状态只允许对账流程写入
type OrderTransaction struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                        // 主键
	UUID              string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"uuid"`           // 交易 UUID
	OrderID           uint      `gorm:"index;not null" json:"order_id"`                              // 订单ID
	PaymentMethod     string    `gorm:"type:varchar(32);index;not null" json:"payment_method"`       // 支付方式
	TransactionType   string    `gorm:"type:varchar(16);not null" json:"transaction_type"`           // 交易类型 charge / refund
	Status            string    `gorm:"type:varchar(32);index;not null" json:"status"`               // 交易状态
	Total             Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total"`          // 交易金额
	Currency          string    `gorm:"type:varchar(8)" json:"currency"`                             // 币种
	VendorChargeID    string    `gorm:"type:varchar(128);index" json:"vendor_charge_id"`             // 第三方流水号
	ChipPurchaseID    string    `gorm:"type:varchar(128);index" json:"chip_purchase_id"`             // CHIP purchase id
	PaymentMethodType string    `gorm:"type:varchar(128)" json:"payment_method_type"`                // 支付方式展示名
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                                                  // 更新时间
}

// TableName 指定表名
func (OrderTransaction) TableName() string {
	return "order_transactions"
}
