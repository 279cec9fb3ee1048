package models

import (
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
)

// Order 订单表
type Order struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                         // 主键
	UUID            string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"uuid"`            // 订单 UUID（同时作为 CHIP reference）
	Status          string     `gorm:"type:varchar(32);index;not null" json:"status"`                // 订单状态
	PaymentStatus   string     `gorm:"type:varchar(32);index;not null" json:"payment_status"`        // 支付状态
	PaymentMethod   string     `gorm:"type:varchar(32);index" json:"payment_method"`                 // 支付方式
	FulfillmentType string     `gorm:"type:varchar(32);not null" json:"fulfillment_type"`            // 交付类型
	Currency        string     `gorm:"type:varchar(8);not null" json:"currency"`                     // 币种
	TotalAmount     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 订单总额
	ShippingTotal   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_total"`  // 运费
	RefundedTotal   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"refunded_total"`  // 已退款金额
	Note            string     `gorm:"type:text" json:"note"`                                        // 订单备注
	CustomerID      uint       `gorm:"index" json:"customer_id"`                                     // 客户ID
	CompletedAt     *time.Time `gorm:"index" json:"completed_at"`                                    // 完成时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                   // 更新时间

	Items     []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`     // 订单项
	Addresses []OrderAddress `gorm:"foreignKey:OrderID" json:"addresses,omitempty"` // 账单/收货地址
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsPaymentSettled 订单是否已被支付流程推进（processing / completed）
func (o *Order) IsPaymentSettled() bool {
	if o == nil {
		return false
	}
	return o.Status == constants.OrderStatusProcessing || o.Status == constants.OrderStatusCompleted
}

// Address 按类型查找地址
func (o *Order) Address(addressType string) *OrderAddress {
	if o == nil {
		return nil
	}
	for i := range o.Addresses {
		if o.Addresses[i].Type == addressType {
			return &o.Addresses[i]
		}
	}
	return nil
}
