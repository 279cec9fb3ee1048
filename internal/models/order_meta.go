package models

// OrderMeta 订单扩展字段
type OrderMeta struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	OrderID   uint   `gorm:"uniqueIndex:idx_order_meta_key;not null" json:"order_id"`
	MetaKey   string `gorm:"type:varchar(128);uniqueIndex:idx_order_meta_key;not null" json:"meta_key"`
	MetaValue string `gorm:"type:text" json:"meta_value"`
}

// TableName 指定表名
func (OrderMeta) TableName() string {
	return "order_meta"
}
