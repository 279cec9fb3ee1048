package models

// OrderAddress 订单地址（账单 / 收货）
type OrderAddress struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	OrderID  uint   `gorm:"index;not null" json:"order_id"`
	Type     string `gorm:"type:varchar(16);index;not null" json:"type"` // billing / shipping
	Name     string `gorm:"type:varchar(255)" json:"name"`
	Address1 string `gorm:"column:address_1;type:varchar(255)" json:"address_1"`
	Address2 string `gorm:"column:address_2;type:varchar(255)" json:"address_2"`
	City     string `gorm:"type:varchar(128)" json:"city"`
	State    string `gorm:"type:varchar(128)" json:"state"`
	Postcode string `gorm:"type:varchar(32)" json:"postcode"`
	Country  string `gorm:"type:varchar(8)" json:"country"`
	Phone    string `gorm:"type:varchar(64)" json:"phone"`
}

// TableName 指定表名
func (OrderAddress) TableName() string {
	return "order_addresses"
}

// StreetAddress 合并地址行
func (a *OrderAddress) StreetAddress() string {
	if a == nil {
		return ""
	}
	switch {
	case a.Address1 != "" && a.Address2 != "":
		return a.Address1 + ", " + a.Address2
	case a.Address1 != "":
		return a.Address1
	default:
		return a.Address2
	}
}
