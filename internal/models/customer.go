package models

import (
	"strings"
	"time"
)

// Customer 客户表
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"type:varchar(255);index" json:"email"`
	FirstName string    `gorm:"type:varchar(128)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(128)" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// FullName 姓名
func (c *Customer) FullName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
