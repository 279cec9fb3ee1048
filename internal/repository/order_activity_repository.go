package repository

import (
	"github.com/dujiao-next/chip-gateway/internal/models"

	"gorm.io/gorm"
)

// OrderActivityRepository 订单活动日志数据访问接口
type OrderActivityRepository interface {
	Create(activity *models.OrderActivity) error
	ListByOrderID(orderID uint) ([]models.OrderActivity, error)
	WithTx(tx *gorm.DB) *GormOrderActivityRepository
}

// GormOrderActivityRepository GORM 实现
type GormOrderActivityRepository struct {
	db *gorm.DB
}

// NewOrderActivityRepository 创建活动日志仓库
func NewOrderActivityRepository(db *gorm.DB) *GormOrderActivityRepository {
	return &GormOrderActivityRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderActivityRepository) WithTx(tx *gorm.DB) *GormOrderActivityRepository {
	if tx == nil {
		return r
	}
	return &GormOrderActivityRepository{db: tx}
}

// Create 记录活动
func (r *GormOrderActivityRepository) Create(activity *models.OrderActivity) error {
	return r.db.Create(activity).Error
}

// ListByOrderID 按时间顺序列出订单活动
func (r *GormOrderActivityRepository) ListByOrderID(orderID uint) ([]models.OrderActivity, error) {
	var activities []models.OrderActivity
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
