package repository

import (
	"errors"

	"github.com/dujiao-next/chip-gateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderMetaRepository 订单扩展字段数据访问接口
type OrderMetaRepository interface {
	Get(orderID uint, key string) (string, error)
	Upsert(orderID uint, key, value string) error
	WithTx(tx *gorm.DB) *GormOrderMetaRepository
}

// GormOrderMetaRepository GORM 实现
type GormOrderMetaRepository struct {
	db *gorm.DB
}

// NewOrderMetaRepository 创建订单扩展字段仓库
func NewOrderMetaRepository(db *gorm.DB) *GormOrderMetaRepository {
	return &GormOrderMetaRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderMetaRepository) WithTx(tx *gorm.DB) *GormOrderMetaRepository {
	if tx == nil {
		return r
	}
	return &GormOrderMetaRepository{db: tx}
}

// Get 读取扩展字段，不存在时返回空串
func (r *GormOrderMetaRepository) Get(orderID uint, key string) (string, error) {
	var meta models.OrderMeta
	if err := r.db.Where("order_id = ? AND meta_key = ?", orderID, key).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.MetaValue, nil
}

// Upsert 写入扩展字段
func (r *GormOrderMetaRepository) Upsert(orderID uint, key, value string) error {
	meta := &models.OrderMeta{OrderID: orderID, MetaKey: key, MetaValue: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value"}),
	}).Create(meta).Error
}
