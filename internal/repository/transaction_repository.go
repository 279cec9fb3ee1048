package repository

import (
	"errors"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository 订单交易数据访问接口
type TransactionRepository interface {
	Create(txn *models.OrderTransaction) error
	GetByID(id uint) (*models.OrderTransaction, error)
	GetByUUID(uuid string) (*models.OrderTransaction, error)
	GetLatestChargeByOrderAndMethod(orderID uint, paymentMethod string) (*models.OrderTransaction, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	SumByOrderAndType(orderID uint, transactionType string) (models.Money, error)
	WithTx(tx *gorm.DB) *GormTransactionRepository
}

// GormTransactionRepository GORM 实现
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建交易仓库
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) *GormTransactionRepository {
	if tx == nil {
		return r
	}
	return &GormTransactionRepository{db: tx}
}

// Create 创建交易记录
func (r *GormTransactionRepository) Create(txn *models.OrderTransaction) error {
	return r.db.Create(txn).Error
}

// GetByID 根据 ID 获取交易
func (r *GormTransactionRepository) GetByID(id uint) (*models.OrderTransaction, error) {
	var txn models.OrderTransaction
	if err := r.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetByUUID 根据 UUID 获取交易
func (r *GormTransactionRepository) GetByUUID(uuid string) (*models.OrderTransaction, error) {
	if uuid == "" {
		return nil, nil
	}
	var txn models.OrderTransaction
	if err := r.db.Where("uuid = ?", uuid).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetLatestChargeByOrderAndMethod 获取订单在指定支付方式下最新的收款交易
func (r *GormTransactionRepository) GetLatestChargeByOrderAndMethod(orderID uint, paymentMethod string) (*models.OrderTransaction, error) {
	var txn models.OrderTransaction
	err := r.db.Where("order_id = ? AND payment_method = ? AND transaction_type = ?", orderID, paymentMethod, constants.TransactionTypeCharge).
		Order("id DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// UpdateFields 按字段更新交易
func (r *GormTransactionRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.OrderTransaction{}).Where("id = ?", id).Updates(updates).Error
}

// SumByOrderAndType 汇总订单某类交易的金额
func (r *GormTransactionRepository) SumByOrderAndType(orderID uint, transactionType string) (models.Money, error) {
	var txns []models.OrderTransaction
	if err := r.db.Select("total").
		Where("order_id = ? AND transaction_type = ?", orderID, transactionType).
		Find(&txns).Error; err != nil {
		return models.Money{}, err
	}
	sum := models.Money{}
	for _, txn := range txns {
		sum = models.NewMoneyFromDecimal(sum.Add(txn.Total.Decimal))
	}
	return sum, nil
}
