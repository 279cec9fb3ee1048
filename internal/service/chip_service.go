package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/lock"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// WebhookPath CHIP 回调路径
	WebhookPath = "/api/v1/payments/webhook/chip"
	// RedirectPath 浏览器回跳路径
	RedirectPath = "/api/v1/payments/chip/redirect"
	// RedirectTransactionQueryKey 回跳地址中的交易 UUID 参数名
	RedirectTransactionQueryKey = "transaction_uuid"
)

// PaymentGateway CHIP 接口，chip.Client 实现
type PaymentGateway interface {
	CreatePayment(ctx context.Context, params chip.PurchaseParams) (*chip.CreateResult, error)
	GetPayment(ctx context.Context, purchaseID string) (*chip.Purchase, error)
	RefundPayment(ctx context.Context, purchaseID string, amountCents int64) (*chip.RefundResult, error)
	PublicKey(ctx context.Context) (string, error)
}

// ChipService CHIP 支付渠道：创建支付、回调、回跳对账、退款
type ChipService struct {
	cfg          config.ChipConfig
	site         config.SiteConfig
	db           *gorm.DB
	gateway      PaymentGateway
	orderRepo    repository.OrderRepository
	txnRepo      repository.TransactionRepository
	metaRepo     repository.OrderMetaRepository
	customerRepo repository.CustomerRepository
	reconciler   *ReconciliationService
	publicKeys   *PublicKeyCache
	passphrase   *RedirectPassphrase
	locks        lock.Manager
	lockTimeout  time.Duration
}

// NewChipService 创建 CHIP 渠道服务
func NewChipService(cfg config.ChipConfig, site config.SiteConfig, db *gorm.DB, gateway PaymentGateway, orderRepo repository.OrderRepository, txnRepo repository.TransactionRepository, metaRepo repository.OrderMetaRepository, customerRepo repository.CustomerRepository, reconciler *ReconciliationService, publicKeys *PublicKeyCache, passphrase *RedirectPassphrase, locks lock.Manager, lockTimeout time.Duration) *ChipService {
	if lockTimeout <= 0 {
		lockTimeout = lock.DefaultTimeout
	}
	return &ChipService{
		cfg:          cfg,
		site:         site,
		db:           db,
		gateway:      gateway,
		orderRepo:    orderRepo,
		txnRepo:      txnRepo,
		metaRepo:     metaRepo,
		customerRepo: customerRepo,
		reconciler:   reconciler,
		publicKeys:   publicKeys,
		passphrase:   passphrase,
		locks:        locks,
		lockTimeout:  lockTimeout,
	}
}

// debugLog 受 chip.debug 控制的诊断日志
func (s *ChipService) debugLog(kv ...interface{}) *zap.SugaredLogger {
	return logger.Gated(s.cfg.Debug, append([]interface{}{"gateway", constants.PaymentMethodChip}, kv...)...)
}

func (s *ChipService) hasCredentials() bool {
	return strings.TrimSpace(s.cfg.BrandID) != "" && strings.TrimSpace(s.cfg.SecretKey) != ""
}

// SuccessURL 支付成功跳转地址
func (s *ChipService) SuccessURL(txn *models.OrderTransaction) string {
	return fillTransactionUUID(s.site.SuccessURL, txn)
}

// CancelURL 支付取消跳转地址
func (s *ChipService) CancelURL(txn *models.OrderTransaction) string {
	return fillTransactionUUID(s.site.CancelURL, txn)
}

// WebhookURL CHIP success_callback 地址
func (s *ChipService) WebhookURL() string {
	return strings.TrimRight(s.site.BaseURL, "/") + WebhookPath
}

// RedirectURL CHIP success_redirect 地址，携带口令与交易 UUID
func (s *ChipService) RedirectURL(passphrase string, txn *models.OrderTransaction) string {
	query := url.Values{}
	query.Set(constants.ChipRedirectQueryKey, passphrase)
	if txn != nil {
		query.Set(RedirectTransactionQueryKey, txn.UUID)
	}
	return strings.TrimRight(s.site.BaseURL, "/") + RedirectPath + "?" + query.Encode()
}

func fillTransactionUUID(template string, txn *models.OrderTransaction) string {
	uuid := ""
	if txn != nil {
		uuid = url.QueryEscape(txn.UUID)
	}
	return strings.ReplaceAll(template, "{transaction_uuid}", uuid)
}

// Receipt 返回交易的 CHIP 收据地址，无收据时返回空串
func (s *ChipService) Receipt(_ context.Context, transactionUUID string) (string, error) {
	transactionUUID = strings.TrimSpace(transactionUUID)
	if transactionUUID == "" {
		return "", ErrTransactionUUIDEmpty
	}
	txn, err := s.txnRepo.GetByUUID(transactionUUID)
	if err != nil {
		return "", ErrOrderFetchFailed
	}
	if txn == nil || txn.PaymentMethod != constants.PaymentMethodChip {
		return "", ErrTransactionNotFound
	}
	purchaseID := txn.ChipPurchaseID
	if purchaseID == "" {
		purchaseID = txn.VendorChargeID
	}
	return chip.ReceiptURL(purchaseID, txn.TransactionType), nil
}

// purchaseIDFor 订单扩展字段优先，其次交易记录
func (s *ChipService) purchaseIDFor(order *models.Order, txn *models.OrderTransaction) string {
	if s.metaRepo != nil && order != nil {
		value, err := s.metaRepo.Get(order.ID, constants.OrderMetaChipPurchaseID)
		if err != nil {
			logger.Warnw("chip_order_meta_read_failed", "order_id", order.ID, "error", err)
		} else if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	if txn == nil {
		return ""
	}
	if txn.ChipPurchaseID != "" {
		return txn.ChipPurchaseID
	}
	return txn.VendorChargeID
}
