package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/lock"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/queue"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileInput 对账输入
type ReconcileInput struct {
	OrderID            uint
	TransactionID      uint
	PurchaseID         string
	PaymentMethodLabel string
	Source             string
}

// ReconcileResult 对账结果，AlreadyTerminal 表示订单已被其他通道推进
type ReconcileResult struct {
	AlreadyTerminal bool
	Order           *models.Order
	Transaction     *models.OrderTransaction
}

// ReconciliationService 支付对账：在订单锁内把待支付交易推进为成功，且每笔交易只推进一次
type ReconciliationService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	txnRepo     repository.TransactionRepository
	locks       lock.Manager
	syncer      OrderStatusSyncer
	queueClient *queue.Client
	paidSvc     *OrderPaidService
	lockTimeout time.Duration
	now         func() time.Time
}

// NewReconciliationService 创建对账服务
func NewReconciliationService(db *gorm.DB, orderRepo repository.OrderRepository, txnRepo repository.TransactionRepository, locks lock.Manager, syncer OrderStatusSyncer, queueClient *queue.Client, paidSvc *OrderPaidService, lockTimeout time.Duration) *ReconciliationService {
	if syncer == nil {
		syncer = NewOrderStatusSyncer()
	}
	if lockTimeout <= 0 {
		lockTimeout = lock.DefaultTimeout
	}
	return &ReconciliationService{
		db:          db,
		orderRepo:   orderRepo,
		txnRepo:     txnRepo,
		locks:       locks,
		syncer:      syncer,
		queueClient: queueClient,
		paidSvc:     paidSvc,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

func reconcileLogger(input ReconcileInput) *zap.SugaredLogger {
	return logger.SW(
		"order_id", input.OrderID,
		"transaction_id", input.TransactionID,
		"purchase_id", input.PurchaseID,
		"source", input.Source,
	)
}

// Reconcile 在订单锁内重读订单与交易并完成状态推进
func (s *ReconciliationService) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := reconcileLogger(input)
	if input.OrderID == 0 || input.TransactionID == 0 {
		return nil, ErrReconcileInputInvalid
	}

	held, err := s.locks.Acquire(ctx, input.OrderID, s.lockTimeout)
	if err != nil {
		log.Warnw("reconcile_lock_acquire_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
	}
	if !held {
		log.Warnw("reconcile_lock_timeout", "timeout", s.lockTimeout)
		return nil, ErrLockNotAcquired
	}
	defer func() {
		if _, err := s.locks.Release(ctx, input.OrderID); err != nil {
			log.Errorw("reconcile_lock_release_failed", "error", err)
		}
	}()

	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		log.Errorw("reconcile_order_fetch_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	txn, err := s.txnRepo.GetByID(input.TransactionID)
	if err != nil {
		log.Errorw("reconcile_transaction_fetch_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if txn == nil || txn.OrderID != order.ID {
		return nil, ErrTransactionNotFound
	}

	if order.IsPaymentSettled() || txn.Status == constants.TransactionStatusSucceeded {
		log.Infow("reconcile_already_terminal",
			"order_status", order.Status,
			"transaction_status", txn.Status,
		)
		return &ReconcileResult{AlreadyTerminal: true, Order: order, Transaction: txn}, nil
	}

	now := s.now()
	updates := map[string]interface{}{
		"status":     constants.TransactionStatusSucceeded,
		"updated_at": now,
	}
	purchaseID := strings.TrimSpace(input.PurchaseID)
	if purchaseID != "" {
		updates["vendor_charge_id"] = purchaseID
		updates["chip_purchase_id"] = purchaseID
	}
	label := strings.TrimSpace(input.PaymentMethodLabel)
	if label != "" {
		updates["payment_method_type"] = label
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.txnRepo.WithTx(tx).UpdateFields(txn.ID, updates); err != nil {
			return err
		}
		txn.Status = constants.TransactionStatusSucceeded
		txn.UpdatedAt = now
		if purchaseID != "" {
			txn.VendorChargeID = purchaseID
			txn.ChipPurchaseID = purchaseID
		}
		if label != "" {
			txn.PaymentMethodType = label
		}
		return s.syncer.SyncOrderStatuses(tx, order, txn)
	})
	if err != nil {
		log.Errorw("reconcile_write_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}
	log.Infow("reconcile_transaction_succeeded",
		"payment_method_type", txn.PaymentMethodType,
		"order_status", order.Status,
	)

	s.dispatchPaid(ctx, order, txn, input.Source)
	return &ReconcileResult{Order: order, Transaction: txn}, nil
}

// dispatchPaid 推送支付成功后续处理，队列未启用或投递失败时同步执行；失败不影响对账结果
func (s *ReconciliationService) dispatchPaid(ctx context.Context, order *models.Order, txn *models.OrderTransaction, source string) {
	payload := queue.OrderPaymentPaidPayload{
		OrderID:       order.ID,
		TransactionID: txn.ID,
		Source:        source,
	}
	result, err := s.queueClient.EnqueueOrderPaymentPaid(ctx, payload)
	switch {
	case err != nil:
		logger.Warnw("reconcile_enqueue_payment_paid_failed", "order_id", order.ID, "error", err)
	case result == queue.Enqueued:
		return
	case result == queue.EnqueueDuplicate:
		logger.Debugw("reconcile_enqueue_payment_paid_duplicate", "order_id", order.ID, "task_id", queue.PaymentPaidTaskID(payload))
		return
	}
	if s.paidSvc == nil {
		return
	}
	if err := s.paidSvc.HandlePaymentPaid(ctx, order.ID); err != nil {
		logger.Warnw("reconcile_payment_paid_inline_failed", "order_id", order.ID, "error", err)
	}
}
