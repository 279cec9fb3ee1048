package service

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/lock"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testBrandID    = "brand-1"
	testPassphrase = "redirect-pass"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})
	return testKey
}

func testPublicKeyPEM(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&testPrivateKey(t).PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signBody(t *testing.T, body []byte) string {
	t.Helper()
	digest := sha256.Sum256(body)
	signature, err := rsa.SignPKCS1v15(rand.Reader, testPrivateKey(t), crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign body failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(signature)
}

// countingLocks 统计加解锁次数
type countingLocks struct {
	inner    lock.Manager
	acquires int32
	releases int32
}

func (l *countingLocks) Acquire(ctx context.Context, orderID uint, timeout time.Duration) (bool, error) {
	atomic.AddInt32(&l.acquires, 1)
	return l.inner.Acquire(ctx, orderID, timeout)
}

func (l *countingLocks) Release(ctx context.Context, orderID uint) (bool, error) {
	atomic.AddInt32(&l.releases, 1)
	return l.inner.Release(ctx, orderID)
}

func (l *countingLocks) acquireCount() int32 {
	return atomic.LoadInt32(&l.acquires)
}

// countingSyncer 统计状态同步次数，可注入失败
type countingSyncer struct {
	inner OrderStatusSyncer
	calls int32
	err   error
	panic bool
}

func (s *countingSyncer) SyncOrderStatuses(tx *gorm.DB, order *models.Order, txn *models.OrderTransaction) error {
	atomic.AddInt32(&s.calls, 1)
	if s.panic {
		panic("sync exploded")
	}
	if s.err != nil {
		return s.err
	}
	return s.inner.SyncOrderStatuses(tx, order, txn)
}

type fakeGateway struct {
	mu sync.Mutex

	publicKey      string
	publicKeyErr   error
	publicKeyCalls int

	purchase    *chip.Purchase
	purchaseErr error
	getCalls    int
	getDelay    time.Duration

	created      *chip.CreateResult
	createErr    error
	createParams []chip.PurchaseParams

	refund        *chip.RefundResult
	refundErr     error
	refundCalls   int
	refundAmounts []int64
}

func (g *fakeGateway) CreatePayment(_ context.Context, params chip.PurchaseParams) (*chip.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createParams = append(g.createParams, params)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.created, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, purchaseID string) (*chip.Purchase, error) {
	g.mu.Lock()
	g.getCalls++
	delay := g.getDelay
	purchase, err := g.purchase, g.purchaseErr
	g.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func (g *fakeGateway) RefundPayment(_ context.Context, purchaseID string, amountCents int64) (*chip.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	g.refundAmounts = append(g.refundAmounts, amountCents)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return g.refund, nil
}

func (g *fakeGateway) PublicKey(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.publicKeyCalls++
	if g.publicKeyErr != nil {
		return "", g.publicKeyErr
	}
	return g.publicKey, nil
}

func (g *fakeGateway) counts() (publicKey, get, refund int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.publicKeyCalls, g.getCalls, g.refundCalls
}

type serviceTestEnv struct {
	db           *gorm.DB
	orderRepo    *repository.GormOrderRepository
	txnRepo      *repository.GormTransactionRepository
	metaRepo     *repository.GormOrderMetaRepository
	customerRepo *repository.GormCustomerRepository
	settingRepo  *repository.GormSettingRepository
	activityRepo *repository.GormOrderActivityRepository
	locks        *countingLocks
	syncer       *countingSyncer
	gateway      *fakeGateway
	passphrase   *RedirectPassphrase
	publicKeys   *PublicKeyCache
	paidSvc      *OrderPaidService
	reconciler   *ReconciliationService
	chip         *ChipService
	chipCfg      config.ChipConfig
	site         config.SiteConfig
}

type envOption func(env *serviceTestEnv)

func withChipConfig(mutate func(cfg *config.ChipConfig)) envOption {
	return func(env *serviceTestEnv) {
		mutate(&env.chipCfg)
	}
}

func withLockManager(manager lock.Manager) envOption {
	return func(env *serviceTestEnv) {
		env.locks.inner = manager
	}
}

func setupServiceTest(t *testing.T, opts ...envOption) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	env := &serviceTestEnv{
		db:           db,
		orderRepo:    repository.NewOrderRepository(db),
		txnRepo:      repository.NewTransactionRepository(db),
		metaRepo:     repository.NewOrderMetaRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		settingRepo:  repository.NewSettingRepository(db),
		activityRepo: repository.NewOrderActivityRepository(db),
		locks:        &countingLocks{inner: lock.NewMemoryManager()},
		syncer:       &countingSyncer{inner: NewOrderStatusSyncer()},
		gateway:      &fakeGateway{publicKey: testPublicKeyPEM(t)},
		chipCfg: config.ChipConfig{
			IsActive:     true,
			BrandID:      testBrandID,
			SecretKey:    "secret-key",
			CreatorAgent: "ChipGateway test",
		},
		site: config.SiteConfig{
			BaseURL:    "https://shop.test",
			SuccessURL: "https://shop.test/receipt?trx={transaction_uuid}",
			CancelURL:  "https://shop.test/checkout?trx={transaction_uuid}&cancelled=1",
		},
	}
	for _, opt := range opts {
		opt(env)
	}

	env.passphrase = NewRedirectPassphrase(env.settingRepo, env.site.BaseURL, "salt")
	env.publicKeys = NewPublicKeyCache(env.settingRepo, nil, env.gateway)
	env.paidSvc = NewOrderPaidService(db, env.orderRepo)
	env.reconciler = NewReconciliationService(db, env.orderRepo, env.txnRepo, env.locks, env.syncer, nil, env.paidSvc, 2*time.Second)
	env.chip = NewChipService(env.chipCfg, env.site, db, env.gateway, env.orderRepo, env.txnRepo, env.metaRepo, env.customerRepo, env.reconciler, env.publicKeys, env.passphrase, env.locks, 2*time.Second)
	return env
}

func (env *serviceTestEnv) storePassphrase(t *testing.T) {
	t.Helper()
	if _, err := env.settingRepo.Upsert(constants.SettingKeyChipRedirectPassphrase, models.JSON{"value": testPassphrase}); err != nil {
		t.Fatalf("store passphrase failed: %v", err)
	}
}

type seededOrder struct {
	order *models.Order
	txn   *models.OrderTransaction
}

func (env *serviceTestEnv) seedOrder(t *testing.T, orderUUID, fulfillmentType, purchaseID string) seededOrder {
	t.Helper()
	customer := &models.Customer{Email: "buyer@example.com", FirstName: "Siti", LastName: "Aminah"}
	if err := env.customerRepo.Create(customer); err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	order := &models.Order{
		UUID:            orderUUID,
		Status:          constants.OrderStatusPending,
		PaymentStatus:   constants.OrderPaymentStatusPending,
		PaymentMethod:   constants.PaymentMethodChip,
		FulfillmentType: fulfillmentType,
		Currency:        "MYR",
		TotalAmount:     models.NewMoneyFromString("35.50"),
		ShippingTotal:   models.NewMoneyFromString("5.00"),
		Note:            " leave at door ",
		CustomerID:      customer.ID,
		Items: []models.OrderItem{
			{Title: "Kopi", Quantity: 2, LineTotal: models.NewMoneyFromString("20.00")},
			{Title: "Kuih", Quantity: 1, LineTotal: models.NewMoneyFromString("10.50")},
		},
		Addresses: []models.OrderAddress{
			{Type: constants.AddressTypeBilling, Address1: "1 Jalan Ampang", City: "Kuala Lumpur", State: "WP", Postcode: "50450", Country: "MY", Phone: "+60123456789"},
			{Type: constants.AddressTypeShipping, Address1: "2 Jalan Tun Razak", City: "Kuala Lumpur", Postcode: "50400", Country: "MY"},
		},
	}
	if err := env.orderRepo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	txn := &models.OrderTransaction{
		UUID:            orderUUID + "-txn",
		OrderID:         order.ID,
		PaymentMethod:   constants.PaymentMethodChip,
		TransactionType: constants.TransactionTypeCharge,
		Status:          constants.TransactionStatusPending,
		Total:           order.TotalAmount,
		Currency:        order.Currency,
	}
	if err := env.txnRepo.Create(txn); err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if purchaseID != "" {
		if err := env.metaRepo.Upsert(order.ID, constants.OrderMetaChipPurchaseID, purchaseID); err != nil {
			t.Fatalf("store purchase id failed: %v", err)
		}
	}
	return seededOrder{order: order, txn: txn}
}

func (env *serviceTestEnv) reloadOrder(t *testing.T, id uint) *models.Order {
	t.Helper()
	order, err := env.orderRepo.GetByID(id)
	if err != nil || order == nil {
		t.Fatalf("reload order failed: order=%v err=%v", order, err)
	}
	return order
}

func (env *serviceTestEnv) reloadTxn(t *testing.T, id uint) *models.OrderTransaction {
	t.Helper()
	txn, err := env.txnRepo.GetByID(id)
	if err != nil || txn == nil {
		t.Fatalf("reload transaction failed: txn=%v err=%v", txn, err)
	}
	return txn
}

func (env *serviceTestEnv) activityTitles(t *testing.T, orderID uint) []string {
	t.Helper()
	activities, err := env.activityRepo.ListByOrderID(orderID)
	if err != nil {
		t.Fatalf("list activities failed: %v", err)
	}
	titles := make([]string, 0, len(activities))
	for _, activity := range activities {
		titles = append(titles, activity.Title)
	}
	return titles
}

func paidWebhookBody(reference, purchaseID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"%s","brand_id":"%s","event_type":"purchase.paid","status":"paid","reference":"%s","transaction_data":{"payment_method":"fpx","extra":{"payload":{"fpx_buyerBankBranch":["MAYBANK2U"]}}}}`,
		purchaseID, testBrandID, reference))
}
