package public

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jarcoal/httpmock"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	handlerTestBrand   = "brand-h"
	handlerTestBaseURL = "https://gate.test/api/v1"
	handlerPassphrase  = "pass-h"
)

var (
	handlerKeyOnce sync.Once
	handlerKey     *rsa.PrivateKey
)

func handlerPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	handlerKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		handlerKey = key
	})
	return handlerKey
}

func handlerPublicKeyJSON(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&handlerPrivateKey(t).PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	encoded, err := json.Marshal(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})))
	if err != nil {
		t.Fatalf("encode public key failed: %v", err)
	}
	return string(encoded)
}

func handlerSign(t *testing.T, body []byte) string {
	t.Helper()
	digest := sha256.Sum256(body)
	signature, err := rsa.SignPKCS1v15(rand.Reader, handlerPrivateKey(t), crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(signature)
}

type handlerEnv struct {
	db        *gorm.DB
	container *provider.Container
	engine    *gin.Engine
}

func setupHandlerTest(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	dsn := fmt.Sprintf("file:public_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	cfg := &config.Config{
		Site: config.SiteConfig{
			BaseURL:    "https://shop.test",
			SuccessURL: "https://shop.test/receipt?trx={transaction_uuid}",
			CancelURL:  "https://shop.test/checkout?trx={transaction_uuid}",
		},
		Chip: config.ChipConfig{
			IsActive:     true,
			BrandID:      handlerTestBrand,
			SecretKey:    "secret-h",
			APIBaseURL:   handlerTestBaseURL,
			CreatorAgent: "ChipGateway test",
		},
		Lock: config.LockConfig{Driver: constants.LockDriverAuto, TimeoutSeconds: 2},
	}
	container := provider.NewContainer(cfg, db)
	h := New(container)

	engine := gin.New()
	engine.POST("/api/v1/payments/webhook/chip", h.ChipWebhook)
	engine.GET("/api/v1/payments/chip/redirect", h.ChipRedirect)
	engine.POST("/api/v1/payments/chip/checkout", h.ChipCheckout)
	engine.GET("/api/v1/payments/chip/receipt/:transaction_uuid", h.ChipReceipt)
	return &handlerEnv{db: db, container: container, engine: engine}
}

func (env *handlerEnv) seed(t *testing.T, orderUUID, purchaseID string) (*models.Order, *models.OrderTransaction) {
	t.Helper()
	order := &models.Order{
		UUID:            orderUUID,
		Status:          constants.OrderStatusPending,
		PaymentStatus:   constants.OrderPaymentStatusPending,
		PaymentMethod:   constants.PaymentMethodChip,
		FulfillmentType: constants.FulfillmentTypeDigital,
		Currency:        "MYR",
		TotalAmount:     models.NewMoneyFromString("12.00"),
		Items:           []models.OrderItem{{Title: "Ebook", Quantity: 1, LineTotal: models.NewMoneyFromString("12.00")}},
	}
	if err := env.db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	txn := &models.OrderTransaction{
		UUID:            orderUUID + "-txn",
		OrderID:         order.ID,
		PaymentMethod:   constants.PaymentMethodChip,
		TransactionType: constants.TransactionTypeCharge,
		Status:          constants.TransactionStatusPending,
		Total:           order.TotalAmount,
		Currency:        "MYR",
		ChipPurchaseID:  purchaseID,
	}
	if err := env.db.Create(txn).Error; err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	return order, txn
}

func (env *handlerEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *handlerEnv) orderStatus(t *testing.T, id uint) string {
	t.Helper()
	var order models.Order
	if err := env.db.First(&order, id).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return order.Status
}

func paidBody(reference, purchaseID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"%s","brand_id":"%s","event_type":"purchase.paid","status":"paid","reference":"%s","transaction_data":{"payment_method":"visa"}}`,
		purchaseID, handlerTestBrand, reference))
}

func webhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/chip", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(chipSignatureHeader, signature)
	}
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (int, map[string]interface{}) {
	t.Helper()
	var resp struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return resp.StatusCode, resp.Data
}
