package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/http/response"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const refundTestBaseURL = "https://gate.test/api/v1"

type refundEnv struct {
	db     *gorm.DB
	engine *gin.Engine
}

func setupRefundTest(t *testing.T) *refundEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	dsn := fmt.Sprintf("file:admin_refund_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	cfg := &config.Config{
		Site: config.SiteConfig{BaseURL: "https://shop.test"},
		Chip: config.ChipConfig{
			IsActive:   true,
			BrandID:    "brand-a",
			SecretKey:  "secret-a",
			APIBaseURL: refundTestBaseURL,
		},
		Lock: config.LockConfig{Driver: constants.LockDriverMemory, TimeoutSeconds: 2},
	}
	h := New(provider.NewContainer(cfg, db))

	engine := gin.New()
	engine.POST("/refund", func(c *gin.Context) {
		c.Set(AdminSubjectKey, "ops")
		c.Next()
	}, h.ChipRefund)
	return &refundEnv{db: db, engine: engine}
}

func (env *refundEnv) seedCharge(t *testing.T, orderUUID string) *models.OrderTransaction {
	t.Helper()
	order := &models.Order{
		UUID:            orderUUID,
		Status:          constants.OrderStatusCompleted,
		PaymentStatus:   constants.OrderPaymentStatusPaid,
		PaymentMethod:   constants.PaymentMethodChip,
		FulfillmentType: constants.FulfillmentTypeDigital,
		Currency:        "MYR",
		TotalAmount:     models.NewMoneyFromString("20.00"),
	}
	require.NoError(t, env.db.Create(order).Error)
	txn := &models.OrderTransaction{
		UUID:            orderUUID + "-txn",
		OrderID:         order.ID,
		PaymentMethod:   constants.PaymentMethodChip,
		TransactionType: constants.TransactionTypeCharge,
		Status:          constants.TransactionStatusSucceeded,
		Total:           order.TotalAmount,
		Currency:        "MYR",
		VendorChargeID:  "purchase-a",
		ChipPurchaseID:  "purchase-a",
	}
	require.NoError(t, env.db.Create(txn).Error)
	return txn
}

func (env *refundEnv) refund(t *testing.T, body string) (int, string, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/refund", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.StatusCode, resp.Msg, resp.Data
}

func TestChipRefundRequestValidation(t *testing.T) {
	env := setupRefundTest(t)

	cases := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing uuid", body: `{"amount":"1.00"}`},
		{name: "missing amount", body: `{"transaction_uuid":"t"}`},
		{name: "negative amount", body: `{"transaction_uuid":"t","amount":"-1"}`},
		{name: "too many decimals", body: `{"transaction_uuid":"t","amount":"1.005"}`},
		{name: "not a number", body: `{"transaction_uuid":"t","amount":"ten"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, _ := env.refund(t, tc.body)
			assert.Equal(t, response.CodeBadRequest, code)
		})
	}
}

func TestChipRefundAmountCents(t *testing.T) {
	assert.Equal(t, int64(1050), ChipRefundRequest{Amount: "10.5"}.AmountCents())
	assert.Equal(t, int64(2000), ChipRefundRequest{Amount: " 20 "}.AmountCents())
	assert.Equal(t, int64(0), ChipRefundRequest{Amount: "bad"}.AmountCents())
}

func TestChipRefundPartialThenExceeded(t *testing.T) {
	env := setupRefundTest(t)
	txn := env.seedCharge(t, "order-admin-refund")
	httpmock.RegisterResponder(http.MethodPost, refundTestBaseURL+"/purchases/purchase-a/refund/",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"refund-a","status":"success"}`))

	code, _, data := env.refund(t, `{"transaction_uuid":"`+txn.UUID+`","amount":"5.00","reason":"late"}`)
	require.Equal(t, response.CodeOK, code)
	assert.Equal(t, "refund-a", data["refund_id"])
	assert.Equal(t, constants.OrderPaymentStatusPartiallyRefunded, data["payment_status"])

	code, msg, _ := env.refund(t, `{"transaction_uuid":"`+txn.UUID+`","amount":"15.01"}`)
	assert.Equal(t, response.CodeBadRequest, code)
	assert.Equal(t, "Refund amount exceeds refundable total", msg)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestChipRefundGatewayErrors(t *testing.T) {
	env := setupRefundTest(t)
	txn := env.seedCharge(t, "order-admin-refund-fail")
	body := `{"transaction_uuid":"` + txn.UUID + `","amount":"1.00"}`

	httpmock.RegisterResponder(http.MethodPost, refundTestBaseURL+"/purchases/purchase-a/refund/",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"refund-b","status":"pending"}`))
	code, msg, _ := env.refund(t, body)
	assert.Equal(t, response.CodeBadGateway, code)
	assert.Equal(t, "Refund was rejected by CHIP", msg)

	httpmock.RegisterResponder(http.MethodPost, refundTestBaseURL+"/purchases/purchase-a/refund/",
		httpmock.NewStringResponder(http.StatusInternalServerError, `oops`))
	code, msg, _ = env.refund(t, body)
	assert.Equal(t, response.CodeBadGateway, code)
	assert.Equal(t, "CHIP refund request failed", msg)

	code, _, _ = env.refund(t, `{"transaction_uuid":"missing","amount":"1.00"}`)
	assert.Equal(t, response.CodeNotFound, code)
}
