//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.OrderActivity{},
		&models.OrderMeta{},
		&models.OrderTransaction{},
		&models.OrderAddress{},
		&models.OrderItem{},
		&models.Order{},
		&models.Customer{},
		&models.Setting{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresSettingAndMetaUpsert(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	settings := NewSettingRepository(db)
	if _, err := settings.Upsert(constants.SettingKeyChipRedirectPassphrase, models.JSON{"value": "one"}); err != nil {
		t.Fatalf("insert setting failed: %v", err)
	}
	if _, err := settings.Upsert(constants.SettingKeyChipRedirectPassphrase, models.JSON{"value": "two"}); err != nil {
		t.Fatalf("update setting failed: %v", err)
	}
	setting, err := settings.GetByKey(constants.SettingKeyChipRedirectPassphrase)
	if err != nil || setting == nil || setting.ValueJSON.String("value") != "two" {
		t.Fatalf("unexpected setting: %+v err=%v", setting, err)
	}

	order := &models.Order{
		UUID:            "pg-order-1",
		Status:          constants.OrderStatusPending,
		PaymentStatus:   constants.OrderPaymentStatusPending,
		FulfillmentType: constants.FulfillmentTypeDigital,
		Currency:        "MYR",
	}
	if err := NewOrderRepository(db).Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	metas := NewOrderMetaRepository(db)
	if err := metas.Upsert(order.ID, constants.OrderMetaChipPurchaseID, "p1"); err != nil {
		t.Fatalf("insert meta failed: %v", err)
	}
	if err := metas.Upsert(order.ID, constants.OrderMetaChipPurchaseID, "p2"); err != nil {
		t.Fatalf("update meta failed: %v", err)
	}
	value, err := metas.Get(order.ID, constants.OrderMetaChipPurchaseID)
	if err != nil || value != "p2" {
		t.Fatalf("unexpected meta value=%s err=%v", value, err)
	}
}
