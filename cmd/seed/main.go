package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	var (
		orderCount int
		seed       int64
		subject    string
	)
	flag.IntVar(&orderCount, "orders", 5, "生成的待支付订单数量")
	flag.Int64Var(&seed, "seed", 0, "随机种子，0 表示使用当前时间")
	flag.StringVar(&subject, "admin", "seed-admin", "后台令牌的操作人标识")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(models.DB); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)

	for i := 0; i < orderCount; i++ {
		fulfillment := constants.FulfillmentTypeDigital
		if i%2 == 1 {
			fulfillment = constants.FulfillmentTypePhysical
		}
		var txn *models.OrderTransaction
		err := models.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			txn, err = seedOrder(tx, fulfillment)
			return err
		})
		if err != nil {
			stdLog.Printf("Failed to seed order #%d: %v", i+1, err)
			continue
		}
		stdLog.Printf("Created pending %s order, transaction_uuid=%s total=%s", fulfillment, txn.UUID, txn.Total.String())
	}

	token, err := service.IssueAdminToken(cfg.JWT.SecretKey, subject, cfg.JWT.ExpireHours, time.Now())
	if err != nil {
		stdLog.Printf("Failed to issue admin token: %v", err)
		return
	}
	fmt.Printf("Admin token (%s): %s\n", subject, token)
}

func seedOrder(tx *gorm.DB, fulfillment string) (*models.OrderTransaction, error) {
	customer := &models.Customer{
		Email:     gofakeit.Email(),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
	}
	if err := tx.Create(customer).Error; err != nil {
		return nil, err
	}

	itemCount := gofakeit.Number(1, 3)
	items := make([]models.OrderItem, 0, itemCount)
	total := decimal.Zero
	for j := 0; j < itemCount; j++ {
		quantity := gofakeit.Number(1, 3)
		unit := decimal.NewFromFloat(gofakeit.Price(5, 80)).Round(2)
		line := unit.Mul(decimal.NewFromInt(int64(quantity)))
		total = total.Add(line)
		items = append(items, models.OrderItem{
			Title:     gofakeit.ProductName(),
			Quantity:  quantity,
			LineTotal: models.NewMoneyFromDecimal(line),
		})
	}

	addresses := []models.OrderAddress{seedAddress(constants.AddressTypeBilling, customer)}
	shipping := decimal.Zero
	if fulfillment == constants.FulfillmentTypePhysical {
		shipping = decimal.NewFromInt(int64(gofakeit.Number(5, 15)))
		total = total.Add(shipping)
		addresses = append(addresses, seedAddress(constants.AddressTypeShipping, customer))
	}

	order := &models.Order{
		UUID:            uuid.NewString(),
		Status:          constants.OrderStatusPending,
		PaymentStatus:   constants.OrderPaymentStatusPending,
		PaymentMethod:   constants.PaymentMethodChip,
		FulfillmentType: fulfillment,
		Currency:        "MYR",
		TotalAmount:     models.NewMoneyFromDecimal(total),
		ShippingTotal:   models.NewMoneyFromDecimal(shipping),
		Note:            gofakeit.Sentence(6),
		CustomerID:      customer.ID,
		Items:           items,
		Addresses:       addresses,
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}

	txn := &models.OrderTransaction{
		UUID:            uuid.NewString(),
		OrderID:         order.ID,
		PaymentMethod:   constants.PaymentMethodChip,
		TransactionType: constants.TransactionTypeCharge,
		Status:          constants.TransactionStatusPending,
		Total:           order.TotalAmount,
		Currency:        order.Currency,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func seedAddress(addressType string, customer *models.Customer) models.OrderAddress {
	return models.OrderAddress{
		Type:     addressType,
		Name:     customer.FullName(),
		Address1: gofakeit.Street(),
		City:     gofakeit.City(),
		State:    gofakeit.State(),
		Postcode: gofakeit.Zip(),
		Country:  "MY",
		Phone:    gofakeit.Phone(),
	}
}
