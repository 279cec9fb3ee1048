package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"

	"gorm.io/gorm"
)

const maxPurchaseNotesRunes = 1000

// CheckoutResult 创建支付结果
type CheckoutResult struct {
	CheckoutURL string
	PurchaseID  string
}

// CreatePayment 为待支付交易创建 CHIP purchase
func (s *ChipService) CreatePayment(ctx context.Context, transactionUUID string) (*CheckoutResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.cfg.IsActive {
		return nil, ErrChipInactive
	}
	if !s.hasCredentials() {
		return nil, ErrChipCredentialsMissing
	}
	transactionUUID = strings.TrimSpace(transactionUUID)
	if transactionUUID == "" {
		return nil, ErrTransactionUUIDEmpty
	}
	txn, err := s.txnRepo.GetByUUID(transactionUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if txn == nil || txn.PaymentMethod != constants.PaymentMethodChip || txn.TransactionType != constants.TransactionTypeCharge {
		return nil, ErrTransactionNotFound
	}
	order, err := s.orderRepo.GetDetail(txn.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsPaymentSettled() || txn.Status == constants.TransactionStatusSucceeded {
		return nil, ErrOrderAlreadyPaid
	}
	customer, err := s.customerRepo.GetByID(order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	passphrase, err := s.passphrase.Ensure(ctx)
	if err != nil {
		logger.Errorw("chip_redirect_passphrase_ensure_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrChipCheckoutFailed, err)
	}

	params := s.buildPurchaseParams(order, txn, customer, passphrase)
	log := logger.SW("gateway", constants.PaymentMethodChip, "order_id", order.ID, "transaction_uuid", txn.UUID)
	created, err := s.gateway.CreatePayment(ctx, params)
	if err != nil {
		log.Warnw("chip_checkout_create_failed", "error", err)
		if errors.Is(err, chip.ErrPurchaseRejected) {
			return nil, fmt.Errorf("%w: %w", ErrChipCheckoutFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrChipCheckoutFailed, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.metaRepo.WithTx(tx).Upsert(order.ID, constants.OrderMetaChipPurchaseID, created.PurchaseID); err != nil {
			return err
		}
		return s.txnRepo.WithTx(tx).UpdateFields(txn.ID, map[string]interface{}{
			"chip_purchase_id": created.PurchaseID,
		})
	})
	if err != nil {
		log.Errorw("chip_checkout_persist_failed", "purchase_id", created.PurchaseID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	log.Infow("chip_checkout_created", "purchase_id", created.PurchaseID)
	return &CheckoutResult{CheckoutURL: created.CheckoutURL, PurchaseID: created.PurchaseID}, nil
}

func (s *ChipService) buildPurchaseParams(order *models.Order, txn *models.OrderTransaction, customer *models.Customer, passphrase string) chip.PurchaseParams {
	cancelURL := s.CancelURL(txn)
	params := chip.PurchaseParams{
		BrandID:         s.cfg.BrandID,
		Reference:       order.UUID,
		SuccessRedirect: s.RedirectURL(passphrase, txn),
		SuccessCallback: s.WebhookURL(),
		FailureRedirect: cancelURL,
		CancelRedirect:  cancelURL,
		SendReceipt:     false,
		CreatorAgent:    s.cfg.CreatorAgent,
		Purchase: chip.PurchaseDetails{
			Currency:      order.Currency,
			TotalOverride: chip.ToCents(order.TotalAmount.Decimal),
			Products:      buildProducts(order),
			Notes:         truncateRunes(strings.TrimSpace(order.Note), maxPurchaseNotesRunes),
		},
		Client: buildClientDetails(order, customer),
	}
	if params.Client.Email == "" {
		params.Client.Email = s.cfg.EmailFallback
	}
	if len(s.cfg.PaymentMethodWhitelist) > 0 {
		params.PaymentMethodWhitelist = append([]string(nil), s.cfg.PaymentMethodWhitelist...)
	}
	return params
}

func buildProducts(order *models.Order) []chip.Product {
	products := make([]chip.Product, 0, len(order.Items)+1)
	for _, item := range order.Items {
		name := strings.TrimSpace(item.Title)
		if name == "" {
			continue
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		products = append(products, chip.Product{
			Name:     name,
			Price:    chip.ToCents(item.LineTotal.Decimal),
			Quantity: quantity,
		})
	}
	if shipping := chip.ToCents(order.ShippingTotal.Decimal); shipping > 0 {
		products = append(products, chip.Product{Name: "Shipping Fee", Price: shipping, Quantity: 1})
	}
	if len(products) == 0 {
		products = append(products, chip.Product{
			Name:     "Order #" + order.UUID,
			Price:    chip.ToCents(order.TotalAmount.Decimal),
			Quantity: 1,
		})
	}
	return products
}

func buildClientDetails(order *models.Order, customer *models.Customer) chip.ClientDetails {
	billing := order.Address(constants.AddressTypeBilling)
	shipping := order.Address(constants.AddressTypeShipping)
	client := chip.ClientDetails{}
	if customer != nil {
		client.Email = strings.TrimSpace(customer.Email)
		client.FullName = customer.FullName()
		if customer.ID != 0 {
			client.PersonalCode = strconv.FormatUint(uint64(customer.ID), 10)
		}
	}
	if billing != nil {
		client.Phone = strings.TrimSpace(billing.Phone)
		client.StreetAddress = billing.StreetAddress()
		client.Country = billing.Country
		client.City = billing.City
		client.ZipCode = billing.Postcode
		client.State = billing.State
		if client.FullName == "" {
			client.FullName = strings.TrimSpace(billing.Name)
		}
	}
	if shipping != nil {
		if client.Phone == "" {
			client.Phone = strings.TrimSpace(shipping.Phone)
		}
		client.ShippingStreetAddress = shipping.StreetAddress()
		client.ShippingCountry = shipping.Country
		client.ShippingCity = shipping.City
		client.ShippingZipCode = shipping.Postcode
		client.ShippingState = shipping.State
	}
	return client
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
