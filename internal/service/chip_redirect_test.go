package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidPurchase(id string) *chip.Purchase {
	return &chip.Purchase{
		ID:     id,
		Status: chip.StatusPaid,
		TransactionData: chip.TransactionData{
			PaymentMethod: "fpx",
			Extra:         json.RawMessage(`{"payload":{"fpx_buyerBankBranch":["CIMBCLICKS"]}}`),
		},
	}
}

func TestHandleRedirectRejectsPassphrase(t *testing.T) {
	env := setupServiceTest(t)
	seeded := env.seedOrder(t, "order-redirect-pass", constants.FulfillmentTypeDigital, "purchase-r0")

	_, err := env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: seeded.txn.UUID})
	assert.ErrorIs(t, err, ErrRedirectPassphraseDenied, "no stored passphrase rejects everything")

	env.storePassphrase(t)
	_, err = env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: "wrong", TransactionUUID: seeded.txn.UUID})
	assert.ErrorIs(t, err, ErrRedirectPassphraseDenied)

	_, getCalls, _ := env.gateway.counts()
	assert.Equal(t, 0, getCalls)
}

func TestHandleRedirectRejectsUnknownTransaction(t *testing.T) {
	env := setupServiceTest(t)
	env.storePassphrase(t)

	_, err := env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: "  "})
	assert.ErrorIs(t, err, ErrTransactionUUIDEmpty)

	_, err = env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: "missing-txn"})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestHandleRedirectFastPathForSettledOrder(t *testing.T) {
	env := setupServiceTest(t)
	env.storePassphrase(t)
	seeded := env.seedOrder(t, "order-redirect-fast", constants.FulfillmentTypeDigital, "purchase-r1")
	require.NoError(t, env.orderRepo.UpdateFields(seeded.order.ID, map[string]interface{}{
		"status":         constants.OrderStatusCompleted,
		"payment_status": constants.OrderPaymentStatusPaid,
	}))

	result, err := env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: seeded.txn.UUID})
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, "https://shop.test/receipt?trx=order-redirect-fast-txn", result.URL)

	_, getCalls, _ := env.gateway.counts()
	assert.Equal(t, 0, getCalls)
	assert.EqualValues(t, 0, env.locks.acquireCount())
}

func TestHandleRedirectPaidReconciles(t *testing.T) {
	env := setupServiceTest(t)
	env.storePassphrase(t)
	seeded := env.seedOrder(t, "order-redirect-paid", constants.FulfillmentTypePhysical, "purchase-r2")
	env.gateway.purchase = paidPurchase("purchase-r2")

	result, err := env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: seeded.txn.UUID})
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, env.chip.SuccessURL(seeded.txn), result.URL)

	txn := env.reloadTxn(t, seeded.txn.ID)
	assert.Equal(t, constants.TransactionStatusSucceeded, txn.Status)
	assert.Equal(t, "CIMBCLICKS", txn.PaymentMethodType)
	assert.Equal(t, "purchase-r2", txn.VendorChargeID)
	assert.Equal(t, constants.OrderStatusProcessing, env.reloadOrder(t, seeded.order.ID).Status)

	_, getCalls, _ := env.gateway.counts()
	assert.Equal(t, 1, getCalls)
}

func TestHandleRedirectFallsBackToTransactionPurchaseID(t *testing.T) {
	env := setupServiceTest(t)
	env.storePassphrase(t)
	seeded := env.seedOrder(t, "order-redirect-txn-id", constants.FulfillmentTypeDigital, "")
	require.NoError(t, env.txnRepo.UpdateFields(seeded.txn.ID, map[string]interface{}{"chip_purchase_id": "purchase-r3"}))
	env.gateway.purchase = paidPurchase("purchase-r3")

	result, err := env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: seeded.txn.UUID})
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, "purchase-r3", env.reloadTxn(t, seeded.txn.ID).VendorChargeID)
}

func TestHandleRedirectCancelPaths(t *testing.T) {
	cases := []struct {
		name       string
		purchaseID string
		prepare    func(t *testing.T, env *serviceTestEnv, seeded seededOrder)
		wantPolls  int
	}{
		{
			name:       "not paid",
			purchaseID: "purchase-c1",
			prepare: func(_ *testing.T, env *serviceTestEnv, _ seededOrder) {
				env.gateway.purchase = &chip.Purchase{ID: "purchase-c1", Status: "created"}
			},
			wantPolls: 1,
		},
		{
			name:       "gateway unavailable",
			purchaseID: "purchase-c2",
			prepare: func(_ *testing.T, env *serviceTestEnv, _ seededOrder) {
				env.gateway.purchaseErr = chip.ErrUnavailable
			},
			wantPolls: 1,
		},
		{
			name:       "missing purchase id",
			purchaseID: "",
			prepare:    func(*testing.T, *serviceTestEnv, seededOrder) {},
			wantPolls:  0,
		},
		{
			name:       "lock held elsewhere",
			purchaseID: "purchase-c3",
			prepare: func(t *testing.T, env *serviceTestEnv, seeded seededOrder) {
				env.gateway.purchase = paidPurchase("purchase-c3")
				env.reconciler.lockTimeout = 20 * time.Millisecond
				held, err := env.locks.inner.Acquire(context.Background(), seeded.order.ID, time.Second)
				if err != nil || !held {
					t.Fatalf("pre-acquire lock failed: held=%v err=%v", held, err)
				}
			},
			wantPolls: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupServiceTest(t)
			env.storePassphrase(t)
			seeded := env.seedOrder(t, "order-redirect-cancel", constants.FulfillmentTypeDigital, tc.purchaseID)
			tc.prepare(t, env, seeded)

			result, err := env.chip.HandleRedirect(context.Background(), RedirectInput{Passphrase: testPassphrase, TransactionUUID: seeded.txn.UUID})
			require.NoError(t, err)
			assert.False(t, result.Paid)
			assert.Equal(t, "https://shop.test/checkout?trx=order-redirect-cancel-txn&cancelled=1", result.URL)

			_, getCalls, _ := env.gateway.counts()
			assert.Equal(t, tc.wantPolls, getCalls)
			assert.Equal(t, constants.TransactionStatusPending, env.reloadTxn(t, seeded.txn.ID).Status)
		})
	}
}

func TestRedirectURLCarriesPassphraseAndTransaction(t *testing.T) {
	env := setupServiceTest(t)
	seeded := env.seedOrder(t, "order-redirect-url", constants.FulfillmentTypeDigital, "")

	got := env.chip.RedirectURL("abc", seeded.txn)
	assert.Equal(t, "https://shop.test/api/v1/payments/chip/redirect?chip-for-fluent-cart-redirect=abc&transaction_uuid=order-redirect-url-txn", got)
	assert.Equal(t, "https://shop.test/api/v1/payments/webhook/chip", env.chip.WebhookURL())
}

func TestReceiptURL(t *testing.T) {
	env := setupServiceTest(t)
	seeded := env.seedOrder(t, "order-receipt", constants.FulfillmentTypeDigital, "")

	url, err := env.chip.Receipt(context.Background(), seeded.txn.UUID)
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, env.txnRepo.UpdateFields(seeded.txn.ID, map[string]interface{}{"chip_purchase_id": "purchase-rc"}))
	url, err = env.chip.Receipt(context.Background(), seeded.txn.UUID)
	require.NoError(t, err)
	assert.Equal(t, chip.ReceiptURL("purchase-rc", constants.TransactionTypeCharge), url)

	_, err = env.chip.Receipt(context.Background(), "")
	assert.ErrorIs(t, err, ErrTransactionUUIDEmpty)
	_, err = env.chip.Receipt(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
