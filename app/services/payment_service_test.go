package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/payment"
)

type fakeGateway struct {
	verifyResult bool
	intent       *payment.Intent
	intentErr    error

	lastAmount  float64
	lastReceipt string
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount float64, currency, receipt string) (*payment.Intent, error) {
	g.lastAmount = amount
	g.lastReceipt = receipt
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	if g.intent != nil {
		return g.intent, nil
	}
	return &payment.Intent{ID: "order_gw1", Amount: int64(amount * 100), Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (g *fakeGateway) VerifySignature(_, _, _ string) bool { return g.verifyResult }

func paymentFixture(t *testing.T, gw Gateway) (*PaymentService, *models.Order, *fakeProducts, *models.Product) {
	t.Helper()
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	orders := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, orders, products, shirt)
	return NewPaymentServiceWith(orders, gw), order, products, shirt
}

func TestCreateIntentUsesOrderTotal(t *testing.T) {
	gw := &fakeGateway{}
	svc, order, _, _ := paymentFixture(t, gw)

	intent, err := svc.CreateIntent(context.Background(), testUserID.Hex(), false,
		CreatePaymentInput{OrderID: order.ID.Hex()})
	require.NoError(t, err)

	assert.Equal(t, order.TotalPrice, gw.lastAmount, "intent must be opened for the server total")
	assert.Equal(t, order.ID.Hex(), gw.lastReceipt)
	assert.Equal(t, "created", intent.Status)
}

func TestCreateIntentPaidOrderConflicts(t *testing.T) {
	gw := &fakeGateway{verifyResult: true}
	svc, order, _, _ := paymentFixture(t, gw)

	_, err := svc.Verify(context.Background(), testUserID.Hex(), false, VerifyPaymentInput{
		OrderID: order.ID.Hex(), GatewayOrderID: "order_gw1", PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)

	_, err = svc.CreateIntent(context.Background(), testUserID.Hex(), false,
		CreatePaymentInput{OrderID: order.ID.Hex()})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCreateIntentGatewayFailureSurfaces(t *testing.T) {
	gw := &fakeGateway{intentErr: apperr.Gateway(errors.New("connection refused"))}
	svc, order, _, _ := paymentFixture(t, gw)

	_, err := svc.CreateIntent(context.Background(), testUserID.Hex(), false,
		CreatePaymentInput{OrderID: order.ID.Hex()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
}

func TestVerifyValidSignatureMarksPaid(t *testing.T) {
	gw := &fakeGateway{verifyResult: true}
	svc, order, _, _ := paymentFixture(t, gw)

	paid, err := svc.Verify(context.Background(), testUserID.Hex(), false, VerifyPaymentInput{
		OrderID:        order.ID.Hex(),
		GatewayOrderID: "order_gw1",
		PaymentID:      "pay_99",
		Signature:      "deadbeef",
		Email:          "asha@example.com",
	})
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	assert.Equal(t, models.StatusProcessing, paid.Status)
	require.NotNil(t, paid.PaymentResult)
	assert.Equal(t, "pay_99", paid.PaymentResult.ID)
	assert.Equal(t, "captured", paid.PaymentResult.Status)
	assert.Equal(t, "asha@example.com", paid.PaymentResult.Email)
}

func TestVerifyInvalidSignatureFailsClosed(t *testing.T) {
	gw := &fakeGateway{verifyResult: false}
	svc, order, _, _ := paymentFixture(t, gw)

	_, err := svc.Verify(context.Background(), testUserID.Hex(), false, VerifyPaymentInput{
		OrderID:        order.ID.Hex(),
		GatewayOrderID: "order_gw1",
		PaymentID:      "pay_99",
		Signature:      "tampered",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindSignature, apperr.KindOf(err))

	// The order must be untouched.
	unchanged, err := svc.orders.Get(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.NoError(t, err)
	assert.False(t, unchanged.IsPaid)
	assert.Equal(t, models.StatusPending, unchanged.Status)
	assert.Nil(t, unchanged.PaymentResult)
}

func TestVerifyStrangerForbidden(t *testing.T) {
	gw := &fakeGateway{verifyResult: true}
	svc, order, _, _ := paymentFixture(t, gw)

	_, err := svc.Verify(context.Background(), "000000000000000000000001", false, VerifyPaymentInput{
		OrderID: order.ID.Hex(), GatewayOrderID: "x", PaymentID: "y", Signature: "z",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
