package services

import (
	"context"
	"time"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/metrics"
	"github.com/oliveedge/oliveedge/pkg/payment"
)

// Gateway is the payment-provider surface the service depends on.
// payment.Client is the production implementation.
type Gateway interface {
	CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*payment.Intent, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// CreatePaymentInput asks the gateway for a payment intent on an order.
type CreatePaymentInput struct {
	OrderID string `json:"orderId" validate:"required"`
}

// VerifyPaymentInput is the callback payload the checkout page posts after
// the gateway widget completes.
type VerifyPaymentInput struct {
	OrderID        string `json:"orderId"           validate:"required"`
	GatewayOrderID string `json:"razorpayOrderId"   validate:"required"`
	PaymentID      string `json:"razorpayPaymentId" validate:"required"`
	Signature      string `json:"razorpaySignature" validate:"required"`
	Email          string `json:"email"             validate:"nullable,email"`
}

type PaymentService struct {
	orders  *OrderService
	gateway Gateway
}

func NewPaymentService(orders *OrderService) *PaymentService {
	return &PaymentService{orders: orders, gateway: payment.New()}
}

// NewPaymentServiceWith wires an explicit gateway; used by tests.
func NewPaymentServiceWith(orders *OrderService, gw Gateway) *PaymentService {
	return &PaymentService{orders: orders, gateway: gw}
}

// CreateIntent asks the gateway to open a payment for the order total.
// Gateway failures surface as 502; they are not retried here.
func (s *PaymentService) CreateIntent(ctx context.Context, userID string, isAdmin bool, in CreatePaymentInput) (*payment.Intent, error) {
	order, err := s.orders.Get(ctx, in.OrderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, apperr.Conflict("order is already paid")
	}
	if order.IsCancelled {
		return nil, apperr.Conflict("order is cancelled")
	}

	return s.gateway.CreateIntent(ctx, order.TotalPrice, "INR", order.ID.Hex())
}

// Verify checks the gateway signature and, only on success, marks the order
// paid. Any mismatch fails closed with no state change.
func (s *PaymentService) Verify(ctx context.Context, userID string, isAdmin bool, in VerifyPaymentInput) (*models.Order, error) {
	order, err := s.orders.Get(ctx, in.OrderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	if !s.gateway.VerifySignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		metrics.PaymentVerifications.WithLabelValues("invalid").Inc()
		return nil, apperr.SignatureInvalid()
	}
	metrics.PaymentVerifications.WithLabelValues("verified").Inc()

	return s.orders.MarkPaid(ctx, order.ID.Hex(), models.PaymentResult{
		ID:         in.PaymentID,
		Status:     "captured",
		UpdateTime: time.Now().UTC().Format(time.RFC3339),
		Email:      in.Email,
	})
}
