package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/event"
	"github.com/oliveedge/oliveedge/pkg/logger"
	"github.com/oliveedge/oliveedge/pkg/metrics"
)

// Event names fired by the order service. Listeners are registered in
// app/jobs at boot.
const (
	EventOrderCreated   = "order.created"
	EventOrderStatus    = "order.status"
	EventOrderDelivered = "order.delivered"
)

// ProductStore is the slice of the product repository the order flow needs.
// Declared here so lifecycle tests can run against an in-memory fake.
type ProductStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// OrderStore is the slice of the order repository the order flow needs.
type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error)
	Update(ctx context.Context, o *models.Order) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindExpiredUnpaid(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Qty       int    `json:"qty"       validate:"required,gte=1,lte=99"`
	Size      string `json:"size"      validate:"nullable,max=10"`
}

// CreateOrderInput is the buyer payload for placing an order. Any totals the
// client sends are ignored; the server recomputes them from catalogue prices.
type CreateOrderInput struct {
	Items           []OrderItemInput       `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"  validate:"required,in=razorpay,cod"`
	IdempotencyKey  string                 `json:"idempotencyKey" validate:"nullable,max=100"`
}

type OrderService struct {
	orders   OrderStore
	products ProductStore
}

func NewOrderService() *OrderService {
	return &OrderService{
		orders:   repositories.NewOrderRepository(),
		products: repositories.NewProductRepository(),
	}
}

// NewOrderServiceWith wires explicit stores; used by tests.
func NewOrderServiceWith(orders OrderStore, products ProductStore) *OrderService {
	return &OrderService{orders: orders, products: products}
}

// Create places an order: validate, snapshot authoritative prices, persist,
// then reserve stock with guarded decrements. A guard miss after the insert
// rolls back the decrements already applied and cancels the order.
func (s *OrderService) Create(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}

	if len(in.Items) == 0 {
		metrics.OrdersRejected.WithLabelValues("empty").Inc()
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.Qty < 1 {
			metrics.OrdersRejected.WithLabelValues("invalid_qty").Inc()
			return nil, apperr.Validation("item quantity must be at least 1")
		}
	}

	// Re-submission with the same key returns the original order.
	if in.IdempotencyKey != "" {
		if existing, err := s.orders.FindByIdempotencyKey(ctx, uid, in.IdempotencyKey); err == nil {
			return existing, nil
		} else if !apperr.IsNotFound(err) {
			return nil, err
		}
	}

	// Check phase: snapshot price and availability per line. Nothing is
	// persisted until every line passes.
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			metrics.OrdersRejected.WithLabelValues("not_found").Inc()
			return nil, apperr.NotFound("product %s not found", it.ProductID)
		}
		product, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if apperr.IsNotFound(err) {
				metrics.OrdersRejected.WithLabelValues("not_found").Inc()
			}
			return nil, err
		}
		if product.CountInStock < it.Qty {
			metrics.OrdersRejected.WithLabelValues("insufficient_stock").Inc()
			return nil, apperr.Conflict("insufficient stock for %s", product.Name)
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			Price:     product.Price,
			Qty:       it.Qty,
			Size:      it.Size,
		})
	}

	order := &models.Order{
		UserID:         uid,
		IdempotencyKey: in.IdempotencyKey,
		OrderItems:     items,
		ShippingAddr:   in.ShippingAddress,
		PaymentMethod:  in.PaymentMethod,
		Status:         models.StatusPending,
	}
	order.ComputeTotals()

	if err := s.orders.Insert(ctx, order); err != nil {
		// A concurrent duplicate submission may have won the insert race.
		if apperr.IsConflict(err) && in.IdempotencyKey != "" {
			if existing, ferr := s.orders.FindByIdempotencyKey(ctx, uid, in.IdempotencyKey); ferr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	// Reserve phase: guarded decrement per line. The filter re-checks stock
	// at write time, so concurrent orders can never drive it negative.
	for i, it := range order.OrderItems {
		ok, err := s.products.DecrementStock(ctx, it.ProductID, it.Qty)
		if err == nil && ok {
			continue
		}
		metrics.StockConflicts.Inc()
		metrics.OrdersRejected.WithLabelValues("insufficient_stock").Inc()
		s.compensate(ctx, order, i)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("insufficient stock for %s", it.Name)
	}

	metrics.OrdersCreated.Inc()
	event.FireAsync(EventOrderCreated, order)
	return order, nil
}

// compensate rolls back the first reserved lines of a failed order and marks
// the order cancelled and flagged for operator review.
func (s *OrderService) compensate(ctx context.Context, order *models.Order, reserved int) {
	for j := 0; j < reserved; j++ {
		it := order.OrderItems[j]
		if err := s.products.IncrementStock(ctx, it.ProductID, it.Qty); err != nil {
			logger.Error("order: compensation restock failed",
				"order", order.ID.Hex(), "product", it.ProductID.Hex(), "error", err)
		}
	}
	order.Cancel(time.Now().UTC())
	order.StockFlagged = true
	if err := s.orders.Update(ctx, order); err != nil {
		logger.Error("order: flagging failed order", "order", order.ID.Hex(), "error", err)
	}
}

// Get returns one order, restricted to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID.Hex() != userID {
		return nil, apperr.Forbidden("not your order")
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID string) ([]models.Order, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}
	return s.orders.FindByUser(ctx, uid)
}

// MarkPaid records a verified payment. Calling it twice is a no-op so a
// duplicated verify callback cannot corrupt the order.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string, result models.PaymentResult) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsCancelled {
		return nil, apperr.Conflict("order is cancelled")
	}
	if order.IsPaid {
		return order, nil
	}

	order.MarkPaid(result, time.Now().UTC())
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	event.FireAsync(EventOrderStatus, order)
	return order, nil
}

// SetStatus applies an admin status transition. The cancelled transition is
// routed through the same restocking path as Cancel, so inventory effects do
// not depend on which endpoint cancelled the order.
func (s *OrderService) SetStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	parsed, ok := models.ParseStatus(status)
	if !ok {
		return nil, apperr.Validation("invalid status %q", status)
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if parsed == models.StatusCancelled {
		return s.cancelOrder(ctx, order)
	}
	if order.IsCancelled {
		return nil, apperr.Conflict("order is cancelled")
	}

	order.SetStatus(parsed, time.Now().UTC())
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	event.FireAsync(EventOrderStatus, order)
	if parsed == models.StatusDelivered {
		event.FireAsync(EventOrderDelivered, order)
	}
	return order, nil
}

// Deliver is the admin shorthand for the delivered transition.
func (s *OrderService) Deliver(ctx context.Context, orderID string) (*models.Order, error) {
	return s.SetStatus(ctx, orderID, string(models.StatusDelivered))
}

// Cancel cancels an order for its owner (or an admin) and restocks the items
// if the parcel has not shipped yet.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	return s.cancelOrder(ctx, order)
}

// cancelOrder is the single cancellation path, shared by Cancel and the
// admin status transition.
func (s *OrderService) cancelOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.IsDelivered {
		return nil, apperr.Conflict("delivered orders cannot be cancelled")
	}
	if order.IsCancelled {
		return nil, apperr.Conflict("order is already cancelled")
	}

	if order.ShippedAt == nil {
		for _, it := range order.OrderItems {
			if err := s.products.IncrementStock(ctx, it.ProductID, it.Qty); err != nil {
				logger.Error("order: cancel restock failed",
					"order", order.ID.Hex(), "product", it.ProductID.Hex(), "error", err)
			}
		}
	}

	order.Cancel(time.Now().UTC())
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	event.FireAsync(EventOrderStatus, order)
	return order, nil
}

// RequestReturn records a one-time return request on a delivered order.
func (s *OrderService) RequestReturn(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !order.IsDelivered {
		return nil, apperr.Conflict("only delivered orders can be returned")
	}
	if order.IsReturnRequested {
		return nil, apperr.Conflict("return already requested")
	}

	order.RequestReturn(time.Now().UTC())
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Tracking projects an order onto the fixed tracking stages for its owner or
// an admin.
func (s *OrderService) Tracking(ctx context.Context, orderID, userID string, isAdmin bool) ([]models.TrackingStage, error) {
	order, err := s.Get(ctx, orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	return order.Timeline(), nil
}

// ExpireUnpaid cancels pending unpaid orders older than maxAge and restocks
// their items. Run from the scheduler.
func (s *OrderService) ExpireUnpaid(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	orders, err := s.orders.FindExpiredUnpaid(ctx, cutoff)
	if err != nil {
		logger.Error("order: expiry sweep query failed", "error", err)
		return 0
	}

	expired := 0
	for i := range orders {
		order := &orders[i]
		for _, it := range order.OrderItems {
			if err := s.products.IncrementStock(ctx, it.ProductID, it.Qty); err != nil {
				logger.Error("order: expiry restock failed",
					"order", order.ID.Hex(), "product", it.ProductID.Hex(), "error", err)
			}
		}
		order.Cancel(time.Now().UTC())
		if err := s.orders.Update(ctx, order); err != nil {
			logger.Error("order: expiry cancel failed", "order", order.ID.Hex(), "error", err)
			continue
		}
		event.FireAsync(EventOrderStatus, order)
		expired++
	}

	if expired > 0 {
		logger.Info("order: expired unpaid orders", "count", expired)
	}
	return expired
}

func (s *OrderService) load(ctx context.Context, orderID string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperr.NotFound("order not found")
	}
	return s.orders.FindByID(ctx, oid)
}
