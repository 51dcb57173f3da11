package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/pkg/apperr"
)

// ─── In-memory stores ────────────────────────────────────────────────────────

type fakeProducts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Product
}

func newFakeProducts(products ...*models.Product) *fakeProducts {
	f := &fakeProducts{items: make(map[primitive.ObjectID]*models.Product)}
	for _, p := range products {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, apperr.NotFound("product not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.CountInStock < qty {
		return false, nil
	}
	p.CountInStock -= qty
	return true, nil
}

func (f *fakeProducts) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.items[id]; ok {
		p.CountInStock += qty
	}
	return nil
}

func (f *fakeProducts) stock(id primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].CountInStock
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (f *fakeOrders) Insert(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.IdempotencyKey != "" {
		for _, existing := range f.orders {
			if existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
				return apperr.Conflict("order with this idempotency key already exists")
			}
		}
	}
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now().UTC()
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) FindByIdempotencyKey(_ context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.UserID == userID && o.IdempotencyKey == key && !o.IsCancelled {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("order not found")
}

func (f *fakeOrders) Update(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.ID]; !ok {
		return apperr.NotFound("order not found")
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) FindExpiredUnpaid(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.Status == models.StatusPending && !o.IsPaid && o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

var testUserID = primitive.NewObjectID()

func orderInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items: items,
		ShippingAddress: models.ShippingAddress{
			FullName: "Asha Verma", Address: "14 Hill Road",
			City: "Mumbai", PostalCode: "400050", Country: "IN",
		},
		PaymentMethod: "razorpay",
	}
}

// ─── Create ──────────────────────────────────────────────────────────────────

func TestCreateOrderComputesServerTotals(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, products)

	order, err := svc.Create(context.Background(), testUserID.Hex(),
		orderInput(OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 2}))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, order.ItemsPrice)
	assert.Equal(t, 150.0, order.TaxPrice)
	assert.Equal(t, 100.0, order.ShippingPrice)
	assert.Equal(t, 1250.0, order.TotalPrice)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.False(t, order.IsPaid)
	assert.Equal(t, 8, products.stock(shirt.ID))
}

func TestCreateOrderSnapshotsCataloguePrice(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 1499, CountInStock: 5, Image: "/img/oxford.jpg"}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)

	order, err := svc.Create(context.Background(), testUserID.Hex(),
		orderInput(OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 1, Size: "M"}))
	require.NoError(t, err)

	require.Len(t, order.OrderItems, 1)
	it := order.OrderItems[0]
	assert.Equal(t, shirt.ID, it.ProductID)
	assert.Equal(t, "Oxford Shirt", it.Name)
	assert.Equal(t, 1499.0, it.Price)
	assert.Equal(t, "M", it.Size)
	assert.Equal(t, "/img/oxford.jpg", it.Image)
}

func TestCreateOrderEmptyItems(t *testing.T) {
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, newFakeProducts())

	_, err := svc.Create(context.Background(), testUserID.Hex(), orderInput())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, orders.count(), "nothing may be persisted")
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, newFakeProducts())

	_, err := svc.Create(context.Background(), testUserID.Hex(),
		orderInput(OrderItemInput{ProductID: primitive.NewObjectID().Hex(), Qty: 1}))
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Zero(t, orders.count())
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 1}
	products := newFakeProducts(shirt)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, products)

	_, err := svc.Create(context.Background(), testUserID.Hex(),
		orderInput(OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 3}))
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Zero(t, orders.count(), "check phase must persist nothing")
	assert.Equal(t, 1, products.stock(shirt.ID), "stock must be untouched")
}

func TestCreateOrderGuardMissCompensates(t *testing.T) {
	// The sweater passes the check phase but is drained before the reserve
	// phase reaches it, forcing the guard to miss.
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	sweater := &models.Product{Name: "Merino Sweater", Price: 900, CountInStock: 2}
	products := newFakeProducts(shirt, sweater)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, &racingProducts{fakeProducts: products, drain: sweater.ID})

	_, err := svc.Create(context.Background(), testUserID.Hex(), orderInput(
		OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 2},
		OrderItemInput{ProductID: sweater.ID.Hex(), Qty: 1},
	))
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// The shirt reservation was rolled back.
	assert.Equal(t, 10, products.stock(shirt.ID))

	// The inserted order is cancelled and flagged, not silently dropped.
	require.Equal(t, 1, orders.count())
	for _, o := range orders.orders {
		assert.True(t, o.IsCancelled)
		assert.True(t, o.StockFlagged)
		assert.Equal(t, models.StatusCancelled, o.Status)
	}
}

// racingProducts drains one product's stock the moment the check phase has
// passed, simulating a concurrent buyer winning the race.
type racingProducts struct {
	*fakeProducts
	drain   primitive.ObjectID
	drained bool
}

func (r *racingProducts) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	if !r.drained {
		r.drained = true
		r.fakeProducts.mu.Lock()
		r.fakeProducts.items[r.drain].CountInStock = 0
		r.fakeProducts.mu.Unlock()
	}
	return r.fakeProducts.DecrementStock(ctx, id, qty)
}

func TestCreateOrderIdempotentResubmission(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, products)

	in := orderInput(OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 2})
	in.IdempotencyKey = "checkout-abc123"

	first, err := svc.Create(context.Background(), testUserID.Hex(), in)
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), testUserID.Hex(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-submission must return the original order")
	assert.Equal(t, 1, orders.count())
	assert.Equal(t, 8, products.stock(shirt.ID), "stock must be reserved exactly once")
}

func TestRetryAfterCompensationCreatesFreshOrder(t *testing.T) {
	// First attempt loses the reserve-phase race on the sweater and is
	// cancelled with compensation. Once stock returns, a retry with the same
	// idempotency key must place a new order, not replay the cancelled one.
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	sweater := &models.Product{Name: "Merino Sweater", Price: 900, CountInStock: 1}
	products := newFakeProducts(shirt, sweater)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, &racingProducts{fakeProducts: products, drain: sweater.ID})

	in := orderInput(
		OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 2},
		OrderItemInput{ProductID: sweater.ID.Hex(), Qty: 1},
	)
	in.IdempotencyKey = "checkout-retry-1"

	_, err := svc.Create(context.Background(), testUserID.Hex(), in)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// The cancelled order no longer holds the key.
	require.Equal(t, 1, orders.count())
	for _, o := range orders.orders {
		assert.True(t, o.IsCancelled)
		assert.Empty(t, o.IdempotencyKey, "cancellation must release the key")
	}

	// Stock comes back (a restock, or the racing buyer cancelling).
	products.mu.Lock()
	products.items[sweater.ID].CountInStock = 1
	products.mu.Unlock()

	retry, err := svc.Create(context.Background(), testUserID.Hex(), in)
	require.NoError(t, err)
	assert.False(t, retry.IsCancelled, "retry must not replay the cancelled order")
	assert.False(t, retry.StockFlagged)
	assert.Equal(t, models.StatusPending, retry.Status)
	assert.Equal(t, 2, orders.count(), "retry places a second, live order")
	assert.Equal(t, 8, products.stock(shirt.ID))
	assert.Equal(t, 0, products.stock(sweater.ID))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 5}
	products := newFakeProducts(shirt)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, products)

	const buyers = 20
	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), primitive.NewObjectID().Hex(),
				orderInput(OrderItemInput{ProductID: shirt.ID.Hex(), Qty: 1}))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, products.stock(shirt.ID), 0, "stock must never go negative")
	assert.LessOrEqual(t, successes, int64(5), "at most five units can be sold")
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

func placeOrder(t *testing.T, svc *OrderService, products *fakeProducts, p *models.Product) *models.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), testUserID.Hex(),
		orderInput(OrderItemInput{ProductID: p.ID.Hex(), Qty: 1}))
	require.NoError(t, err)
	return order
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)

	paid, err := svc.MarkPaid(context.Background(), order.ID.Hex(),
		models.PaymentResult{ID: "pay_1", Status: "captured"})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, models.StatusProcessing, paid.Status)
	firstPaidAt := paid.PaidAt

	again, err := svc.MarkPaid(context.Background(), order.ID.Hex(),
		models.PaymentResult{ID: "pay_2", Status: "captured"})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", again.PaymentResult.ID, "second callback must not overwrite")
	assert.Equal(t, firstPaidAt, again.PaidAt)
}

func TestCancelRestocksUnshippedOrder(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)
	require.Equal(t, 9, products.stock(shirt.ID))

	cancelled, err := svc.Cancel(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, 10, products.stock(shirt.ID), "cancel before shipping restocks")
}

func TestCancelShippedOrderKeepsStock(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)

	_, err := svc.SetStatus(context.Background(), order.ID.Hex(), "shipped")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.NoError(t, err)
	assert.Equal(t, 9, products.stock(shirt.ID), "shipped stock is not returned automatically")
}

func TestCancelDeliveredOrderConflicts(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)

	_, err := svc.Deliver(context.Background(), order.ID.Hex())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCancelTwiceConflicts(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)

	_, err := svc.Cancel(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, 10, products.stock(shirt.ID), "double cancel must not restock twice")
}

func TestRequestReturnRules(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)

	// Not delivered yet.
	_, err := svc.RequestReturn(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	_, err = svc.Deliver(context.Background(), order.ID.Hex())
	require.NoError(t, err)

	returned, err := svc.RequestReturn(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.NoError(t, err)
	assert.True(t, returned.IsReturnRequested)

	// At most once.
	_, err = svc.RequestReturn(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestGetEnforcesOwnership(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)

	stranger := primitive.NewObjectID().Hex()

	_, err := svc.Get(context.Background(), order.ID.Hex(), stranger, false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// Admin bypasses ownership.
	got, err := svc.Get(context.Background(), order.ID.Hex(), stranger, true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestExpireUnpaidCancelsAndRestocks(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	orders := newFakeOrders()
	svc := NewOrderServiceWith(orders, products)
	order := placeOrder(t, svc, products, shirt)

	// Age the order past the cutoff.
	orders.mu.Lock()
	orders.orders[order.ID].CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	orders.mu.Unlock()

	expired := svc.ExpireUnpaid(context.Background(), 24*time.Hour)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 10, products.stock(shirt.ID))

	got, err := svc.Get(context.Background(), order.ID.Hex(), testUserID.Hex(), false)
	require.NoError(t, err)
	assert.True(t, got.IsCancelled)
}

func TestSetStatusCancelledRestocksLikeCancel(t *testing.T) {
	shirt := &models.Product{Name: "Oxford Shirt", Price: 500, CountInStock: 10}
	products := newFakeProducts(shirt)
	svc := NewOrderServiceWith(newFakeOrders(), products)
	order := placeOrder(t, svc, products, shirt)
	require.Equal(t, 9, products.stock(shirt.ID))

	cancelled, err := svc.SetStatus(context.Background(), order.ID.Hex(), "cancelled")
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, 10, products.stock(shirt.ID), "admin cancellation restocks unshipped orders")

	// Same double-cancel guard as the buyer path.
	_, err = svc.SetStatus(context.Background(), order.ID.Hex(), "cancelled")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, 10, products.stock(shirt.ID))
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	svc := NewOrderServiceWith(newFakeOrders(), newFakeProducts())
	_, err := svc.SetStatus(context.Background(), primitive.NewObjectID().Hex(), "teleported")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
