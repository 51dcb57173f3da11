package services

import (
	"context"
	"time"

	"github.com/oliveedge/oliveedge/pkg/cache"
)

// cartTTL keeps abandoned carts around for a month before Redis drops them.
const cartTTL = 30 * 24 * time.Hour

// CartItem is a line in a buyer's cart. Price here is display-only; order
// creation re-reads the authoritative product price.
type CartItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Qty       int     `json:"qty" validate:"required,gte=1,lte=99"`
	Size      string  `json:"size,omitempty"`
}

// Cart is a buyer's working cart, held in Redis.
type Cart struct {
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartService struct{}

func NewCartService() *CartService { return &CartService{} }

func cartKey(userID string) string { return "cart:" + userID }

// Get returns the user's cart, or an empty cart when none is stored.
func (s *CartService) Get(ctx context.Context, userID string) *Cart {
	var cart Cart
	if cache.Get(ctx, cartKey(userID), &cart) {
		return &cart
	}
	return &Cart{Items: []CartItem{}}
}

// Put replaces the user's cart.
func (s *CartService) Put(ctx context.Context, userID string, items []CartItem) (*Cart, error) {
	cart := &Cart{Items: items, UpdatedAt: time.Now().UTC()}
	if err := cache.Set(ctx, cartKey(userID), cart, cartTTL); err != nil {
		return nil, err
	}
	return cart, nil
}

// Merge folds incoming items into the stored cart, summing quantities for
// lines with the same product and size. Used when a guest cart lands after
// login.
func (s *CartService) Merge(ctx context.Context, userID string, incoming []CartItem) (*Cart, error) {
	cart := s.Get(ctx, userID)

	type lineKey struct{ product, size string }
	index := make(map[lineKey]int, len(cart.Items))
	for i, it := range cart.Items {
		index[lineKey{it.ProductID, it.Size}] = i
	}

	for _, it := range incoming {
		if i, ok := index[lineKey{it.ProductID, it.Size}]; ok {
			cart.Items[i].Qty += it.Qty
			continue
		}
		cart.Items = append(cart.Items, it)
	}

	return s.Put(ctx, userID, cart.Items)
}

// Clear drops the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return cache.Forget(ctx, cartKey(userID))
}
