package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/pkg/apperr"
)

type WishlistService struct {
	users    *repositories.UserRepository
	products *repositories.ProductRepository
}

func NewWishlistService() *WishlistService {
	return &WishlistService{
		users:    repositories.NewUserRepository(),
		products: repositories.NewProductRepository(),
	}
}

// List resolves the user's wishlist into product documents.
func (s *WishlistService) List(ctx context.Context, userID string) ([]models.Product, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(user.Wishlist))
	for _, pid := range user.Wishlist {
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if apperr.IsNotFound(err) {
				continue // product was deleted, skip the stale entry
			}
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// Add puts a product on the user's wishlist.
func (s *WishlistService) Add(ctx context.Context, userID, productID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return apperr.NotFound("product not found")
	}
	if _, err := s.products.FindByID(ctx, pid); err != nil {
		return err
	}
	return s.users.AddToWishlist(ctx, uid, pid)
}

// Remove drops a product from the user's wishlist.
func (s *WishlistService) Remove(ctx context.Context, userID, productID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return apperr.NotFound("product not found")
	}
	return s.users.RemoveFromWishlist(ctx, uid, pid)
}
