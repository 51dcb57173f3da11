package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/cache"
	"github.com/oliveedge/oliveedge/pkg/storage"
)

const (
	catalogCacheTTL = 60 * time.Second
	productCacheTTL = 5 * time.Minute
)

// ProductInput is the admin payload for creating or updating a product.
type ProductInput struct {
	Name         string  `json:"name"         validate:"required,min=2,max=200"`
	Description  string  `json:"description"  validate:"nullable,max=5000"`
	Brand        string  `json:"brand"        validate:"nullable,max=100"`
	Category     string  `json:"category"     validate:"required,max=100"`
	Price        float64 `json:"price"        validate:"required,gt=0"`
	CountInStock int     `json:"countInStock" validate:"gte=0"`
	Image        string  `json:"image"        validate:"nullable,url"`
}

// ReviewInput is the buyer payload for posting a product review.
type ReviewInput struct {
	Rating  int    `json:"rating"  validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"nullable,max=2000"`
}

// ProductPage is one page of a catalogue listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Total    int64            `json:"total"`
}

type CatalogService struct {
	products *repositories.ProductRepository
	users    *repositories.UserRepository
}

func NewCatalogService() *CatalogService {
	return &CatalogService{
		products: repositories.NewProductRepository(),
		users:    repositories.NewUserRepository(),
	}
}

// List returns a page of products, served from Redis when possible.
func (s *CatalogService) List(ctx context.Context, q repositories.ProductQuery) (*ProductPage, error) {
	key := fmt.Sprintf("catalog:%s:%s:%d:%d", q.Search, q.Category, q.Page, q.Limit)

	var page ProductPage
	if cache.Get(ctx, key, &page) {
		return &page, nil
	}

	products, total, err := s.products.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	page = ProductPage{Products: products, Page: q.Page, Limit: q.Limit, Total: total}
	cache.Set(ctx, key, page, catalogCacheTTL) //nolint:errcheck
	return &page, nil
}

// Get returns one product by id, cached.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("product not found")
	}

	key := "product:" + id
	var p models.Product
	if cache.Get(ctx, key, &p) {
		return &p, nil
	}

	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	cache.Set(ctx, key, product, productCacheTTL) //nolint:errcheck
	return product, nil
}

// TopRated returns the highest-rated products, cached.
func (s *CatalogService) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	key := fmt.Sprintf("catalog:top:%d", limit)

	var products []models.Product
	if cache.Get(ctx, key, &products) {
		return products, nil
	}

	products, err := s.products.TopRated(ctx, limit)
	if err != nil {
		return nil, err
	}
	cache.Set(ctx, key, products, catalogCacheTTL) //nolint:errcheck
	return products, nil
}

// Create adds a catalogue item (admin).
func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Name:         in.Name,
		Slug:         slugify(in.Name),
		Description:  in.Description,
		Brand:        in.Brand,
		Category:     in.Category,
		Price:        in.Price,
		CountInStock: in.CountInStock,
		Image:        in.Image,
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return p, nil
}

// Update edits a catalogue item (admin).
func (s *CatalogService) Update(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("product not found")
	}
	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.Slug = slugify(in.Name)
	p.Description = in.Description
	p.Brand = in.Brand
	p.Category = in.Category
	p.Price = in.Price
	p.CountInStock = in.CountInStock
	if in.Image != "" {
		p.Image = in.Image
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateProduct(ctx, id)
	return p, nil
}

// Delete removes a catalogue item (admin).
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("product not found")
	}
	if err := s.products.Delete(ctx, oid); err != nil {
		return err
	}
	s.invalidateProduct(ctx, id)
	return nil
}

// AddReview posts a review on a product. One review per user per product.
func (s *CatalogService) AddReview(ctx context.Context, productID, userID string, in ReviewInput) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperr.NotFound("product not found")
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}

	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if p.ReviewedBy(uid) {
		return nil, apperr.Conflict("you have already reviewed this product")
	}

	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	p.Reviews = append(p.Reviews, models.Review{
		ID:        primitive.NewObjectID(),
		UserID:    uid,
		Name:      user.Name,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: time.Now().UTC(),
	})
	p.RecalculateRating()

	if err := s.products.SaveReviews(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateProduct(ctx, productID)
	return p, nil
}

// MarkReviewHelpful bumps the helpful counter on a review.
func (s *CatalogService) MarkReviewHelpful(ctx context.Context, productID, reviewID string) error {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return apperr.NotFound("product not found")
	}
	rid, err := primitive.ObjectIDFromHex(reviewID)
	if err != nil {
		return apperr.NotFound("review not found")
	}
	if err := s.products.IncrementHelpfulVotes(ctx, oid, rid); err != nil {
		return err
	}
	s.invalidateProduct(ctx, productID)
	return nil
}

// UploadImage streams an image to the storage disk and stores its URL.
func (s *CatalogService) UploadImage(ctx context.Context, productID, filename string, r io.Reader) (string, error) {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return "", apperr.NotFound("product not found")
	}
	if _, err := s.products.FindByID(ctx, oid); err != nil {
		return "", err
	}

	ext := ""
	if idx := strings.LastIndex(filename, "."); idx != -1 {
		ext = strings.ToLower(filename[idx:])
	}
	path := fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), ext)

	if err := storage.PutStream(path, r); err != nil {
		return "", fmt.Errorf("store product image: %w", err)
	}

	url := storage.URL(path)
	if err := s.products.SetImage(ctx, oid, url); err != nil {
		return "", err
	}
	s.invalidateProduct(ctx, productID)
	return url, nil
}

func (s *CatalogService) invalidateProduct(ctx context.Context, id string) {
	cache.Forget(ctx, "product:"+id) //nolint:errcheck
	s.invalidateListings(ctx)
}

// invalidateListings drops cached pages. Listing keys embed the query, so the
// cheap approach is a short TTL plus dropping the common first page.
func (s *CatalogService) invalidateListings(ctx context.Context) {
	cache.Del(ctx, "catalog:::1:12", "catalog:top:5") //nolint:errcheck
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
