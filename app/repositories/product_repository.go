package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/database"
	"github.com/oliveedge/oliveedge/pkg/metrics"
)

// ProductQuery filters and paginates catalogue listings.
type ProductQuery struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

// ProductRepository handles the products collection.
type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{col: database.Collection("products")}
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("products.insert", time.Now())

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer metrics.ObserveDBQuery("products.findByID", time.Now())

	var p models.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Find lists products matching the query with pagination, newest first.
func (r *ProductRepository) Find(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	defer metrics.ObserveDBQuery("products.find", time.Now())

	filter := bson.M{}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": q.Search, "$options": "i"}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 12
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// TopRated returns the highest-rated products.
func (r *ProductRepository) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("products.topRated", time.Now())

	if limit < 1 || limit > 50 {
		limit = 5
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Update replaces the mutable catalogue fields of a product.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("products.update", time.Now())

	p.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{"$set": bson.M{
			"name":         p.Name,
			"slug":         p.Slug,
			"description":  p.Description,
			"image":        p.Image,
			"brand":        p.Brand,
			"category":     p.Category,
			"price":        p.Price,
			"countInStock": p.CountInStock,
			"updatedAt":    p.UpdatedAt,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer metrics.ObserveDBQuery("products.delete", time.Now())

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

// DecrementStock atomically reserves qty units. The filter guards the
// decrement so stock can never go negative: a concurrent depletion makes the
// update match nothing and the method returns false.
func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	defer metrics.ObserveDBQuery("products.decrementStock", time.Now())

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "countInStock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"countInStock": -qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// IncrementStock returns qty units to stock (compensation and restocks).
func (r *ProductRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	defer metrics.ObserveDBQuery("products.incrementStock", time.Now())

	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"countInStock": qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		})
	return err
}

// SaveReviews persists the product's review list and derived rating fields.
func (r *ProductRepository) SaveReviews(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("products.saveReviews", time.Now())

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{"$set": bson.M{
			"reviews":    p.Reviews,
			"rating":     p.Rating,
			"numReviews": p.NumReviews,
			"updatedAt":  time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

// IncrementHelpfulVotes bumps the helpful counter on one embedded review.
func (r *ProductRepository) IncrementHelpfulVotes(ctx context.Context, productID, reviewID primitive.ObjectID) error {
	defer metrics.ObserveDBQuery("products.reviewHelpful", time.Now())

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": productID, "reviews._id": reviewID},
		bson.M{"$inc": bson.M{"reviews.$.helpfulVotes": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}

// SetImage stores the uploaded image URL on the product.
func (r *ProductRepository) SetImage(ctx context.Context, id primitive.ObjectID, url string) error {
	defer metrics.ObserveDBQuery("products.setImage", time.Now())

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"image": url, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

// LowStock lists products at or below the given stock threshold.
func (r *ProductRepository) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("products.lowStock", time.Now())

	opts := options.Find().SetSort(bson.D{{Key: "countInStock", Value: 1}}).SetLimit(20)
	cur, err := r.col.Find(ctx, bson.M{"countInStock": bson.M{"$lte": threshold}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}
