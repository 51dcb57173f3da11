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

// OrderRepository handles the orders collection.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{col: database.Collection("orders")}
}

// Insert persists a new order. A repeated idempotency key trips the unique
// sparse index and surfaces as Conflict.
func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveDBQuery("orders.insert", time.Now())

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, o)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("order with this idempotency key already exists")
		}
		return err
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	defer metrics.ObserveDBQuery("orders.findByID", time.Now())

	var o models.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByIdempotencyKey returns the user's order previously created with key,
// or NotFound when no such order exists. Cancelled orders never match: their
// key is released on cancellation, and the filter excludes them in case that
// write was lost.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	defer metrics.ObserveDBQuery("orders.findByIdemKey", time.Now())

	var o models.Order
	err := r.col.FindOne(ctx, bson.M{
		"userId":         userID,
		"idempotencyKey": key,
		"isCancelled":    bson.M{"$ne": true},
	}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Update replaces the order document.
func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveDBQuery("orders.update", time.Now())

	o.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// FindByUser lists a buyer's orders, newest first.
func (r *OrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	defer metrics.ObserveDBQuery("orders.findByUser", time.Now())

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindAll lists all orders with pagination, newest first.
func (r *OrderRepository) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	defer metrics.ObserveDBQuery("orders.findAll", time.Now())

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindExpiredUnpaid returns pending unpaid orders created before cutoff.
// Used by the expiry sweep to auto-cancel abandoned checkouts.
func (r *OrderRepository) FindExpiredUnpaid(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	defer metrics.ObserveDBQuery("orders.findExpiredUnpaid", time.Now())

	cur, err := r.col.Find(ctx, bson.M{
		"status":    models.StatusPending,
		"isPaid":    false,
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Count returns the total number of orders.
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	defer metrics.ObserveDBQuery("orders.count", time.Now())
	return r.col.CountDocuments(ctx, bson.M{})
}

// TotalSales sums totalPrice across paid orders.
func (r *OrderRepository) TotalSales(ctx context.Context) (float64, error) {
	defer metrics.ObserveDBQuery("orders.totalSales", time.Now())

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isPaid": true}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalPrice"}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var out []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

// CountByStatus groups order counts per lifecycle status.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	defer metrics.ObserveDBQuery("orders.countByStatus", time.Now())

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
