package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is an embedded customer review on a product.
type Review struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId"        json:"userId"`
	Name         string             `bson:"name"          json:"name"`
	Rating       int                `bson:"rating"        json:"rating"`
	Comment      string             `bson:"comment"       json:"comment"`
	HelpfulVotes int                `bson:"helpfulVotes"  json:"helpfulVotes"`
	CreatedAt    time.Time          `bson:"createdAt"     json:"createdAt"`
}

// Product is a catalogue item. Price is in major currency units.
// CountInStock must never go negative; every decrement carries a
// countInStock >= qty filter at write time.
type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name"          json:"name"`
	Slug         string             `bson:"slug"          json:"slug"`
	Description  string             `bson:"description"   json:"description"`
	Image        string             `bson:"image"         json:"image"`
	Brand        string             `bson:"brand"         json:"brand"`
	Category     string             `bson:"category"      json:"category"`
	Price        float64            `bson:"price"         json:"price"`
	CountInStock int                `bson:"countInStock"  json:"countInStock"`
	Reviews      []Review           `bson:"reviews,omitempty" json:"reviews,omitempty"`
	Rating       float64            `bson:"rating"        json:"rating"`
	NumReviews   int                `bson:"numReviews"    json:"numReviews"`
	CreatedAt    time.Time          `bson:"createdAt"     json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"     json:"updatedAt"`
}

// ReviewedBy reports whether the given user already left a review.
func (p *Product) ReviewedBy(userID primitive.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// RecalculateRating recomputes the derived rating average and review count
// from the embedded reviews. Call after every review mutation.
func (p *Product) RecalculateRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = round2(float64(sum) / float64(p.NumReviews))
}
