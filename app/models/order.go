package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// ParseStatus validates a raw status string against the five-value enum.
func ParseStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// Pricing constants. Tax is a flat 15% of the items subtotal; shipping is a
// flat 100 under the free-shipping threshold.
const (
	TaxRate               = 0.15
	ShippingFlat          = 100.0
	FreeShippingThreshold = 2000.0
)

// OrderItem is an immutable snapshot of a product line at purchase time.
// Later catalogue edits never change what the buyer agreed to pay.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name"      json:"name"`
	Image     string             `bson:"image"     json:"image"`
	Price     float64            `bson:"price"     json:"price"`
	Qty       int                `bson:"qty"       json:"qty"`
	Size      string             `bson:"size,omitempty" json:"size,omitempty"`
}

// ShippingAddress is the delivery destination snapshot.
type ShippingAddress struct {
	FullName   string `bson:"fullName"   json:"fullName"`
	Address    string `bson:"address"    json:"address"`
	City       string `bson:"city"       json:"city"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country"    json:"country"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// PaymentResult records the gateway's view of a completed payment.
type PaymentResult struct {
	ID         string `bson:"id"         json:"id"`
	Status     string `bson:"status"     json:"status"`
	UpdateTime string `bson:"updateTime" json:"updateTime"`
	Email      string `bson:"email"      json:"email"`
}

// Order is the durable record of a purchase.
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId"        json:"userId"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"idempotencyKey,omitempty"`
	OrderItems     []OrderItem        `bson:"orderItems"    json:"orderItems"`
	ShippingAddr   ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod  string             `bson:"paymentMethod" json:"paymentMethod"`

	ItemsPrice    float64 `bson:"itemsPrice"    json:"itemsPrice"`
	TaxPrice      float64 `bson:"taxPrice"      json:"taxPrice"`
	ShippingPrice float64 `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice    float64 `bson:"totalPrice"    json:"totalPrice"`

	IsPaid        bool           `bson:"isPaid"                  json:"isPaid"`
	PaidAt        *time.Time     `bson:"paidAt,omitempty"        json:"paidAt,omitempty"`
	PaymentResult *PaymentResult `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`

	Status      OrderStatus `bson:"status"                json:"status"`
	ShippedAt   *time.Time  `bson:"shippedAt,omitempty"   json:"shippedAt,omitempty"`
	IsDelivered bool        `bson:"isDelivered"           json:"isDelivered"`
	DeliveredAt *time.Time  `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`

	IsCancelled       bool       `bson:"isCancelled"                 json:"isCancelled"`
	CancelledAt       *time.Time `bson:"cancelledAt,omitempty"       json:"cancelledAt,omitempty"`
	IsReturnRequested bool       `bson:"isReturnRequested"           json:"isReturnRequested"`
	ReturnRequestedAt *time.Time `bson:"returnRequestedAt,omitempty" json:"returnRequestedAt,omitempty"`

	// StockFlagged marks orders whose stock reservation had to be rolled
	// back after insert; kept for operator review.
	StockFlagged bool `bson:"stockFlagged,omitempty" json:"stockFlagged,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals recomputes all four price fields from the item snapshots.
// Client-submitted totals are never trusted; this is the only place totals
// are derived.
func (o *Order) ComputeTotals() {
	items := 0.0
	for _, it := range o.OrderItems {
		items += it.Price * float64(it.Qty)
	}
	o.ItemsPrice = round2(items)
	o.TaxPrice = round2(o.ItemsPrice * TaxRate)
	if o.ItemsPrice < FreeShippingThreshold {
		o.ShippingPrice = ShippingFlat
	} else {
		o.ShippingPrice = 0
	}
	o.TotalPrice = round2(o.ItemsPrice + o.TaxPrice + o.ShippingPrice)
}

// MarkPaid records a verified payment and moves the order to processing.
func (o *Order) MarkPaid(result PaymentResult, at time.Time) {
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &result
	if o.Status == StatusPending {
		o.Status = StatusProcessing
	}
	o.UpdatedAt = at
}

// SetStatus applies a status transition, stamping the matching timestamps.
func (o *Order) SetStatus(status OrderStatus, at time.Time) {
	o.Status = status
	switch status {
	case StatusShipped:
		o.ShippedAt = &at
	case StatusDelivered:
		o.IsDelivered = true
		o.DeliveredAt = &at
	case StatusCancelled:
		o.IsCancelled = true
		o.CancelledAt = &at
		// Release the key so a retry after cancellation creates a fresh
		// order instead of replaying this one.
		o.IdempotencyKey = ""
	}
	o.UpdatedAt = at
}

// Cancel marks the order cancelled.
func (o *Order) Cancel(at time.Time) {
	o.SetStatus(StatusCancelled, at)
}

// RequestReturn stamps a one-time return request on a delivered order.
func (o *Order) RequestReturn(at time.Time) {
	o.IsReturnRequested = true
	o.ReturnRequestedAt = &at
	o.UpdatedAt = at
}

// TrackingStage is one step of the fixed four-stage tracking view.
type TrackingStage struct {
	Stage string     `json:"stage"`
	Done  bool       `json:"done"`
	At    *time.Time `json:"at,omitempty"`
}

// Timeline projects the order's status and timestamps onto the four fixed
// tracking stages. Pure function of the order document; no side effects.
func (o *Order) Timeline() []TrackingStage {
	placed := o.CreatedAt
	stages := []TrackingStage{
		{Stage: "Order Placed", Done: true, At: &placed},
		{Stage: "Processing", Done: false},
		{Stage: "Shipped", Done: false},
		{Stage: "Delivered", Done: false},
	}
	if o.IsPaid || o.Status == StatusProcessing || o.Status == StatusShipped || o.Status == StatusDelivered {
		stages[1].Done = true
		stages[1].At = o.PaidAt
	}
	if o.ShippedAt != nil || o.Status == StatusShipped || o.Status == StatusDelivered {
		stages[2].Done = true
		stages[2].At = o.ShippedAt
	}
	if o.IsDelivered {
		stages[3].Done = true
		stages[3].At = o.DeliveredAt
	}
	return stages
}
