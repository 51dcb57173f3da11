package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name          string
		items         []OrderItem
		itemsPrice    float64
		taxPrice      float64
		shippingPrice float64
		totalPrice    float64
	}{
		{
			name:          "two units under free shipping threshold",
			items:         []OrderItem{{Price: 500, Qty: 2}},
			itemsPrice:    1000,
			taxPrice:      150,
			shippingPrice: 100,
			totalPrice:    1250,
		},
		{
			name:          "subtotal over threshold ships free",
			items:         []OrderItem{{Price: 1200, Qty: 2}},
			itemsPrice:    2400,
			taxPrice:      360,
			shippingPrice: 0,
			totalPrice:    2760,
		},
		{
			name:          "threshold boundary is free",
			items:         []OrderItem{{Price: 2000, Qty: 1}},
			itemsPrice:    2000,
			taxPrice:      300,
			shippingPrice: 0,
			totalPrice:    2300,
		},
		{
			name:          "fractional prices round to two decimals",
			items:         []OrderItem{{Price: 33.33, Qty: 3}},
			itemsPrice:    99.99,
			taxPrice:      15,
			shippingPrice: 100,
			totalPrice:    214.99,
		},
		{
			name:          "multiple lines",
			items:         []OrderItem{{Price: 599, Qty: 1}, {Price: 899, Qty: 2}},
			itemsPrice:    2397,
			taxPrice:      359.55,
			shippingPrice: 0,
			totalPrice:    2756.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{OrderItems: tt.items}
			o.ComputeTotals()
			assert.Equal(t, tt.itemsPrice, o.ItemsPrice, "itemsPrice")
			assert.Equal(t, tt.taxPrice, o.TaxPrice, "taxPrice")
			assert.Equal(t, tt.shippingPrice, o.ShippingPrice, "shippingPrice")
			assert.Equal(t, tt.totalPrice, o.TotalPrice, "totalPrice")
		})
	}
}

func TestComputeTotalsIgnoresPresetValues(t *testing.T) {
	o := Order{
		OrderItems:    []OrderItem{{Price: 500, Qty: 2}},
		ItemsPrice:    1,
		TaxPrice:      0,
		ShippingPrice: 0,
		TotalPrice:    1,
	}
	o.ComputeTotals()
	assert.Equal(t, 1250.0, o.TotalPrice)
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		got, ok := ParseStatus(valid)
		require.True(t, ok, valid)
		assert.Equal(t, OrderStatus(valid), got)
	}
	for _, invalid := range []string{"", "Pending", "returned", "paid"} {
		_, ok := ParseStatus(invalid)
		assert.False(t, ok, invalid)
	}
}

func TestSetStatusStampsTimestamps(t *testing.T) {
	now := time.Now().UTC()

	o := Order{Status: StatusProcessing}
	o.SetStatus(StatusShipped, now)
	require.NotNil(t, o.ShippedAt)
	assert.Equal(t, now, *o.ShippedAt)
	assert.False(t, o.IsDelivered)

	o.SetStatus(StatusDelivered, now)
	assert.True(t, o.IsDelivered)
	require.NotNil(t, o.DeliveredAt)

	var c Order
	c.SetStatus(StatusCancelled, now)
	assert.True(t, c.IsCancelled)
	require.NotNil(t, c.CancelledAt)
}

func TestMarkPaid(t *testing.T) {
	now := time.Now().UTC()
	o := Order{Status: StatusPending}
	o.MarkPaid(PaymentResult{ID: "pay_1", Status: "captured"}, now)

	assert.True(t, o.IsPaid)
	assert.Equal(t, StatusProcessing, o.Status)
	require.NotNil(t, o.PaidAt)
	require.NotNil(t, o.PaymentResult)
	assert.Equal(t, "pay_1", o.PaymentResult.ID)
}

func TestTimelineProjection(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	paid := created.Add(time.Hour)
	shipped := created.Add(24 * time.Hour)
	delivered := created.Add(72 * time.Hour)

	t.Run("fresh order has only placement done", func(t *testing.T) {
		o := Order{Status: StatusPending, CreatedAt: created}
		stages := o.Timeline()
		require.Len(t, stages, 4)
		assert.True(t, stages[0].Done)
		assert.False(t, stages[1].Done)
		assert.False(t, stages[2].Done)
		assert.False(t, stages[3].Done)
	})

	t.Run("paid order shows processing", func(t *testing.T) {
		o := Order{Status: StatusProcessing, CreatedAt: created, IsPaid: true, PaidAt: &paid}
		stages := o.Timeline()
		assert.True(t, stages[1].Done)
		assert.Equal(t, &paid, stages[1].At)
		assert.False(t, stages[2].Done)
	})

	t.Run("delivered order completes every stage", func(t *testing.T) {
		o := Order{
			Status: StatusDelivered, CreatedAt: created,
			IsPaid: true, PaidAt: &paid,
			ShippedAt:   &shipped,
			IsDelivered: true, DeliveredAt: &delivered,
		}
		stages := o.Timeline()
		for i, s := range stages {
			assert.True(t, s.Done, "stage %d", i)
		}
		assert.Equal(t, &delivered, stages[3].At)
	})

	t.Run("projection does not mutate the order", func(t *testing.T) {
		o := Order{Status: StatusPending, CreatedAt: created}
		before := o
		_ = o.Timeline()
		assert.Equal(t, before, o)
	})
}

func TestRecalculateRating(t *testing.T) {
	p := Product{Reviews: []Review{
		{ID: primitive.NewObjectID(), Rating: 5},
		{ID: primitive.NewObjectID(), Rating: 4},
		{ID: primitive.NewObjectID(), Rating: 4},
	}}
	p.RecalculateRating()
	assert.Equal(t, 3, p.NumReviews)
	assert.Equal(t, 4.33, p.Rating)

	p.Reviews = nil
	p.RecalculateRating()
	assert.Equal(t, 0, p.NumReviews)
	assert.Equal(t, 0.0, p.Rating)
}
