package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/event"
	"github.com/oliveedge/oliveedge/pkg/logger"
	"github.com/oliveedge/oliveedge/pkg/queue"
	"github.com/oliveedge/oliveedge/pkg/ws"
)

// Register wires the job registry and the order event listeners. Called once
// at boot, before workers start.
func Register() {
	queue.Register("jobs.OrderConfirmationJob", func() queue.Job { return &OrderConfirmationJob{} })
	queue.Register("jobs.DeliveryNoticeJob", func() queue.Job { return &DeliveryNoticeJob{} })

	users := repositories.NewUserRepository()

	event.Listen(services.EventOrderCreated, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			return
		}
		user, err := lookupUser(users, order)
		if err != nil {
			logger.Error("jobs: confirmation recipient lookup failed",
				"order", order.ID.Hex(), "error", err)
			return
		}
		dispatch(OrderConfirmationJob{
			OrderID:    order.ID.Hex(),
			Email:      user.Email,
			Name:       user.Name,
			TotalPrice: order.TotalPrice,
			ItemCount:  len(order.OrderItems),
		})
	})

	event.Listen(services.EventOrderDelivered, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			return
		}
		user, err := lookupUser(users, order)
		if err != nil {
			logger.Error("jobs: delivery recipient lookup failed",
				"order", order.ID.Hex(), "error", err)
			return
		}
		dispatch(DeliveryNoticeJob{
			OrderID: order.ID.Hex(),
			Email:   user.Email,
			Name:    user.Name,
		})
	})

	// Every status change (including order.delivered's paired order.status
	// event) is broadcast to the order's tracking stream.
	event.Listen(services.EventOrderStatus, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			return
		}
		broadcastTracking(order)
	})
}

// dispatch enqueues a job fire-and-forget. Enqueue failures are logged and
// swallowed so notification trouble never reaches the HTTP response.
func dispatch(job queue.Job) {
	if err := queue.Dispatch(job); err != nil {
		logger.Error("jobs: dispatch failed", "type", "notification", "error", err)
	}
}

func lookupUser(users *repositories.UserRepository, order *models.Order) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return users.FindByID(ctx, order.UserID)
}

func broadcastTracking(order *models.Order) {
	payload, err := json.Marshal(map[string]interface{}{
		"orderId":  order.ID.Hex(),
		"status":   order.Status,
		"timeline": order.Timeline(),
	})
	if err != nil {
		return
	}
	ws.TrackingHub.Publish(order.ID.Hex(), payload)
}
