package controllers

import (
	"net/http"

	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/middleware"
	"github.com/oliveedge/oliveedge/pkg/ws"
)

type OrderController struct {
	orders   *services.OrderService
	payments *services.PaymentService
}

func NewOrderController(orders *services.OrderService, payments *services.PaymentService) *OrderController {
	return &OrderController{orders: orders, payments: payments}
}

// Store places a new order.
func (oc *OrderController) Store(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	var in services.CreateOrderInput
	if !c.BindJSON(&in) {
		return
	}

	order, err := oc.orders.Create(c.Context(), userID, in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(order)
}

// Mine lists the caller's orders.
func (oc *OrderController) Mine(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	orders, err := oc.orders.ListMine(c.Context(), userID)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(orders)
}

func (oc *OrderController) Show(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	order, err := oc.orders.Get(c.Context(), c.Param("id"), userID, middleware.IsAdmin(c.R))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}

// Pay verifies the gateway signature for this order and marks it paid.
// There is no unverified path to the paid state.
func (oc *OrderController) Pay(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	var in services.VerifyPaymentInput
	in.OrderID = c.Param("id")
	if errs, err := c.ShouldBindJSON(&in); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return
	} else if len(errs) > 0 {
		c.ValidationError(errs)
		return
	}
	in.OrderID = c.Param("id") // path wins over any body value

	order, err := oc.payments.Verify(c.Context(), userID, middleware.IsAdmin(c.R), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}

func (oc *OrderController) Cancel(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	order, err := oc.orders.Cancel(c.Context(), c.Param("id"), userID, middleware.IsAdmin(c.R))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}

func (oc *OrderController) RequestReturn(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	order, err := oc.orders.RequestReturn(c.Context(), c.Param("id"), userID, middleware.IsAdmin(c.R))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}

// Tracking returns the fixed-stage tracking projection.
func (oc *OrderController) Tracking(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	stages, err := oc.orders.Tracking(c.Context(), c.Param("id"), userID, middleware.IsAdmin(c.R))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(stages)
}

// TrackingStream upgrades to a WebSocket that receives live status updates
// for one order. Ownership is checked before the upgrade.
func (oc *OrderController) TrackingStream(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	orderID := c.Param("id")
	if _, err := oc.orders.Get(c.Context(), orderID, userID, middleware.IsAdmin(c.R)); err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}

	ws.Upgrade(c.W, c.R, ws.TrackingHub, orderID)
}
