package controllers

import (
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/middleware"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreateOrder opens a gateway payment intent for an existing order.
func (pc *PaymentController) CreateOrder(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	var in services.CreatePaymentInput
	if !c.BindJSON(&in) {
		return
	}

	intent, err := pc.payments.CreateIntent(c.Context(), userID, middleware.IsAdmin(c.R), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(intent)
}

// Verify checks the gateway callback signature and marks the order paid.
func (pc *PaymentController) Verify(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	var in services.VerifyPaymentInput
	if !c.BindJSON(&in) {
		return
	}

	order, err := pc.payments.Verify(c.Context(), userID, middleware.IsAdmin(c.R), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}
