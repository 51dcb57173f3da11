package controllers

import (
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/middleware"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController() *CartController {
	return &CartController{carts: services.NewCartService()}
}

type cartInput struct {
	Items []services.CartItem `json:"items"`
}

func (cc *CartController) Show(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}
	c.Success(cc.carts.Get(c.Context(), userID))
}

// Put replaces the cart. With ?merge=true the incoming items are folded into
// the stored cart instead (used right after login).
func (cc *CartController) Put(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	var in cartInput
	if !c.BindJSON(&in) {
		return
	}

	var (
		cart *services.Cart
		err  error
	)
	if c.Query("merge") == "true" {
		cart, err = cc.carts.Merge(c.Context(), userID, in.Items)
	} else {
		cart, err = cc.carts.Put(c.Context(), userID, in.Items)
	}
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(cart)
}

func (cc *CartController) Clear(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}
	if err := cc.carts.Clear(c.Context(), userID); err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(map[string]string{"message": "cart cleared"})
}
