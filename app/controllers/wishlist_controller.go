package controllers

import (
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/middleware"
)

type WishlistController struct {
	wishlist *services.WishlistService
}

func NewWishlistController() *WishlistController {
	return &WishlistController{wishlist: services.NewWishlistService()}
}

func (wc *WishlistController) Index(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	products, err := wc.wishlist.List(c.Context(), userID)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(products)
}

func (wc *WishlistController) Store(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	if err := wc.wishlist.Add(c.Context(), userID, c.Param("productId")); err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(map[string]string{"message": "added to wishlist"})
}

func (wc *WishlistController) Destroy(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	if err := wc.wishlist.Remove(c.Context(), userID, c.Param("productId")); err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(map[string]string{"message": "removed from wishlist"})
}
