// Package controllers translates HTTP requests into service calls and maps
// service errors onto the JSON envelope.
package controllers

import (
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/middleware"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController() *AuthController {
	return &AuthController{auth: services.NewAuthService()}
}

func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}

	result, err := ac.auth.Register(c.Context(), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(result)
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}

	result, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(result)
}

func (ac *AuthController) Profile(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	user, err := ac.auth.Profile(c.Context(), userID)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(user)
}
