// Package controllers holds the HTTP handlers for the storefront API. Every
// handler uses the context style: decode with BindJSON, act through a
// service, reply with the JSON envelope helpers.
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/middleware"
)

// paramUint parses a {id}-style path parameter. A zero return with ok=false
// means the handler already sent a 400.
func paramUint(c *ctx.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.Error(http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

type registerInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,in=buyer,shopowner,courier"`
}

func (ac *AuthController) Register(c *ctx.Context) {
	var in registerInput
	if !c.BindJSON(&in) {
		return
	}

	user, tokens, err := ac.service.Register(in.Name, in.Email, in.Password, in.Role)
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		c.Error(http.StatusConflict, "Email already registered")
		return
	case errors.Is(err, services.ErrInvalidRole):
		c.Error(http.StatusUnprocessableEntity, "Invalid role")
		return
	case err != nil:
		c.Error(http.StatusInternalServerError, "Registration failed")
		return
	}

	c.Created(map[string]any{"user": user, "tokens": tokens})
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in loginInput
	if !c.BindJSON(&in) {
		return
	}

	user, tokens, err := ac.service.Login(in.Email, in.Password)
	if err != nil {
		c.Unauthorized("Invalid credentials")
		return
	}

	c.Success(map[string]any{"user": user, "tokens": tokens})
}

// Me returns the authenticated user's profile.
func (ac *AuthController) Me(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	user, err := ac.service.Me(userID)
	if err != nil {
		c.NotFound("User not found")
		return
	}
	c.Success(user)
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (ac *AuthController) Refresh(c *ctx.Context) {
	var in refreshInput
	if !c.BindJSON(&in) {
		return
	}

	tokens, err := ac.service.Refresh(in.RefreshToken)
	if err != nil {
		c.Unauthorized("Invalid refresh token")
		return
	}

	c.Success(tokens)
}
