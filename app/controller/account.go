package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ihavelanded/ms-go-esim/app/factory"
	"github.com/ihavelanded/ms-go-esim/app/mapper"
	"github.com/ihavelanded/ms-go-esim/app/service"
	"github.com/ihavelanded/ms-go-esim/app/types"
)

const accountEmailContextKey = "account_email"

type AccountController struct {
	accountService *service.AccountService
	logger         logrus.FieldLogger
}

func NewAccountController(accountService *service.AccountService) *AccountController {
	return &AccountController{
		accountService: accountService,
		logger:         factory.NewModuleLogger("accounts-controller"),
	}
}

func (c *AccountController) Register(ctx echo.Context) error {
	req, err := types.NewCredentialsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.accountService.Register(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAccountAlreadyExists):
			return c.writeError(ctx, http.StatusConflict, "account already exists")
		default:
			c.logger.WithError(err).Error("Register account failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.AccountToResponse(item))
}

func (c *AccountController) Login(ctx echo.Context) error {
	req, err := types.NewCredentialsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	token, err := c.accountService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.writeError(ctx, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAuthNotConfigured):
			c.logger.WithError(err).Error("Login rejected, signing key missing")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		default:
			c.logger.WithError(err).Error("Login failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.TokenResponse{Token: token})
}

func (c *AccountController) Orders(ctx echo.Context) error {
	email, ok := ctx.Get(accountEmailContextKey).(string)
	if !ok || email == "" {
		return c.writeError(ctx, http.StatusUnauthorized, "authentication required")
	}

	items, err := c.accountService.Orders(ctx.Request().Context(), email)
	if err != nil {
		c.logger.WithError(err).WithField("email", email).Error("List account orders failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.OrdersToResponse(items))
}

// RequireToken guards account routes with a bearer token issued by Login.
func (c *AccountController) RequireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return c.writeError(ctx, http.StatusUnauthorized, "authentication required")
		}

		email, err := c.accountService.ParseToken(strings.TrimSpace(token))
		if err != nil {
			return c.writeError(ctx, http.StatusUnauthorized, "invalid token")
		}

		ctx.Set(accountEmailContextKey, email)
		return next(ctx)
	}
}

func (c *AccountController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
