package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ihavelanded/ms-go-esim/app/factory"
	"github.com/ihavelanded/ms-go-esim/app/mapper"
	"github.com/ihavelanded/ms-go-esim/app/payment"
	"github.com/ihavelanded/ms-go-esim/app/service"
	"github.com/ihavelanded/ms-go-esim/app/types"
)

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// VerifySession drives the whole post-checkout flow. Carrier trouble is not
// an HTTP error here; it surfaces as an order status the storefront renders.
func (c *OrderController) VerifySession(ctx echo.Context) error {
	req := types.NewVerifySessionRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.orderService.VerifyAndProvision(ctx.Request().Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionRequired):
			return c.writeError(ctx, http.StatusBadRequest, "Session ID required")
		case errors.Is(err, service.ErrPaymentNotCompleted):
			return c.writeError(ctx, http.StatusBadRequest, "Payment not completed")
		case errors.Is(err, service.ErrPaymentProviderUnavailable):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("session_id", req.SessionID).Error("Payment verification failed")
			return c.writeErrorDetails(ctx, http.StatusInternalServerError, "Verification failed", err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("session_id", req.SessionID).Error("Verify session failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToResponse(item))
}

func (c *OrderController) CreateCheckoutSession(ctx echo.Context) error {
	req, err := types.NewCreateSessionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	link, err := c.orderService.CreateCheckoutSession(ctx.Request().Context(), &payment.CheckoutInput{
		Email:      req.Email,
		PriceIDs:   req.PriceIDs(),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		c.logger.WithError(err).Error("Create checkout session failed")
		return c.writeErrorDetails(ctx, http.StatusInternalServerError, "Failed to create checkout session", err.Error())
	}

	return ctx.JSON(http.StatusOK, &types.CheckoutSessionResponse{CheckoutURL: link.CheckoutURL})
}

func (c *OrderController) Usage(ctx echo.Context) error {
	req := types.NewUsageRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	report, err := c.orderService.GetUsage(ctx.Request().Context(), req.ICCID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, "Valid ICCID required")
		}
		c.logger.WithError(err).WithField("iccid", req.ICCID).Error("Usage lookup failed")
		return c.writeErrorDetails(ctx, http.StatusInternalServerError, "Failed to fetch usage", err.Error())
	}

	return ctx.JSON(http.StatusOK, report)
}

func (c *OrderController) ListPackages(ctx echo.Context) error {
	items, err := c.orderService.ListPackages(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("List packages failed")
		return c.writeErrorDetails(ctx, http.StatusInternalServerError, "Failed to fetch packages", err.Error())
	}

	return ctx.JSON(http.StatusOK, items)
}

// CarrierWebhook always acknowledges with 200 once the payload parses; the
// carrier retries on non-2xx and an unknown order is not worth a retry storm.
func (c *OrderController) CarrierWebhook(ctx echo.Context) error {
	req, err := types.NewCarrierWebhookRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.orderService.HandleCarrierWebhook(ctx.Request().Context(), &service.CarrierWebhookEvent{
		OrderNo:         req.OrderNo,
		ExternalOrderNo: req.ExternalOrderNo,
		ICCID:           req.ICCID,
		ActivationCode:  req.ActivationCode,
		Status:          req.Status,
	})
	if err != nil && !errors.Is(err, service.ErrOrderNotFound) {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("external_order_no", req.ExternalOrderNo).Error("Carrier webhook failed")
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
}

func (c *OrderController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

func (c *OrderController) writeErrorDetails(ctx echo.Context, statusCode int, message, details string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message, Details: details})
}
