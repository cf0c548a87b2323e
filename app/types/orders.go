package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ProvisioningOutcome is the one shape the frontend renders regardless of
// what happened below the payment verifier.
type ProvisioningOutcome struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Status         string  `json:"status"`
	ICCID          string  `json:"iccid,omitempty"`
	ActivationCode string  `json:"activationCode,omitempty"`
	OrderNo        string  `json:"orderNo,omitempty"`
	Message        string  `json:"message,omitempty"`
	QRCode         string  `json:"qrCode,omitempty"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
	CreatedAt      string  `json:"createdAt"`
}

type VerifySessionRequest struct {
	SessionID string
}

func NewVerifySessionRequestFromContext(ctx echo.Context) *VerifySessionRequest {
	return &VerifySessionRequest{
		SessionID: strings.TrimSpace(ctx.QueryParam("sessionId")),
	}
}

func (r *VerifySessionRequest) Validate() error {
	if r.SessionID == "" {
		return errors.New("Session ID required")
	}
	return nil
}

type CheckoutItem struct {
	PriceID string `json:"priceId"`
}

type CreateSessionRequest struct {
	Email      string         `json:"email"`
	Items      []CheckoutItem `json:"items"`
	SuccessURL string         `json:"successUrl"`
	CancelURL  string         `json:"cancelUrl"`
}

func NewCreateSessionRequestFromContext(ctx echo.Context) (*CreateSessionRequest, error) {
	var body CreateSessionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	body.SuccessURL = strings.TrimSpace(body.SuccessURL)
	body.CancelURL = strings.TrimSpace(body.CancelURL)

	return &body, nil
}

func (r *CreateSessionRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("Cart is empty")
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.PriceID) == "" {
			return errors.New("priceId is required for every item")
		}
	}
	if r.SuccessURL == "" || r.CancelURL == "" {
		return errors.New("successUrl and cancelUrl are required")
	}
	return nil
}

func (r *CreateSessionRequest) PriceIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		ids = append(ids, strings.TrimSpace(item.PriceID))
	}
	return ids
}

type CheckoutSessionResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

type UsageRequest struct {
	ICCID string
}

func NewUsageRequestFromContext(ctx echo.Context) *UsageRequest {
	return &UsageRequest{
		ICCID: strings.TrimSpace(ctx.QueryParam("iccid")),
	}
}

func (r *UsageRequest) Validate() error {
	if r.ICCID == "" || r.ICCID == "PENDING" {
		return errors.New("Valid ICCID required")
	}
	return nil
}

// CarrierWebhookRequest is the carrier's async fulfillment notification. The
// carrier echoes our externalOrderNo, which is the checkout session id.
type CarrierWebhookRequest struct {
	OrderNo         string `json:"orderNo"`
	Status          string `json:"status"`
	ICCID           string `json:"iccid"`
	ActivationCode  string `json:"acCode"`
	ExternalOrderNo string `json:"externalOrderNo"`
}

func NewCarrierWebhookRequestFromContext(ctx echo.Context) (*CarrierWebhookRequest, error) {
	var body CarrierWebhookRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderNo = strings.TrimSpace(body.OrderNo)
	body.Status = strings.TrimSpace(body.Status)
	body.ICCID = strings.TrimSpace(body.ICCID)
	body.ActivationCode = strings.TrimSpace(body.ActivationCode)
	body.ExternalOrderNo = strings.TrimSpace(body.ExternalOrderNo)

	return &body, nil
}

func (r *CarrierWebhookRequest) Validate() error {
	if r.ExternalOrderNo == "" {
		return errors.New("externalOrderNo is required")
	}
	return nil
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}
