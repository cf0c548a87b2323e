package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const PaymentStatusPaid = "paid"

// ErrNotConfigured means the Stripe secret key is absent. Unlike missing
// carrier credentials this is fatal: no payment can be confirmed without it.
var ErrNotConfigured = errors.New("stripe secret key is not configured")

// UnavailableError wraps any failure to talk to Stripe itself, transport or
// HTTP. It is the one error class the orchestration surfaces as a 500.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("stripe %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

type Config struct {
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

type StripeClient struct {
	cfg    Config
	client *http.Client
}

func NewStripeClient(cfg Config) *StripeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &StripeClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// CheckoutSession is the read-only view of a hosted checkout session.
type CheckoutSession struct {
	ID            string
	PaymentStatus string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	PlanIDs       []string
}

func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// FirstPlanID returns the first purchased SKU from the session metadata.
func (s *CheckoutSession) FirstPlanID() string {
	if len(s.PlanIDs) == 0 {
		return ""
	}
	return s.PlanIDs[0]
}

type CheckoutInput struct {
	Email      string
	PriceIDs   []string
	SuccessURL string
	CancelURL  string
}

type CheckoutLink struct {
	SessionID   string
	CheckoutURL string
}

// VerifySession fetches the session's current state from Stripe. It reports
// state only; deciding whether an unpaid session is an error belongs to the
// caller.
func (c *StripeClient) VerifySession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if strings.TrimSpace(c.cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	body, err := c.do("retrieve checkout session", req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID              string `json:"id"`
		PaymentStatus   string `json:"payment_status"`
		CustomerEmail   string `json:"customer_email"`
		CustomerDetails struct {
			Email string `json:"email"`
		} `json:"customer_details"`
		AmountTotal int64  `json:"amount_total"`
		Currency    string `json:"currency"`
		Metadata    struct {
			PlanIDs string `json:"plan_ids"`
		} `json:"metadata"`
	}
	if err := decodeJSON(body, &payload); err != nil {
		return nil, &UnavailableError{Op: "retrieve checkout session", Err: err}
	}

	email := strings.TrimSpace(payload.CustomerEmail)
	if email == "" {
		email = strings.TrimSpace(payload.CustomerDetails.Email)
	}

	return &CheckoutSession{
		ID:            payload.ID,
		PaymentStatus: payload.PaymentStatus,
		CustomerEmail: strings.ToLower(email),
		AmountTotal:   payload.AmountTotal,
		Currency:      strings.ToUpper(payload.Currency),
		PlanIDs:       splitPlanIDs(payload.Metadata.PlanIDs),
	}, nil
}

// CreateCheckoutSession creates the hosted checkout page for a cart of price
// ids. The purchased SKUs travel in the session metadata so verify-session
// can resolve them after payment.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*CheckoutLink, error) {
	if strings.TrimSpace(c.cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("automatic_payment_methods[enabled]", "true")
	for i, priceID := range input.PriceIDs {
		values.Set("line_items["+strconv.Itoa(i)+"][price]", priceID)
		values.Set("line_items["+strconv.Itoa(i)+"][quantity]", "1")
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		values.Set("customer_email", email)
		values.Set("metadata[customer_email]", email)
	}
	values.Set("success_url", input.SuccessURL)
	values.Set("cancel_url", input.CancelURL)
	values.Set("metadata[plan_ids]", strings.Join(input.PriceIDs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/checkout/sessions", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do("create checkout session", req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := decodeJSON(body, &payload); err != nil {
		return nil, &UnavailableError{Op: "create checkout session", Err: err}
	}
	if strings.TrimSpace(payload.URL) == "" {
		return nil, &UnavailableError{Op: "create checkout session", Err: errors.New("stripe returned no checkout url")}
	}

	return &CheckoutLink{
		SessionID:   strings.TrimSpace(payload.ID),
		CheckoutURL: strings.TrimSpace(payload.URL),
	}, nil
}

func (c *StripeClient) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Op: op, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &UnavailableError{Op: op, Err: fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))}
	}
	return body, nil
}

func decodeJSON(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func splitPlanIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
