package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned before any network call when the carrier
// credentials are absent. Callers downgrade it to manual fulfillment instead
// of surfacing a raw configuration error to a paying customer.
var ErrNotConfigured = errors.New("carrier credentials are not configured")

// TransportError wraps a network-level failure or an exceeded deadline on a
// carrier call. It carries at-least-once semantics: the request may have
// taken effect carrier-side even though no response arrived.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("carrier %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL          string
	AppKey           string
	AppSecret        string
	PurchaseDeadline time.Duration
	QueryTimeout     time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.esimaccess.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PurchaseDeadline <= 0 {
		cfg.PurchaseDeadline = 8 * time.Second
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 5 * time.Second
	}

	return &Client{
		cfg: cfg,
		// No Timeout on the shared client; every call carries its own
		// context deadline.
		client: &http.Client{},
		now:    time.Now,
	}
}

func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.AppKey) != "" && strings.TrimSpace(c.cfg.AppSecret) != ""
}

type PurchaseRequest struct {
	LocationCode    string `json:"locationCode"`
	PackageCode     string `json:"packageCode"`
	Quantity        int    `json:"quantity"`
	ExternalOrderNo string `json:"externalOrderNo"`
	Email           string `json:"email,omitempty"`
}

// OrderProfile is one provisioned eSIM profile inside the order payload.
type OrderProfile struct {
	OrderNo        string `json:"orderNo"`
	ICCID          string `json:"iccid"`
	ActivationCode string `json:"acCode"`
}

type OrderResult struct {
	Code     string
	Message  string
	OrderNo  string
	Profiles []OrderProfile
}

func (r *OrderResult) Success() bool {
	return r.Code == CodeSuccess
}

// FirstProfile returns the first allocated profile, or a zero profile while
// the carrier is still allocating.
func (r *OrderResult) FirstProfile() OrderProfile {
	if len(r.Profiles) == 0 {
		return OrderProfile{}
	}
	return r.Profiles[0]
}

type UsageReport struct {
	ICCID           string `json:"iccid"`
	TotalVolume     int64  `json:"totalVolume"`
	UsedVolume      int64  `json:"usedVolume"`
	RemainingVolume int64  `json:"remainingVolume"`
	ExpiryTime      string `json:"expiryTime"`
	Status          string `json:"status"`
}

type Package struct {
	PackageCode  string `json:"packageCode"`
	LocationCode string `json:"locationCode"`
	Name         string `json:"name"`
	Volume       int64  `json:"volume"`
	Duration     int32  `json:"duration"`
	PriceCents   int64  `json:"price"`
	Currency     string `json:"currencyCode"`
}

// responseCode tolerates the carrier sending the envelope code as either a
// JSON string or a bare number.
type responseCode string

func (c *responseCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = responseCode(s)
		return nil
	}
	if bytes.Equal(data, []byte("0")) {
		*c = CodeSuccess
		return nil
	}
	*c = responseCode(data)
	return nil
}

type orderEnvelope struct {
	Code    responseCode `json:"code"`
	Message string       `json:"message"`
	Data    struct {
		OrderNo   string         `json:"orderNo"`
		OrderList []OrderProfile `json:"orderList"`
	} `json:"data"`
}

// Purchase places the order with the carrier, bounded by the configured
// purchase deadline. The carrier de-duplicates on ExternalOrderNo, so repeat
// calls for the same checkout session are safe.
func (c *Client) Purchase(ctx context.Context, req *PurchaseRequest) (*OrderResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PurchaseDeadline)
	defer cancel()

	body, err := c.postJSON(ctx, "purchase", "/order/v1/buy", req)
	if err != nil {
		return nil, err
	}
	return decodeOrderEnvelope("purchase", body)
}

// Query fetches the current state of a carrier order. Best-effort companion
// to Purchase; used to pick up the ICCID once allocation finishes.
func (c *Client) Query(ctx context.Context, orderNo string) (*OrderResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, errors.New("carrier order number is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	body, err := c.postJSON(ctx, "query", "/order/v1/query", map[string]string{"orderNo": orderNo})
	if err != nil {
		return nil, err
	}
	return decodeOrderEnvelope("query", body)
}

// Usage fetches live usage telemetry for an issued profile.
func (c *Client) Usage(ctx context.Context, iccid string) (*UsageReport, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/esim/v1/usage?iccid="+url.QueryEscape(iccid), nil)
	if err != nil {
		return nil, err
	}
	c.signRequest(req)

	body, err := c.do("usage", req)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Code    responseCode `json:"code"`
		Message string       `json:"message"`
		Obj     *UsageReport `json:"obj"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("carrier usage: decode response: %w", err)
	}
	if envelope.Code != "" && string(envelope.Code) != CodeSuccess {
		return nil, fmt.Errorf("carrier usage rejected: code=%s message=%s", envelope.Code, envelope.Message)
	}
	if envelope.Obj == nil {
		return nil, errors.New("carrier usage: empty payload")
	}
	if envelope.Obj.ICCID == "" {
		envelope.Obj.ICCID = iccid
	}
	return envelope.Obj, nil
}

// ListPackages returns the packages available to the merchant account.
func (c *Client) ListPackages(ctx context.Context) ([]Package, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	body, err := c.postJSON(ctx, "package list", "/package/v1/list", map[string]int{"page": 1, "limit": 100})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Code    responseCode `json:"code"`
		Message string       `json:"message"`
		Data    struct {
			List []Package `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("carrier package list: decode response: %w", err)
	}
	if string(envelope.Code) != CodeSuccess {
		return nil, fmt.Errorf("carrier package list rejected: code=%s message=%s", envelope.Code, envelope.Message)
	}
	return envelope.Data.List, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req)

	return c.do(op, req)
}

func (c *Client) signRequest(req *http.Request) {
	timestamp := requestTimestamp(c.now())
	req.Header.Set("RT-AppKey", c.cfg.AppKey)
	req.Header.Set("RT-Timestamp", timestamp)
	req.Header.Set("RT-Sign", Sign(c.cfg.AppKey, c.cfg.AppSecret, timestamp))
}

func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("carrier endpoint returned status=%d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("carrier %s failed: status=%d body=%s", op, resp.StatusCode, string(body))
	}
	return body, nil
}

func decodeOrderEnvelope(op string, body []byte) (*OrderResult, error) {
	var envelope orderEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("carrier %s: decode response: %w", op, err)
	}

	result := &OrderResult{
		Code:     string(envelope.Code),
		Message:  strings.TrimSpace(envelope.Message),
		OrderNo:  strings.TrimSpace(envelope.Data.OrderNo),
		Profiles: envelope.Data.OrderList,
	}
	if result.OrderNo == "" && len(result.Profiles) > 0 {
		result.OrderNo = strings.TrimSpace(result.Profiles[0].OrderNo)
	}
	return result, nil
}
