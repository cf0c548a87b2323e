//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/ihavelanded/ms-go-esim/app/types"
)

const defaultHTTPBase = "http://localhost:48080"

func httpBase() string {
	if base := os.Getenv("ESIM_E2E_HTTP_BASE"); base != "" {
		return base
	}
	return defaultHTTPBase
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestMain(m *testing.M) {
	if err := waitForHTTP(httpBase(), 30*time.Second); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestHealth(t *testing.T) {
	client := newHTTPClient(httpBase())
	resp, body := client.doJSON(t, http.MethodGet, "/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, body)
	}

	var payload types.HealthResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("unexpected health payload: %+v", payload)
	}
}

func TestVerifySessionRequiresSessionID(t *testing.T) {
	client := newHTTPClient(httpBase())
	resp, body := client.doJSON(t, http.MethodGet, "/orders/verify-session", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}

	var payload types.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Error != "Session ID required" {
		t.Fatalf("unexpected error message: %s", payload.Error)
	}
}

func TestCreateSessionRejectsEmptyCart(t *testing.T) {
	client := newHTTPClient(httpBase())
	resp, body := client.doJSON(t, http.MethodPost, "/payments/create-session", &types.CreateSessionRequest{
		Email:      "e2e@example.com",
		Items:      []types.CheckoutItem{},
		SuccessURL: "https://shop.example/ok",
		CancelURL:  "https://shop.example/cancel",
	}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}
}

func TestUsageRejectsPendingICCID(t *testing.T) {
	client := newHTTPClient(httpBase())
	resp, body := client.doJSON(t, http.MethodGet, "/esim/usage?iccid=PENDING", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}
}

func TestAccountLifecycle(t *testing.T) {
	client := newHTTPClient(httpBase())
	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	creds := &types.CredentialsRequest{Email: email, Password: "e2e-password"}

	resp, body := client.doJSON(t, http.MethodPost, "/accounts/register", creds, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d body=%s", resp.StatusCode, body)
	}

	resp, body = client.doJSON(t, http.MethodPost, "/accounts/register", creds, "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d body=%s", resp.StatusCode, body)
	}

	resp, body = client.doJSON(t, http.MethodPost, "/accounts/login", creds, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", resp.StatusCode, body)
	}
	var tokenPayload types.TokenResponse
	if err := json.Unmarshal(body, &tokenPayload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if tokenPayload.Token == "" {
		t.Fatal("expected a token")
	}

	resp, body = client.doJSON(t, http.MethodGet, "/accounts/orders", nil, tokenPayload.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("orders: expected 200, got %d body=%s", resp.StatusCode, body)
	}
	var orders []*types.ProvisioningOutcome
	if err := json.Unmarshal(body, &orders); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("fresh account should have no orders, got %d", len(orders))
	}

	resp, body = client.doJSON(t, http.MethodGet, "/accounts/orders", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("orders without token: expected 401, got %d body=%s", resp.StatusCode, body)
	}
}

func TestCarrierWebhookAcknowledgesUnknownOrder(t *testing.T) {
	client := newHTTPClient(httpBase())
	resp, body := client.doJSON(t, http.MethodPost, "/webhooks/carrier", &types.CarrierWebhookRequest{
		OrderNo:         "B-e2e-unknown",
		ExternalOrderNo: fmt.Sprintf("cs_e2e_unknown_%d", time.Now().UnixNano()),
		ActivationCode:  "LPA:1$smdp.example$E2E",
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, body)
	}

	var payload types.WebhookAckResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !payload.Received {
		t.Fatal("expected received ack")
	}
}
