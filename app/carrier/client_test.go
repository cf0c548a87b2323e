package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL:          server.URL,
		AppKey:           "test-key",
		AppSecret:        "test-secret",
		PurchaseDeadline: 2 * time.Second,
		QueryTimeout:     2 * time.Second,
	})
}

func TestPurchaseRequiresCredentials(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := client.Purchase(context.Background(), &PurchaseRequest{
		LocationCode:    "US",
		PackageCode:     "US_5GB_30D",
		ExternalOrderNo: "cs_test_1",
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPurchaseSignsAndDecodesSuccess(t *testing.T) {
	var gotBody PurchaseRequest
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order/v1/buy" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		appKey := r.Header.Get("RT-AppKey")
		timestamp := r.Header.Get("RT-Timestamp")
		sign := r.Header.Get("RT-Sign")
		if appKey != "test-key" || timestamp == "" {
			t.Fatalf("missing auth headers: key=%q ts=%q", appKey, timestamp)
		}
		if sign != Sign("test-key", "test-secret", timestamp) {
			t.Fatal("signature does not match headers")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    "000000",
			"message": "success",
			"data": map[string]any{
				"orderNo": "B23100112345",
				"orderList": []map[string]string{
					{"orderNo": "B23100112345", "iccid": "8986001234567890", "acCode": "LPA:1$smdp.example$ABC123"},
				},
			},
		})
	}))

	result, err := client.Purchase(context.Background(), &PurchaseRequest{
		LocationCode:    "US",
		PackageCode:     "US_5GB_30D",
		ExternalOrderNo: "cs_test_1",
		Email:           "traveler@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Success() {
		t.Fatalf("expected success, got code %s", result.Code)
	}
	if result.OrderNo != "B23100112345" {
		t.Fatalf("unexpected order no: %s", result.OrderNo)
	}
	if result.FirstProfile().ActivationCode != "LPA:1$smdp.example$ABC123" {
		t.Fatalf("unexpected activation code: %s", result.FirstProfile().ActivationCode)
	}
	if gotBody.Quantity != 1 {
		t.Fatalf("quantity should default to 1, got %d", gotBody.Quantity)
	}
	if gotBody.ExternalOrderNo != "cs_test_1" {
		t.Fatalf("unexpected external order no: %s", gotBody.ExternalOrderNo)
	}
}

func TestPurchaseAcceptsNumericSuccessCode(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"orderList":[]}}`))
	}))

	result, err := client.Purchase(context.Background(), &PurchaseRequest{ExternalOrderNo: "cs_test_2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Success() {
		t.Fatalf("numeric zero code should count as success, got %q", result.Code)
	}
}

func TestPurchaseReturnsRejectionEnvelope(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"200010","message":"balance not enough","data":{}}`))
	}))

	result, err := client.Purchase(context.Background(), &PurchaseRequest{ExternalOrderNo: "cs_test_3"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Success() {
		t.Fatal("rejection must not be success")
	}
	if result.Code != CodeInsufficientBalance || result.Message != "balance not enough" {
		t.Fatalf("unexpected rejection: code=%s message=%s", result.Code, result.Message)
	}
}

func TestPurchaseDeadlineBecomesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:          server.URL,
		AppKey:           "test-key",
		AppSecret:        "test-secret",
		PurchaseDeadline: 100 * time.Millisecond,
	})

	start := time.Now()
	_, err := client.Purchase(context.Background(), &PurchaseRequest{ExternalOrderNo: "cs_test_4"})
	elapsed := time.Since(start)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("purchase did not honor its deadline: %v", elapsed)
	}
}

func TestQueryDecodesProfile(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order/v1/query" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"code":"000000","data":{"orderNo":"B1","orderList":[{"orderNo":"B1","iccid":"89860012","acCode":"LPA:1$x$Y"}]}}`))
	}))

	result, err := client.Query(context.Background(), "B1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.FirstProfile().ICCID != "89860012" {
		t.Fatalf("unexpected iccid: %s", result.FirstProfile().ICCID)
	}
}

func TestUsageUnwrapsObj(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("iccid") != "89860012" {
			t.Fatalf("unexpected iccid param: %s", r.URL.Query().Get("iccid"))
		}
		_, _ = w.Write([]byte(`{"code":"000000","obj":{"totalVolume":1000,"usedVolume":250,"remainingVolume":750,"status":"active"}}`))
	}))

	report, err := client.Usage(context.Background(), "89860012")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.RemainingVolume != 750 || report.Status != "active" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.ICCID != "89860012" {
		t.Fatalf("iccid should be backfilled, got %s", report.ICCID)
	}
}

func TestListPackages(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/package/v1/list" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"code":"000000","data":{"list":[{"packageCode":"US_5GB_30D","locationCode":"US","name":"USA 5GB"}]}}`))
	}))

	packages, err := client.ListPackages(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(packages) != 1 || packages[0].PackageCode != "US_5GB_30D" {
		t.Fatalf("unexpected packages: %+v", packages)
	}
}

func TestRejectionHintTable(t *testing.T) {
	hint, ok := RejectionHint(CodeInsufficientBalance)
	if !ok || hint == "" {
		t.Fatal("expected a hint for the balance rejection code")
	}
	if _, ok := RejectionHint("999999"); ok {
		t.Fatal("unknown codes must not resolve to a hint")
	}
}
