package stripe

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func TestNewClientNormalizesConfig(t *testing.T) {
	client, err := NewClient(Config{
		SecretKey:     " sk_test_123 ",
		WebhookSecret: " whsec_123 ",
		APIBaseURL:    " https://stripe.example.com/ ",
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.cfg.SecretKey != "sk_test_123" {
		t.Fatalf("unexpected secret key: %s", client.cfg.SecretKey)
	}
	if client.cfg.APIBaseURL != "https://stripe.example.com" {
		t.Fatalf("unexpected api base url: %s", client.cfg.APIBaseURL)
	}
	if client.cfg.WebhookToleranceSeconds != defaultWebhookToleranceS {
		t.Fatalf("unexpected tolerance: %d", client.cfg.WebhookToleranceSeconds)
	}
}

func TestNewClientDefaultsAPIBaseURL(t *testing.T) {
	client, err := NewClient(Config{SecretKey: "sk_test_123"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected default api base url: %s", client.cfg.APIBaseURL)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	if _, err := NewClient(Config{SecretKey: "sk_test_123", APIBaseURL: "not a url"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got: %v", err)
	}
}

func TestRequestsRequireSecretKey(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := client.doFormRequest(context.Background(), "POST", "/v1/payment_intents", url.Values{}, ""); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config invalid on form request, got: %v", err)
	}
	if _, err := client.doJSONRequest(context.Background(), "GET", "/v1/payment_intents/pi_1"); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config invalid on json request, got: %v", err)
	}
}

func TestReadHelpersTolerateMixedTypes(t *testing.T) {
	raw := map[string]interface{}{
		"id":     " pi_123 ",
		"amount": float64(1999),
		"count":  "42",
		"nested": map[string]interface{}{"order_id": "1001"},
	}
	if got := readString(raw, "id"); got != "pi_123" {
		t.Fatalf("unexpected string: %s", got)
	}
	if got := readInt64(raw, "amount"); got != 1999 {
		t.Fatalf("unexpected int64: %d", got)
	}
	if got := readInt64(raw, "count"); got != 42 {
		t.Fatalf("unexpected parsed int64: %d", got)
	}
	meta := readStringMap(raw, "nested")
	if meta["order_id"] != "1001" {
		t.Fatalf("unexpected nested value: %s", meta["order_id"])
	}
	if got := readString(raw, "missing"); got != "" {
		t.Fatalf("expected empty string for missing key, got: %s", got)
	}
}
