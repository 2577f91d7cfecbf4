package mpesa

import (
	"io"
	"log/slog"
	"testing"

	"github.com/polkiloo/storepay/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{GatewayBaseURL: "https://sandbox.safaricom.co.ke", GatewayShortcode: "174379", GatewayRateLimit: 5}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client, err := newClient(clientParams{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	httpClient, ok := client.(*HTTPClient)
	if !ok {
		t.Fatalf("expected *HTTPClient, got %T", client)
	}
	if httpClient.creds.Shortcode != "174379" {
		t.Fatalf("unexpected shortcode %q", httpClient.creds.Shortcode)
	}

	if _, err := newClient(clientParams{Config: &config.Config{GatewayBaseURL: "relative"}, Logger: logger}); err == nil {
		t.Fatal("expected error for relative gateway url")
	}
}
