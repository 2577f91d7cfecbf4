package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storepay/internal/config"
	pkgAuth "github.com/polkiloo/storepay/internal/pkg/auth"
	"github.com/polkiloo/storepay/internal/server/http/handlers"
	testhelpers "github.com/polkiloo/storepay/internal/test"
)

func newEngine(facade testhelpers.PaymentsFacadeStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return Setup(facade, &config.Config{ShutdownTimeout: time.Second}, logger)
}

func serve(engine *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func TestSetupPublicRoutes(t *testing.T) {
	facade := testhelpers.NewPaymentsFacadeStub()
	engine := newEngine(facade)
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	body, _ := json.Marshal(map[string]any{"customerName": "Achieng", "phone": "0712345678", "paymentMethod": "mobile_money"})
	if resp := serve(engine, http.MethodPost, "/api/orders", body, jsonHeaders); resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for checkout, got %d", resp.Code)
	}
	if resp := serve(engine, http.MethodGet, "/api/orders/o1/status", nil, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for status, got %d", resp.Code)
	}
	if resp := serve(engine, http.MethodPost, "/api/payments/callback", []byte(`{"Body":{}}`), jsonHeaders); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for callback, got %d", resp.Code)
	}
	if len(facade.Bodies) != 1 {
		t.Fatalf("expected callback forwarded, got %d", len(facade.Bodies))
	}
	if resp := serve(engine, http.MethodGet, "/api/health", nil, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for health, got %d", resp.Code)
	}
}

func TestSetupAdminRoutesRequireToken(t *testing.T) {
	facade := testhelpers.NewPaymentsFacadeStub()
	facade.AuthFacadeStub.ParseFn = func(token string) (string, error) {
		if token != "token" {
			return "", pkgAuth.ErrInvalidToken
		}
		return "root", nil
	}
	engine := newEngine(facade)

	login, _ := json.Marshal(map[string]string{"login": "root", "password": "pw"})
	resp := serve(engine, http.MethodPost, "/api/admin/login", login, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for login, got %d", resp.Code)
	}

	routes := []struct {
		method string
		path   string
		body   []byte
	}{
		{http.MethodGet, "/api/admin/orders/o1", nil},
		{http.MethodPost, "/api/admin/orders/o1/status", []byte(`{"status":"paid"}`)},
		{http.MethodPost, "/api/admin/orders/o1/payment", nil},
		{http.MethodGet, "/api/admin/recovery-jobs?status=pending", nil},
		{http.MethodPost, "/api/admin/recovery-jobs/j1/retry", nil},
		{http.MethodPost, "/api/admin/recovery/drain", nil},
	}
	for _, r := range routes {
		if resp := serve(engine, r.method, r.path, r.body, nil); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token, got %d", r.method, r.path, resp.Code)
		}
		if resp := serve(engine, r.method, r.path, r.body, map[string]string{"Authorization": "Bearer forged"}); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 with forged token, got %d", r.method, r.path, resp.Code)
		}
		headers := map[string]string{"Authorization": "Bearer token", "Content-Type": "application/json"}
		if resp := serve(engine, r.method, r.path, r.body, headers); resp.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200 with token, got %d", r.method, r.path, resp.Code)
		}
	}
}

func TestCallbackBodyIsLimited(t *testing.T) {
	facade := testhelpers.NewPaymentsFacadeStub()
	engine := newEngine(facade)

	huge := bytes.Repeat([]byte("a"), maxCallbackBytes+1)
	if resp := serve(engine, http.MethodPost, "/api/payments/callback", huge, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for oversized body, got %d", resp.Code)
	}
	if len(facade.Bodies) != 0 {
		t.Fatal("oversized body must not reach the facade")
	}
}

var _ handlers.PaymentsFacade = testhelpers.PaymentsFacadeStub{}
