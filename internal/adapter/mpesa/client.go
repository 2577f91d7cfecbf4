// Package mpesa implements the payment gateway client for the M-Pesa Daraja STK push API.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

const (
	tokenPath       = "/oauth/v1/generate"
	stkPushPath     = "/mpesa/stkpush/v1/processrequest"
	transactionType = "CustomerPayBillOnline"
	timestampLayout = "20060102150405"
	tokenMargin     = time.Minute
	defaultTokenTTL = 55 * time.Minute
)

// Daraja expects timestamps in East Africa Time.
var eat = time.FixedZone("EAT", 3*60*60)

// Client issues payment requests against the gateway.
type Client interface {
	RequestPayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentInitiation, error)
}

// Credentials authenticate the merchant against the gateway.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
}

// HTTPClient implements Client via the Daraja HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// NewHTTPClient creates gateway client with default timeout. ratePerSecond bounds outbound calls.
func NewHTTPClient(baseURL string, creds Credentials, ratePerSecond float64, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &HTTPClient{
		baseURL: parsed,
		creds:   creds,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// RequestPayment sends an STK push prompting the customer to authorise the amount.
func (c *HTTPClient) RequestPayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentInitiation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domainErrors.GatewayError{Message: "rate limit wait", Err: err}
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.now().In(eat).Format(timestampLayout)
	desc := req.Description
	if desc == "" {
		desc = "Payment for order " + req.Reference
	}
	amount := req.Amount
	if amount < 1 {
		amount = 1
	}
	payload, err := json.Marshal(stkPushRequest{
		BusinessShortCode: c.creds.Shortcode,
		Password:          Password(c.creds.Shortcode, c.creds.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            req.Phone,
		PartyB:            c.creds.Shortcode,
		PhoneNumber:       req.Phone,
		CallBackURL:       req.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   desc,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(stkPushPath), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domainErrors.GatewayError{Message: "stk push request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var data stkPushResponse
	decodeErr := json.Unmarshal(body, &data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := resp.Status
		if decodeErr == nil && data.ErrorMessage != "" {
			msg = data.ErrorMessage
		}
		c.logger.Error("stk push failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)),
			slog.String("reference", req.Reference))
		return nil, &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if data.ResponseCode != "" && data.ResponseCode != "0" {
		return nil, &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: data.ResponseDescription}
	}
	if data.MerchantRequestID == "" || data.CheckoutRequestID == "" {
		return nil, &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: "missing correlation identifiers"}
	}

	c.logger.Info("stk push accepted",
		slog.String("reference", req.Reference),
		slog.String("merchant_request_id", data.MerchantRequestID),
		slog.String("checkout_request_id", data.CheckoutRequestID))

	return &model.PaymentInitiation{
		MerchantRequestID: data.MerchantRequestID,
		CheckoutRequestID: data.CheckoutRequestID,
		Raw:               json.RawMessage(body),
	}, nil
}

// Password derives the STK push password for the given timestamp.
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(tokenPath)+"?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.creds.ConsumerKey, c.creds.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domainErrors.GatewayError{Message: "token request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("gateway token request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return "", &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: "token request rejected"}
	}

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: "malformed token response", Err: err}
	}
	if data.AccessToken == "" {
		return "", &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: "empty access token"}
	}

	ttl := parseExpiresIn(data.ExpiresIn)
	c.token = data.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenMargin)
	return c.token, nil
}

func (c *HTTPClient) endpoint(p string) string {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)
	return endpoint.String()
}

// parseExpiresIn accepts expires_in as a JSON number or a quoted number of seconds.
func parseExpiresIn(raw json.RawMessage) time.Duration {
	v := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if seconds, err := strconv.Atoi(v); err == nil && time.Duration(seconds)*time.Second > tokenMargin {
		return time.Duration(seconds) * time.Second
	}
	return defaultTokenTTL
}
