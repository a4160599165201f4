// Package phonepe is a client for the PhonePe standard checkout (v2) APIs:
// OAuth client credentials, redirect payment initiation, order status and
// callback authentication.
package phonepe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	defaultTimeout        = 30 * time.Second
	tokenSafetyMargin     = time.Minute
	responseBodyReadLimit = 1024
	orderExpirySeconds    = 1200
)

var errCredentialsRequired = errors.New("phonepe client id and secret are required")

// Config carries the merchant credentials and endpoints.
type Config struct {
	AuthURL          string
	BaseURL          string
	ClientID         string
	ClientSecret     string
	ClientVersion    string
	Timeout          time.Duration
	CallbackUsername string
	CallbackPassword string
}

// Client talks to PhonePe. It caches the OAuth token until shortly before it
// expires.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errCredentialsRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "1"
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewMerchantOrderID returns txn{YYYYMMDDHHMMSS}{8 upper hex}.
func NewMerchantOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "txn" + now.Format("20060102150405") + suffix
}

// PayRequest starts a redirect checkout.
type PayRequest struct {
	MerchantOrderID string
	AmountPaise     int64
	RedirectURL     string
}

// PayResponse is the hosted checkout the customer is sent to.
type PayResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
	ExpireAt    int64  `json:"expireAt"`
}

// PaymentAttempt is one instrument attempt reported by the status API.
type PaymentAttempt struct {
	TransactionID string `json:"transactionId"`
	PaymentMode   string `json:"paymentMode"`
	State         string `json:"state"`
	Amount        int64  `json:"amount"`
	Rail          struct {
		Type string `json:"type"`
		UTR  string `json:"utr"`
		VPA  string `json:"vpa"`
	} `json:"rail"`
	Instrument struct {
		Type   string `json:"type"`
		BankID string `json:"bankId"`
	} `json:"instrument"`
}

// OrderStatus is the gateway view of one merchant order.
type OrderStatus struct {
	OrderID         string           `json:"orderId"`
	MerchantOrderID string           `json:"merchantOrderId"`
	State           string           `json:"state"`
	Amount          int64            `json:"amount"`
	PaymentDetails  []PaymentAttempt `json:"paymentDetails"`
}

// LatestAttempt returns the last reported attempt, if any.
func (s *OrderStatus) LatestAttempt() *PaymentAttempt {
	if s == nil || len(s.PaymentDetails) == 0 {
		return nil
	}
	return &s.PaymentDetails[len(s.PaymentDetails)-1]
}

// Pay creates the checkout order and returns the redirect target.
func (c *Client) Pay(ctx context.Context, req PayRequest) (*PayResponse, error) {
	if strings.TrimSpace(req.MerchantOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	body := map[string]any{
		"merchantOrderId": req.MerchantOrderID,
		"amount":          req.AmountPaise,
		"expireAfter":     orderExpirySeconds,
		"paymentFlow": map[string]any{
			"type":    "PG_CHECKOUT",
			"message": "Marketplace order " + req.MerchantOrderID,
			"merchantUrls": map[string]string{
				"redirectUrl": req.RedirectURL,
			},
		},
	}
	var out PayResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/v2/pay", body, &out); err != nil {
		return nil, err
	}
	if out.RedirectURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "phonepe returned no redirect url")
	}
	return &out, nil
}

// OrderStatus polls the state of a merchant order.
func (c *Client) OrderStatus(ctx context.Context, merchantOrderID string) (*OrderStatus, error) {
	trimmed := strings.TrimSpace(merchantOrderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}
	var out OrderStatus
	path := fmt.Sprintf("/checkout/v2/order/%s/status?details=false", url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.MerchantOrderID == "" {
		out.MerchantOrderID = trimmed
	}
	return &out, nil
}

// CallbackEvent is the body PhonePe posts to the callback URL.
type CallbackEvent struct {
	Event   string      `json:"event"`
	Payload OrderStatus `json:"payload"`
}

// VerifyCallback checks the Authorization header, which PhonePe sets to
// sha256(username:password), and decodes the body.
func (c *Client) VerifyCallback(authorization string, body []byte) (*CallbackEvent, error) {
	if c.cfg.CallbackUsername == "" || c.cfg.CallbackPassword == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "phonepe callback credentials not configured")
	}
	sum := sha256.Sum256([]byte(c.cfg.CallbackUsername + ":" + c.cfg.CallbackPassword))
	expected := hex.EncodeToString(sum[:])
	got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(authorization), "SHA256")))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid phonepe callback authorization")
	}
	var event CallbackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode phonepe callback")
	}
	if event.Payload.MerchantOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phonepe callback missing merchant order id")
	}
	return &event, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal phonepe request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build phonepe request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute phonepe request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "phonepe request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode phonepe response")
	}
	return nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("client_version", c.cfg.ClientVersion)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build phonepe token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute phonepe token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "phonepe token request failed")
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode phonepe token response")
	}
	if out.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "phonepe returned an empty access token")
	}

	expiry := c.now().Add(time.Hour)
	if out.ExpiresAt > 0 {
		expiry = time.Unix(out.ExpiresAt, 0)
	}
	c.token = out.AccessToken
	c.tokenExpiry = expiry.Add(-tokenSafetyMargin)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
