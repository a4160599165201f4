// Package razorpay wraps the Razorpay orders and payments REST APIs used for
// the mobile SDK checkout, plus signature verification helpers.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://api.razorpay.com/v1"
	defaultTimeout        = 30 * time.Second
	responseBodyReadLimit = 1024
	currencyINR           = "INR"
	statusCaptured        = "captured"
)

var errKeysRequired = errors.New("razorpay key id and secret are required")

// Config carries the API keys.
type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// Client is a Razorpay REST client authenticated with basic auth.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errKeysRequired
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.KeySecret
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// KeyID is handed to the mobile SDK together with the order id.
func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

// NewReceipt returns rzp{YYYYMMDDHHMMSS}{8 upper hex}, used as our merchant
// order id and sent as the order receipt.
func NewReceipt(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "rzp" + now.Format("20060102150405") + suffix
}

// Order is a Razorpay order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is a Razorpay payment entity.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
	Captured bool   `json:"captured"`
	Bank     string `json:"bank"`
	VPA      string `json:"vpa"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`

	AcquirerData struct {
		RRN               string `json:"rrn"`
		UPITransactionID  string `json:"upi_transaction_id"`
		BankTransactionID string `json:"bank_transaction_id"`
	} `json:"acquirer_data"`
}

// Reference returns the bank-side reference for the payment, if any.
func (p *Payment) Reference() string {
	switch {
	case p.AcquirerData.RRN != "":
		return p.AcquirerData.RRN
	case p.AcquirerData.UPITransactionID != "":
		return p.AcquirerData.UPITransactionID
	default:
		return p.AcquirerData.BankTransactionID
	}
}

// CreateOrder opens an order the SDK collects payment against. Receipt is our
// merchant order id.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, receipt string) (*Order, error) {
	if amountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	body := map[string]any{
		"amount":          amountPaise,
		"currency":        currencyINR,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPayment loads a single payment.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	var out Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(trimmed), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderPayments lists every payment attempt against an order.
func (c *Client) OrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay order id is required")
	}
	var out struct {
		Items []Payment `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(trimmed)+"/payments", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// VerifyPaymentSignature checks the checkout signature, an HMAC-SHA256 of
// "order_id|payment_id" keyed with the API secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}
	if !validSignature(c.cfg.KeySecret, []byte(orderID+"|"+paymentID), signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid razorpay payment signature")
	}
	return nil
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) error {
	if !validSignature(c.cfg.WebhookSecret, body, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid razorpay webhook signature")
	}
	return nil
}

// VerifyCaptured confirms the payment is captured in INR for the expected
// amount.
func VerifyCaptured(payment *Payment, expectedPaise int64) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment is required")
	}
	if !strings.EqualFold(payment.Status, statusCaptured) || !payment.Captured {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment status is %s, expected captured", payment.Status))
	}
	if !strings.EqualFold(payment.Currency, currencyINR) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment currency is %s, expected INR", payment.Currency))
	}
	if expectedPaise > 0 && payment.Amount != expectedPaise {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment amount %d does not match expected %d", payment.Amount, expectedPaise))
	}
	return nil
}

// WebhookEvent is the subset of a Razorpay webhook the reconciler needs.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity Order `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook verifies and decodes a webhook body.
func (c *Client) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if err := c.VerifyWebhookSignature(body, signature); err != nil {
		return nil, err
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode razorpay webhook")
	}
	return &event, nil
}

func validSignature(secret string, message []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal razorpay request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build razorpay request")
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute razorpay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "razorpay request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode razorpay response")
	}
	return nil
}
