// Package sabpaisa builds the encrypted checkout form for SabPaisa, decrypts
// its callbacks and runs transaction status enquiries.
package sabpaisa

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
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
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMCC            = "5411"
	channelMobile         = "M"
	responseBodyReadLimit = 1024
)

// Gateway-level outcome of a status code.
const (
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StatePending   = "PENDING"
)

var errConfigIncomplete = errors.New("sabpaisa client code, credentials, key and iv are required")

// Config carries the merchant credentials.
type Config struct {
	InitURL           string
	StatusURL         string
	ClientCode        string
	AESKey            string
	AESIV             string
	TransUserName     string
	TransUserPassword string
	MCC               string
	Timeout           time.Duration
}

// Client encrypts requests with the merchant AES key (CBC, PKCS#7, upper hex).
type Client struct {
	cfg        Config
	block      cipher.Block
	iv         []byte
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

// NewClient decodes the base64 key and IV and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientCode == "" || cfg.AESKey == "" || cfg.AESIV == "" || cfg.TransUserName == "" || cfg.TransUserPassword == "" {
		return nil, errConfigIncomplete
	}
	key, err := base64.StdEncoding.DecodeString(cfg.AESKey)
	if err != nil {
		return nil, fmt.Errorf("decode sabpaisa aes key: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(cfg.AESIV)
	if err != nil {
		return nil, fmt.Errorf("decode sabpaisa aes iv: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sabpaisa aes key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("sabpaisa aes iv must be %d bytes", block.BlockSize())
	}
	if cfg.MCC == "" {
		cfg.MCC = defaultMCC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := &Client{cfg: cfg, block: block, iv: iv, httpClient: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewClientTxnID returns TXN{YYYYMMDDHHMMSS}{20 upper hex}.
func NewClientTxnID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
	return "TXN" + now.Format("20060102150405") + suffix
}

// Payer identifies the customer on the hosted page.
type Payer struct {
	Name    string
	Email   string
	Mobile  string
	Address string
}

// FormRequest describes one checkout attempt.
type FormRequest struct {
	ClientTxnID string
	Amount      decimal.Decimal
	CallbackURL string
	Payer       Payer
	Now         time.Time
}

// Form is posted by the client app to Action.
type Form struct {
	Action      string `json:"action"`
	EncData     string `json:"encData"`
	ClientCode  string `json:"clientCode"`
	ClientTxnID string `json:"clientTxnId"`
}

// BuildForm encrypts the checkout parameters.
func (c *Client) BuildForm(req FormRequest) (*Form, error) {
	if req.ClientTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client txn id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	params := []string{
		"payerName=" + strings.TrimSpace(req.Payer.Name),
		"payerEmail=" + strings.TrimSpace(req.Payer.Email),
		"payerMobile=" + strings.TrimSpace(req.Payer.Mobile),
		"clientTxnId=" + req.ClientTxnID,
	}
	if address := strings.TrimSpace(req.Payer.Address); address != "" {
		params = append(params, "payerAddress="+address)
	}
	params = append(params,
		"amount="+req.Amount.StringFixed(2),
		"clientCode="+c.cfg.ClientCode,
		"transUserName="+c.cfg.TransUserName,
		"transUserPassword="+c.cfg.TransUserPassword,
		"callbackUrl="+req.CallbackURL,
		"amountType=INR",
		"channelId="+channelMobile,
		"mcc="+c.cfg.MCC,
		"transDate="+now.Format("2006-01-02 15:04:05"),
	)

	return &Form{
		Action:      c.cfg.InitURL,
		EncData:     c.Encrypt(strings.Join(params, "&")),
		ClientCode:  c.cfg.ClientCode,
		ClientTxnID: req.ClientTxnID,
	}, nil
}

// Response is a decrypted callback or enquiry result.
type Response struct {
	ClientTxnID   string
	StatusCode    string
	Status        string
	SabPaisaTxnID string
	BankTxnID     string
	PaidAmount    string
	PaymentMode   string
	BankName      string
	Raw           map[string]string
}

// State maps the status code onto the gateway outcome.
func (r *Response) State() string {
	return MapStatusCode(r.StatusCode)
}

// MapStatusCode: 0000 success, 0300 and 404 failed, 0200 (cancelled by the
// payer) failed, everything else still pending.
func MapStatusCode(code string) string {
	switch strings.TrimSpace(code) {
	case "0000":
		return StateCompleted
	case "0300", "404", "0200":
		return StateFailed
	default:
		return StatePending
	}
}

// DecryptResponse decrypts encResponse from the callback.
func (c *Client) DecryptResponse(encResponse string) (*Response, error) {
	plain, err := c.Decrypt(strings.TrimSpace(encResponse))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "decrypt sabpaisa response")
	}
	params := map[string]string{}
	for _, pair := range strings.Split(plain, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	resp := &Response{
		ClientTxnID:   params["clientTxnId"],
		StatusCode:    params["statusCode"],
		Status:        params["status"],
		SabPaisaTxnID: params["sabpaisaTxnId"],
		BankTxnID:     params["bankTxnId"],
		PaidAmount:    params["paidAmount"],
		PaymentMode:   params["paymentMode"],
		BankName:      params["bankName"],
		Raw:           params,
	}
	if resp.ClientTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sabpaisa response missing client txn id")
	}
	return resp, nil
}

// Enquire asks SabPaisa for the current state of a transaction.
func (c *Client) Enquire(ctx context.Context, clientTxnID string) (*Response, error) {
	if strings.TrimSpace(clientTxnID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client txn id is required")
	}
	payload, err := json.Marshal(map[string]string{
		"clientCode":         c.cfg.ClientCode,
		"statusTransEncData": c.Encrypt("clientCode=" + c.cfg.ClientCode + "&clientTxnId=" + clientTxnID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal sabpaisa enquiry")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.StatusURL, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sabpaisa enquiry")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sabpaisa enquiry")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "sabpaisa enquiry failed")
	}
	var out struct {
		StatusResponseData string `json:"statusResponseData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sabpaisa enquiry")
	}
	decoded, err := c.DecryptResponse(out.StatusResponseData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sabpaisa enquiry")
	}
	return decoded, nil
}

// ParseCallbackBody extracts encResponse from a form-encoded callback body.
func ParseCallbackBody(body []byte) (string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse sabpaisa callback")
	}
	enc := values.Get("encResponse")
	if enc == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sabpaisa callback missing encResponse")
	}
	return enc, nil
}

// Encrypt returns the upper-case hex ciphertext of plain.
func (c *Client) Encrypt(plain string) string {
	padded := pkcs7Pad([]byte(plain), c.block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return strings.ToUpper(hex.EncodeToString(out))
}

// Decrypt reverses Encrypt.
func (c *Client) Decrypt(encHex string) (string, error) {
	raw, err := hex.DecodeString(encHex)
	if err != nil {
		return "", fmt.Errorf("decode hex: %w", err)
	}
	size := c.block.BlockSize()
	if len(raw) == 0 || len(raw)%size != 0 {
		return "", errors.New("ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, size)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
