// Package logistics is the client for the courier aggregator that registers
// warehouses, books shipments and reports tracking.
package logistics

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
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	defaultAuthTimeout     = 10 * time.Second
	defaultShipmentTimeout = 30 * time.Second
	tokenExpiryBuffer      = 5 * time.Minute
	tokenFallbackTTL       = 12 * time.Hour
	responseBodyReadLimit  = 2048
)

var errCredentialsRequired = errors.New("logistics base url, email and password are required")

// Config carries the aggregator account.
type Config struct {
	BaseURL         string
	Email           string
	Password        string
	AuthTimeout     time.Duration
	ShipmentTimeout time.Duration
}

// Client caches the bearer token until five minutes before its JWT expiry.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
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

// WithClock overrides the token cache clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" || cfg.Email == "" || cfg.Password == "" {
		return nil, errCredentialsRequired
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = defaultAuthTimeout
	}
	if cfg.ShipmentTimeout <= 0 {
		cfg.ShipmentTimeout = defaultShipmentTimeout
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Address is a pickup or RTO location.
type Address struct {
	WarehouseName string `json:"warehouse_name"`
	ContactName   string `json:"contact_name"`
	AddressLine1  string `json:"address_line_1"`
	AddressLine2  string `json:"address_line_2"`
	Pincode       string `json:"pincode"`
	Phone         string `json:"phone"`
	GSTNumber     string `json:"gst_number"`
}

// WarehouseRequest registers a store.
type WarehouseRequest struct {
	Pickup          Address `json:"pickup_location"`
	HasDifferentRTO bool    `json:"has_different_rto"`
	RTO             Address `json:"rto_location"`
}

// Warehouse holds the provider ids assigned to a store.
type Warehouse struct {
	PickupWarehouseID int64 `json:"pickup_warehouse_id"`
	RTOWarehouseID    int64 `json:"rto_warehouse_id"`
}

// Dimensions are centimetres.
type Dimensions struct {
	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
}

// Consignee is the delivery address.
type Consignee struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone"`
	GSTNumber string `json:"shipping_gst_number"`
}

// ShipmentItem is one line printed on the label.
type ShipmentItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	SKU      string  `json:"sku"`
}

// ShipmentRequest books one order with one courier. Weight is grams.
type ShipmentRequest struct {
	OrderNumber       string         `json:"order_no"`
	PayType           string         `json:"pay_type"`
	Weight            float64        `json:"weight"`
	Dimensions        Dimensions     `json:"dimensions"`
	ShippingFee       float64        `json:"shipping_fee"`
	CODFee            float64        `json:"cod_fee"`
	DiscountAmount    float64        `json:"discount_amount"`
	TotalAmount       float64        `json:"total_amount"`
	CourierID         int64          `json:"courier"`
	PickupWarehouseID int64          `json:"pickup_warehouse"`
	RTOWarehouseID    int64          `json:"rto_warehouse"`
	Tags              string         `json:"tags"`
	LabelFormat       string         `json:"label_format"`
	AutoPickup        string         `json:"auto_pickup"`
	ShipmentCreated   string         `json:"is_shipment_created"`
	Consignee         Consignee      `json:"consignee"`
	Items             []ShipmentItem `json:"order_items"`
}

// Shipment is a booked consignment.
type Shipment struct {
	AWBNumber   string `json:"awb_number"`
	ShipmentID  string `json:"shipment_id"`
	OrderID     string `json:"order_id"`
	Label       string `json:"label"`
	Manifest    string `json:"manifest"`
	Status      string `json:"status"`
	CourierID   int64  `json:"courier_id"`
	CourierName string `json:"courier_name"`
}

// Courier is one carrier offered by the aggregator.
type Courier struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RateRequest asks for serviceability and prices on a lane. Weight is grams.
type RateRequest struct {
	OriginPincode      string  `json:"origin_pincode"`
	DestinationPincode string  `json:"destination_pincode"`
	Weight             float64 `json:"weight"`
	Length             float64 `json:"length"`
	Breadth            float64 `json:"breadth"`
	Height             float64 `json:"height"`
	OrderAmount        float64 `json:"order_amount"`
	PaymentType        string  `json:"payment_type"`
}

// Tracking is the provider view of a consignment. Raw keeps the full payload.
type Tracking struct {
	Status        string
	PickupDate    *time.Time
	DeliveredDate *time.Time
	Raw           json.RawMessage
}

// Login fetches a fresh token and replaces the cached one.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login(ctx)
}

// CreateWarehouse registers pickup and RTO locations.
func (c *Client) CreateWarehouse(ctx context.Context, req WarehouseRequest) (*Warehouse, error) {
	var out Warehouse
	if err := c.call(ctx, http.MethodPost, "/v1/warehouse/create-warehouse", req, c.cfg.ShipmentTimeout, &out); err != nil {
		return nil, err
	}
	if out.PickupWarehouseID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logistics provider returned no pickup warehouse id")
	}
	return &out, nil
}

// CreateShipment books the consignment.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	var out Shipment
	if err := c.call(ctx, http.MethodPost, "/v1/shipments/generate-shipment", req, c.cfg.ShipmentTimeout, &out); err != nil {
		return nil, err
	}
	if out.AWBNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logistics provider returned no awb number")
	}
	return &out, nil
}

// CancelShipment cancels a booked consignment.
func (c *Client) CancelShipment(ctx context.Context, awb string) error {
	awb = strings.TrimSpace(awb)
	if awb == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "awb number is required")
	}
	return c.call(ctx, http.MethodPost, "/v1/shipments/cancel-shipment", map[string]string{"awb_number": awb}, c.cfg.ShipmentTimeout, nil)
}

// TrackShipment reads the current tracking state.
func (c *Client) TrackShipment(ctx context.Context, awb string) (*Tracking, error) {
	awb = strings.TrimSpace(awb)
	if awb == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "awb number is required")
	}
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/v1/shipments/track-shipment/"+url.PathEscape(awb), nil, c.cfg.AuthTimeout, &raw); err != nil {
		return nil, err
	}
	return &Tracking{Status: trackingStatus(raw), Raw: raw}, nil
}

// Couriers lists the carriers available to the account.
func (c *Client) Couriers(ctx context.Context) ([]Courier, error) {
	var out []Courier
	if err := c.call(ctx, http.MethodGet, "/v1/courier/get-courier", nil, c.cfg.ShipmentTimeout, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rates returns the provider's rate card for a lane unmodified.
func (c *Client) Rates(ctx context.Context, req RateRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/v1/courier/rate-serviceability", req, c.cfg.ShipmentTimeout, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// trackingStatus pulls a status string from the common tracking shapes.
func trackingStatus(raw json.RawMessage) string {
	var shape struct {
		Status        string `json:"status"`
		CurrentStatus string `json:"current_status"`
		ShipmentState string `json:"shipment_status"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return ""
	}
	for _, candidate := range []string{shape.CurrentStatus, shape.ShipmentState, shape.Status} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

type envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// call performs an authenticated request. A 401 drops the cached token and
// the request is retried exactly once with a fresh one.
func (c *Client) call(ctx context.Context, method, path string, body any, timeout time.Duration, dest any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	status, env, err := c.send(ctx, method, path, body, timeout, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		c.invalidate(token)
		if token, err = c.accessToken(ctx); err != nil {
			return err
		}
		if status, env, err = c.send(ctx, method, path, body, timeout, token); err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return pkgerrors.New(pkgerrors.CodeDependency, "logistics provider rejected a fresh token")
		}
	}
	if !env.Status {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = strings.TrimSpace(env.Error)
		}
		if msg == "" {
			msg = "request was not accepted"
		}
		return pkgerrors.New(pkgerrors.CodeDependency, "logistics provider: "+msg)
	}
	if dest == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode logistics response")
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, timeout time.Duration, token string) (int, *envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal logistics request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build logistics request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("logistics %s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return resp.StatusCode, nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"logistics provider: "+providerMessage(msg))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode logistics envelope")
	}
	return resp.StatusCode, &env, nil
}

// providerMessage surfaces the provider's own error text so callers can
// classify it.
func providerMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := strings.TrimSpace(env.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(env.Error); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return "request failed"
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"email": c.cfg.Email, "password": c.cfg.Password})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal logistics login")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build logistics login")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.clear()
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "logistics login")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.clear()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "logistics login failed")
	}

	var out struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.clear()
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode logistics login")
	}
	if out.Error != "" || out.AccessToken == "" {
		c.clear()
		return "", pkgerrors.New(pkgerrors.CodeDependency, "logistics login rejected: "+out.Error)
	}

	now := c.now()
	expiresAt := now.Add(tokenFallbackTTL)
	if exp, ok := tokenExpiry(out.AccessToken); ok {
		expiresAt = exp.Add(-tokenExpiryBuffer)
	}
	c.token = out.AccessToken
	c.expiresAt = expiresAt
	return out.AccessToken, nil
}

// tokenExpiry reads exp without verifying the signature; the provider is the
// only party that can verify it.
func tokenExpiry(raw string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}

func (c *Client) clear() {
	c.token = ""
	c.expiresAt = time.Time{}
}
