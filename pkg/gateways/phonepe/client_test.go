package phonepe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(Config{
		AuthURL:          "http://phonepe.test/oauth/token",
		BaseURL:          "http://phonepe.test/pg",
		ClientID:         "client",
		ClientSecret:     "secret",
		CallbackUsername: "hook",
		CallbackPassword: "pass",
	}, WithHTTPClient(&http.Client{Transport: rt}), WithClock(func() time.Time {
		return time.Unix(1_700_000_000, 0)
	}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewMerchantOrderIDFormat(t *testing.T) {
	id := NewMerchantOrderID(time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC))
	if !regexp.MustCompile(`^txn20260309140507[0-9A-F]{8}$`).MatchString(id) {
		t.Fatalf("unexpected merchant order id %q", id)
	}
}

func TestPayCachesTokenAndSendsPaise(t *testing.T) {
	tokenCalls := 0
	var payBody map[string]any
	var authHeader string

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/oauth/token":
			tokenCalls++
			if err := req.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if req.PostForm.Get("grant_type") != "client_credentials" {
				t.Fatalf("unexpected grant type %q", req.PostForm.Get("grant_type"))
			}
			return jsonResponse(http.StatusOK, `{"access_token":"tok-1","expires_at":1700003600}`), nil
		case "/pg/checkout/v2/pay":
			authHeader = req.Header.Get("Authorization")
			raw, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(raw, &payBody); err != nil {
				t.Fatalf("unmarshal pay body: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"orderId":"OMO1","state":"PENDING","redirectUrl":"https://pay.test/OMO1"}`), nil
		case "/pg/checkout/v2/order/txn1/status":
			return jsonResponse(http.StatusOK, `{"orderId":"OMO1","state":"COMPLETED","amount":21000,"paymentDetails":[{"transactionId":"T1","paymentMode":"UPI_COLLECT","state":"COMPLETED","rail":{"type":"UPI","utr":"UTR123","vpa":"priya@upi"}}]}`), nil
		}
		t.Fatalf("unexpected path %s", req.URL.Path)
		return nil, nil
	})

	resp, err := client.Pay(context.Background(), PayRequest{MerchantOrderID: "txn1", AmountPaise: 21000, RedirectURL: "https://bazaar.test/return"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if resp.RedirectURL != "https://pay.test/OMO1" {
		t.Fatalf("unexpected redirect %q", resp.RedirectURL)
	}
	if authHeader != "O-Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", authHeader)
	}
	if payBody["amount"] != float64(21000) {
		t.Fatalf("expected amount in paise, got %v", payBody["amount"])
	}

	status, err := client.OrderStatus(context.Background(), "txn1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != "COMPLETED" || status.MerchantOrderID != "txn1" {
		t.Fatalf("unexpected status %+v", status)
	}
	if attempt := status.LatestAttempt(); attempt == nil || attempt.Rail.UTR != "UTR123" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected token to be cached, got %d token calls", tokenCalls)
	}
}

func TestUnauthorizedResponseDropsToken(t *testing.T) {
	tokenCalls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/oauth/token" {
			tokenCalls++
			return jsonResponse(http.StatusOK, `{"access_token":"tok","expires_at":1700003600}`), nil
		}
		return jsonResponse(http.StatusUnauthorized, `{"code":"UNAUTHORIZED"}`), nil
	})

	_, err := client.OrderStatus(context.Background(), "txn1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	_, _ = client.OrderStatus(context.Background(), "txn1")
	if tokenCalls != 2 {
		t.Fatalf("expected token refresh after 401, got %d calls", tokenCalls)
	}
}

func TestVerifyCallback(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("no http call expected")
		return nil, nil
	})
	sum := sha256.Sum256([]byte("hook:pass"))
	header := hex.EncodeToString(sum[:])
	body := []byte(`{"event":"checkout.order.completed","payload":{"merchantOrderId":"txn1","state":"COMPLETED"}}`)

	event, err := client.VerifyCallback(header, body)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if event.Payload.MerchantOrderID != "txn1" || event.Payload.State != "COMPLETED" {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := client.VerifyCallback("deadbeef", body); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
