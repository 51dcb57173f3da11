// Package payment integrates the Razorpay gateway: creating payment intents
// for checkout and verifying the completion signature the gateway hands back
// to the browser.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/oliveedge/oliveedge/config"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/http"
)

// Intent is the gateway-side order created before the payer completes
// payment. Amount is in minor currency units (paise for INR).
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client talks to the Razorpay Orders API.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
}

// New builds a client from the application config.
func New() *Client {
	return &Client{
		keyID:     config.RazorpayKeyID(),
		keySecret: config.RazorpayKeySecret(),
		baseURL:   config.RazorpayBaseURL(),
	}
}

// NewWithCredentials builds a client with explicit credentials. Used by tests
// and by tooling that talks to a sandbox account.
func NewWithCredentials(keyID, keySecret, baseURL string) *Client {
	return &Client{keyID: keyID, keySecret: keySecret, baseURL: baseURL}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateIntent registers a payment intent with the gateway. amount is in
// major currency units; the API takes minor units, so it is multiplied by
// 100 before the call. Transport or gateway failures surface as a Gateway
// error; there is no automatic retry — the caller resubmits checkout.
func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*Intent, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, apperr.Gateway(fmt.Errorf("razorpay credentials not configured"))
	}

	body := createOrderRequest{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  receipt,
	}

	resp, err := http.Post(c.baseURL+"/v1/orders").
		Header("Authorization", "Basic "+c.basicAuth()).
		Body(body).
		Timeout(10 * time.Second).
		WithContext(ctx).
		Send()
	if err != nil {
		return nil, apperr.Gateway(err)
	}
	if !resp.OK() {
		return nil, apperr.Gateway(fmt.Errorf("razorpay returned HTTP %d", resp.StatusCode))
	}

	var intent Intent
	if err := resp.JSON(&intent); err != nil {
		return nil, apperr.Gateway(err)
	}
	return &intent, nil
}

// VerifySignature recomputes the HMAC-SHA256 the gateway produced over
// "<gatewayOrderID>|<paymentID>" and compares it to the supplied signature
// in constant time. Returns true only on an exact match; every other path,
// including malformed input, fails closed.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return VerifySignature(gatewayOrderID, paymentID, signature, c.keySecret)
}

// VerifySignature is the core primitive, exported separately so it can be
// exercised without a configured client.
func VerifySignature(gatewayOrderID, paymentID, signature, secret string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant time; comparing hex strings of equal length
	// keeps the comparison independent of where a mismatch occurs.
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.keyID + ":" + c.keySecret))
}
