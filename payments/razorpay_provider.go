package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayProvider talks to the Razorpay orders API. An order plays the role
// of a payment intent; its id is returned to the client as the checkout key.
type RazorpayProvider struct {
	client    *resty.Client
	keySecret string
}

type razorpayOrder struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func NewRazorpayProvider(keyID, keySecret string, timeout time.Duration) *RazorpayProvider {
	return newRazorpayProvider(razorpayBaseURL, keyID, keySecret, timeout)
}

func newRazorpayProvider(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &RazorpayProvider{client: client, keySecret: keySecret}
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

func (p *RazorpayProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	body := map[string]interface{}{
		"amount":   ToMinorUnits(req.Amount),
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.Reference,
	}
	if len(req.Metadata) > 0 {
		body["notes"] = req.Metadata
	}

	var order razorpayOrder
	var apiErr razorpayError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&order).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		return nil, classify(err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: razorpay returned %d: %s", ErrProviderFailure, resp.StatusCode(), apiErr.Error.Description)
	}
	return razorpayIntent(&order), nil
}

func (p *RazorpayProvider) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	var order razorpayOrder
	var apiErr razorpayError
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&order).
		SetError(&apiErr).
		Get("/orders/{id}")
	if err != nil {
		return nil, classify(err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: razorpay returned %d: %s", ErrProviderFailure, resp.StatusCode(), apiErr.Error.Description)
	}
	return razorpayIntent(&order), nil
}

func (p *RazorpayProvider) CreateSubscription(context.Context, SubscriptionRequest) (*Subscription, error) {
	return nil, fmt.Errorf("%w: razorpay subscriptions", ErrUnsupported)
}

// VerifySignature checks the checkout callback signature, an HMAC-SHA256 of
// "order_id|payment_id" keyed with the API secret.
func (p *RazorpayProvider) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(p.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func razorpayIntent(order *razorpayOrder) *Intent {
	return &Intent{
		ID:           order.ID,
		ClientSecret: order.ID,
		Status:       razorpayStatus(order.Status),
		RawStatus:    order.Status,
		AmountMinor:  order.Amount,
		Currency:     strings.ToLower(order.Currency),
	}
}

func razorpayStatus(s string) IntentStatus {
	switch s {
	case "paid":
		return StatusSucceeded
	case "created", "attempted":
		return StatusProcessing
	default:
		return StatusFailed
	}
}
