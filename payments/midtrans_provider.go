package payments

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

const (
	midtransSandboxStatusURL    = "https://api.sandbox.midtrans.com/v2"
	midtransProductionStatusURL = "https://api.midtrans.com/v2"
)

// MidtransProvider creates Snap transactions and polls the core status API.
// Midtrans charges IDR in whole units, so amounts are not scaled.
type MidtransProvider struct {
	snap   snap.Client
	status *resty.Client
}

type midtransStatus struct {
	StatusCode        string `json:"status_code"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	GrossAmount       string `json:"gross_amount"`
	Currency          string `json:"currency"`
}

func NewMidtransProvider(serverKey string, production bool, timeout time.Duration) *MidtransProvider {
	env := midtrans.Sandbox
	baseURL := midtransSandboxStatusURL
	if production {
		env = midtrans.Production
		baseURL = midtransProductionStatusURL
	}
	return newMidtransProvider(serverKey, env, baseURL, timeout)
}

func newMidtransProvider(serverKey string, env midtrans.EnvironmentType, statusURL string, timeout time.Duration) *MidtransProvider {
	p := &MidtransProvider{
		status: resty.New().
			SetBaseURL(statusURL).
			SetBasicAuth(serverKey, "").
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
	p.snap.New(serverKey, env)
	return p
}

func (p *MidtransProvider) Name() string { return "midtrans" }

type snapResult struct {
	resp *snap.Response
	err  *midtrans.Error
}

// itemName trims a description to the 50 characters Snap accepts for an
// item name.
func itemName(description string) string {
	const maxLen = 50
	runes := []rune(description)
	if len(runes) <= maxLen {
		return description
	}
	return string(runes[:maxLen])
}

func (p *MidtransProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Reference == "" {
		return nil, fmt.Errorf("%w: midtrans needs an order reference", ErrProviderFailure)
	}
	gross := int64(math.Round(req.Amount))
	name := itemName(req.Description)
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{
			{ID: req.Reference, Name: name, Price: gross, Qty: 1},
		},
	}

	// the snap client has no context support; the call is abandoned on ctx expiry
	done := make(chan snapResult, 1)
	go func() {
		resp, err := p.snap.CreateTransaction(snapReq)
		done <- snapResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, classify(ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s", ErrProviderFailure, res.err.Error())
		}
		return &Intent{
			ID:           req.Reference,
			ClientSecret: res.resp.Token,
			Status:       StatusProcessing,
			RawStatus:    "pending",
			AmountMinor:  gross,
			Currency:     "idr",
		}, nil
	}
}

func (p *MidtransProvider) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	var st midtransStatus
	resp, err := p.status.R().
		SetContext(ctx).
		SetPathParam("order", id).
		SetResult(&st).
		Get("/{order}/status")
	if err != nil {
		return nil, classify(err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: midtrans returned %d", ErrProviderFailure, resp.StatusCode())
	}

	// 404 in the body means the customer has not picked a payment method yet
	if st.StatusCode == "404" {
		return &Intent{ID: id, Status: StatusProcessing, RawStatus: "not_found"}, nil
	}
	return &Intent{
		ID:        id,
		Status:    midtransIntentStatus(st.TransactionStatus, st.FraudStatus),
		RawStatus: st.TransactionStatus,
		Currency:  "idr",
	}, nil
}

func (p *MidtransProvider) CreateSubscription(context.Context, SubscriptionRequest) (*Subscription, error) {
	return nil, fmt.Errorf("%w: midtrans subscriptions", ErrUnsupported)
}

func midtransIntentStatus(transactionStatus, fraudStatus string) IntentStatus {
	switch transactionStatus {
	case "settlement":
		return StatusSucceeded
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return StatusSucceeded
		}
		return StatusProcessing
	case "pending":
		return StatusProcessing
	default:
		return StatusFailed
	}
}
