// Package paymentstest provides an in-memory payments.Provider for tests.
package paymentstest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anjiri1684/edutech_marketplace/payments"
)

const WebhookSecret = "whsec_test"

// Provider records every call and reports whatever status a test scripts
// with SetStatus. New intents start out processing.
type Provider struct {
	mu sync.Mutex

	intents map[string]*payments.Intent
	seq     int

	Created       []payments.IntentRequest
	RetrieveCalls int

	CreateErr   error
	RetrieveErr error
	// Unsupported makes CreateSubscription fail the way non-Stripe providers do.
	Unsupported bool
}

func New() *Provider {
	return &Provider{intents: map[string]*payments.Intent{}}
}

func (p *Provider) Name() string { return "test" }

func (p *Provider) CreateIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.seq++
	id := fmt.Sprintf("pi_test_%d", p.seq)
	intent := &payments.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       payments.StatusProcessing,
		RawStatus:    "requires_payment_method",
		AmountMinor:  payments.ToMinorUnits(req.Amount),
		Currency:     req.Currency,
	}
	p.intents[id] = intent
	p.Created = append(p.Created, req)

	out := *intent
	return &out, nil
}

func (p *Provider) RetrieveIntent(ctx context.Context, id string) (*payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.RetrieveCalls++
	if p.RetrieveErr != nil {
		return nil, p.RetrieveErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrProviderTimeout, err)
	}
	intent, ok := p.intents[id]
	if !ok {
		return nil, fmt.Errorf("%w: no such intent %s", payments.ErrProviderFailure, id)
	}
	out := *intent
	return &out, nil
}

func (p *Provider) CreateSubscription(_ context.Context, req payments.SubscriptionRequest) (*payments.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Unsupported {
		return nil, fmt.Errorf("%w: test provider", payments.ErrUnsupported)
	}
	p.seq++
	id := fmt.Sprintf("sub_test_%d", p.seq)
	return &payments.Subscription{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "incomplete",
		UnitAmount:   29,
	}, nil
}

// SetStatus scripts the status the next RetrieveIntent reports. Unknown ids
// are registered, so tests can seed intents created elsewhere.
func (p *Provider) SetStatus(id string, status payments.IntentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		intent = &payments.Intent{ID: id}
		p.intents[id] = intent
	}
	intent.Status = status
	intent.RawStatus = string(status)
}

// Signature returns the signature VerifySignature accepts for the pair.
func Signature(orderID, paymentID string) string {
	return "sig_" + orderID + "_" + paymentID
}

func (p *Provider) VerifySignature(orderID, paymentID, signature string) error {
	if signature != Signature(orderID, paymentID) {
		return payments.ErrInvalidSignature
	}
	return nil
}

// DecodeEvent accepts a JSON encoded payments.WebhookEvent signed with
// WebhookSecret.
func (p *Provider) DecodeEvent(payload []byte, signature string) (*payments.WebhookEvent, error) {
	if signature != WebhookSecret {
		return nil, payments.ErrInvalidSignature
	}
	var event payments.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

var (
	_ payments.Provider          = (*Provider)(nil)
	_ payments.SignatureVerifier = (*Provider)(nil)
	_ payments.EventDecoder      = (*Provider)(nil)
)
