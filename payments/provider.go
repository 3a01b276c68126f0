package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	config "github.com/anjiri1684/edutech_marketplace/configs"
)

var (
	ErrProviderTimeout  = errors.New("payment provider timed out")
	ErrProviderFailure  = errors.New("payment provider request failed")
	ErrUnsupported      = errors.New("operation not supported by payment provider")
	ErrInvalidSignature = errors.New("invalid payment signature")
)

type IntentStatus string

const (
	StatusSucceeded  IntentStatus = "succeeded"
	StatusProcessing IntentStatus = "processing"
	StatusFailed     IntentStatus = "failed"
)

type IntentRequest struct {
	Amount      float64
	Currency    string
	Reference   string
	Description string
	Metadata    map[string]string
}

// Intent is a provider-side charge attempt. RawStatus keeps the provider's own
// wording for logs.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	RawStatus    string
	AmountMinor  int64
	Currency     string
}

type SubscriptionRequest struct {
	Email    string
	PriceID  string
	Metadata map[string]string
}

type Subscription struct {
	ID               string
	ClientSecret     string
	Status           string
	UnitAmount       float64
	CurrentPeriodEnd *time.Time
}

type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error)
}

// SignatureVerifier is implemented by providers whose checkout returns a
// signed (order, payment) pair to the client.
type SignatureVerifier interface {
	VerifySignature(orderID, paymentID, signature string) error
}

const (
	EventIntentUpdated       = "intent.updated"
	EventSubscriptionUpdated = "subscription.updated"
)

type WebhookEvent struct {
	Type         string
	IntentID     string
	Subscription *Subscription
}

// EventDecoder is implemented by providers that push signed webhooks.
type EventDecoder interface {
	DecodeEvent(payload []byte, signature string) (*WebhookEvent, error)
}

func New(cfg *config.AppConfig) (Provider, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is not set")
		}
		return NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.ProviderTimeout), nil
	case "razorpay":
		if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
			return nil, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
		}
		return NewRazorpayProvider(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.ProviderTimeout), nil
	case "midtrans":
		if cfg.MidtransServerKey == "" {
			return nil, errors.New("MIDTRANS_SERVER_KEY is not set")
		}
		return NewMidtransProvider(cfg.MidtransServerKey, cfg.MidtransProduction, cfg.ProviderTimeout), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

// ToMinorUnits converts a decimal amount to the provider's smallest currency
// unit (cents, paise).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderFailure, err)
}
