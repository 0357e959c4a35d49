package service

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// PaymentIntentInfo is the provider-agnostic view of a payment intent.
type PaymentIntentInfo struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       string
	Succeeded    bool
}

// PaymentGateway abstracts the payment provider so checkout logic can be
// tested without network calls.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*PaymentIntentInfo, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntentInfo, error)
}

// StripeGateway implements PaymentGateway against the Stripe API. The key is
// scoped to this instance instead of the package-global stripe.Key.
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway constructs a gateway with its own API client.
func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, logger: logger}
}

// CreateIntent opens a payment intent for the given amount in minor units.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*PaymentIntentInfo, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	g.logger.Debug("payment intent created", zap.String("intent_id", intent.ID), zap.Int64("amount", amountMinor))
	return intentInfo(intent), nil
}

// RetrieveIntent fetches the current state of a payment intent.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*PaymentIntentInfo, error) {
	intent, err := g.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return intentInfo(intent), nil
}

func intentInfo(intent *stripe.PaymentIntent) *PaymentIntentInfo {
	return &PaymentIntentInfo{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
		Succeeded:    intent.Status == stripe.PaymentIntentStatusSucceeded,
	}
}
