package paymentsvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/payment"
)

// stripeClient adapts the Stripe SDK to the coordinator's payment.Client.
type stripeClient struct {
	api *client.API
}

var _ payment.Client = (*stripeClient)(nil)

func NewStripeClient(conf *core.Config) *stripeClient {
	api := &client.API{}
	api.Init(conf.Stripe.SecretKey, nil)
	return &stripeClient{api: api}
}

func (c *stripeClient) GetPaymentIntent(ctx context.Context, id string) (payment.Intent, error) {
	pi, err := c.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return payment.Intent{}, errors.Wrap(err, "stripe: getting payment intent")
	}
	return unmarshalIntent(pi), nil
}

func (c *stripeClient) ConfirmPaymentIntent(ctx context.Context, id string) (payment.Intent, error) {
	pi, err := c.api.PaymentIntents.Confirm(id, &stripe.PaymentIntentConfirmParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return payment.Intent{}, errors.Wrap(err, "stripe: confirming payment intent")
	}
	return unmarshalIntent(pi), nil
}

func (c *stripeClient) GetCheckoutSession(ctx context.Context, id string) (payment.Session, error) {
	sess, err := c.api.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return payment.Session{}, errors.Wrap(err, "stripe: getting checkout session")
	}

	out := payment.Session{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

func unmarshalIntent(pi *stripe.PaymentIntent) payment.Intent {
	intent := payment.Intent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		intent.LastError = pi.LastPaymentError.Msg
	}
	return intent
}
