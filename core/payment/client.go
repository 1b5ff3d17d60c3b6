package payment

import (
	"context"
	"encoding/json"
)

// Remote payment-intent statuses this app cares about. The provider owns
// the full state machine; the coordinator only polls/drives it.
const (
	IntentStatusSucceeded             = "succeeded"
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
)

// Checkout session payment statuses.
const (
	SessionStatusPaid   = "paid"
	SessionStatusUnpaid = "unpaid"
)

// Webhook event types.
const (
	EventTypePaymentFailed = "payment_intent.payment_failed"
)

// Session metadata keys set at checkout-session creation time.
const (
	MetaUserID   = "user_id"
	MetaCourseID = "course_id"
)

type (
	// Intent mirrors the provider's payment intent.
	Intent struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		LastError string `json:"last_error,omitempty"`
	}

	// Session mirrors the provider's checkout session.
	Session struct {
		ID              string            `json:"id"`
		PaymentStatus   string            `json:"payment_status"`
		PaymentIntentID string            `json:"payment_intent_id,omitempty"`
		CustomerEmail   string            `json:"customer_email,omitempty"`
		AmountTotal     int64             `json:"amount_total"`
		Currency        string            `json:"currency"`
		Metadata        map[string]string `json:"metadata,omitempty"`
	}

	// WebhookEvent is one provider webhook delivery, signature-verified upstream.
	WebhookEvent struct {
		ID       string          `json:"id"`
		Type     string          `json:"type"`
		IntentID string          `json:"intent_id,omitempty"`
		Raw      json.RawMessage `json:"raw,omitempty"`
	}

	// Client is the remote payment provider surface the coordinator drives.
	Client interface {
		GetPaymentIntent(ctx context.Context, id string) (Intent, error)
		ConfirmPaymentIntent(ctx context.Context, id string) (Intent, error)
		GetCheckoutSession(ctx context.Context, id string) (Session, error)
	}
)

// Result is the tagged outcome of every coordinator operation; no error
// ever escapes the public operations.
type Result struct {
	Success       bool     `json:"success"`
	PaymentIntent *Intent  `json:"payment_intent,omitempty"`
	Session       *Session `json:"session,omitempty"`
	Error         string   `json:"error,omitempty"`
}
