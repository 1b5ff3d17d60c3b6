package payment

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/audit"
	"github.com/darasahq/darasa/core/course"
)

// BackoffSchedule is the ordered wait between successive confirmation
// attempts, consumed by index; its length is the retry budget.
type BackoffSchedule []time.Duration

// DefaultBackoffSchedule matches the delays the admin UI and the audit
// trail readers already expect: 1s, then 5s, then 15s.
var DefaultBackoffSchedule = BackoffSchedule{1 * time.Second, 5 * time.Second, 15 * time.Second}

var sleepFunc = time.Sleep // mockable

const (
	errNotRetriable    = "payment intent not retriable"
	errRetryInProgress = "a retry sequence is already in progress for this payment intent"
	errRetryExhausted  = "payment confirmation retries exhausted"
)

type (
	// Enroller grants course access once a session is confirmed paid.
	Enroller interface {
		Enroll(userID, courseID string) (course.Enrollment, error)
	}

	// Coordinator drives bounded payment-confirmation retries and records
	// every decision point in the audit trail. Public operations never
	// return an error; all outcomes are tagged Results.
	Coordinator struct {
		client   Client
		sink     audit.Sink
		schedule BackoffSchedule
		logger   core.Logger

		// optional collaborators
		mailSvc    core.EmailService
		enroller   Enroller
		adminEmail string

		inflight sync.Map // intent id -> struct{}
	}

	CoordinatorDeps struct {
		Client     Client
		Sink       audit.Sink
		Schedule   BackoffSchedule // nil means DefaultBackoffSchedule
		Logger     core.Logger
		MailSvc    core.EmailService
		Enroller   Enroller
		AdminEmail string
	}
)

func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	schedule := deps.Schedule
	if schedule == nil {
		schedule = DefaultBackoffSchedule
	}
	return &Coordinator{
		client:     deps.Client,
		sink:       deps.Sink,
		schedule:   schedule,
		logger:     deps.Logger,
		mailSvc:    deps.MailSvc,
		enroller:   deps.Enroller,
		adminEmail: deps.AdminEmail,
	}
}

// HandleFailedPayment drives the retry state machine for one payment intent.
// Only an intent in "requires_payment_method" enters the machine; anything
// else is terminal as-is. Each failed confirmation logs one RETRY_ATTEMPT and
// suspends for the schedule delay of that attempt; the budget is the
// schedule length. Blocks the calling goroutine for up to the schedule sum.
func (c *Coordinator) HandleFailedPayment(ctx context.Context, intentID string) Result {
	if _, loaded := c.inflight.LoadOrStore(intentID, struct{}{}); loaded {
		c.append(audit.EventPaymentFailure, map[string]interface{}{
			"payment_intent_id": intentID,
			"reason":            "retry already in progress",
		})
		return Result{Success: false, Error: errRetryInProgress}
	}
	defer c.inflight.Delete(intentID)

	intent, err := c.client.GetPaymentIntent(ctx, intentID)
	if err != nil {
		c.append(audit.EventRetryError, map[string]interface{}{
			"payment_intent_id": intentID,
			"error":             err.Error(),
		})
		return Result{Success: false, Error: fmt.Sprintf("fetching payment intent: %v", err)}
	}

	if intent.Status != IntentStatusRequiresPaymentMethod {
		c.append(audit.EventPaymentFailure, map[string]interface{}{
			"payment_intent_id": intentID,
			"status":            intent.Status,
			"reason":            errNotRetriable,
		})
		return Result{Success: false, Error: errNotRetriable}
	}

	maxRetries := len(c.schedule)
	for attempt := 0; attempt < maxRetries; attempt++ {
		confirmed, err := c.client.ConfirmPaymentIntent(ctx, intentID)
		if err != nil {
			c.append(audit.EventRetryError, map[string]interface{}{
				"payment_intent_id": intentID,
				"attempt":           attempt + 1,
				"error":             err.Error(),
			})
			return Result{Success: false, Error: fmt.Sprintf("confirming payment intent: %v", err)}
		}
		if confirmed.Status == IntentStatusSucceeded {
			c.append(audit.EventPaymentSuccess, map[string]interface{}{
				"payment_intent_id": intentID,
				"attempt":           attempt + 1,
			})
			return Result{Success: true, PaymentIntent: &confirmed}
		}

		c.append(audit.EventRetryAttempt, map[string]interface{}{
			"payment_intent_id": intentID,
			"attempt":           attempt + 1,
			"status":            confirmed.Status,
			"last_error":        confirmed.LastError,
		})
		sleepFunc(c.schedule[attempt])
	}

	c.append(audit.EventRetryExhausted, map[string]interface{}{
		"payment_intent_id": intentID,
		"attempts":          maxRetries,
	})
	c.notifyExhausted(intentID)
	return Result{Success: false, Error: errRetryExhausted}
}

// HandleWebhookFailure classifies a provider webhook; only payment-failure
// events enter the retry machine, every other type is reported unhandled.
func (c *Coordinator) HandleWebhookFailure(ctx context.Context, event WebhookEvent) Result {
	c.append(audit.EventWebhookEvent, map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	switch event.Type {
	case EventTypePaymentFailed:
		if event.IntentID == "" {
			c.append(audit.EventWebhookFailure, map[string]interface{}{
				"event_id": event.ID,
				"reason":   "missing payment intent id",
			})
			return Result{Success: false, Error: "webhook event missing payment intent id"}
		}
		return c.HandleFailedPayment(ctx, event.IntentID)
	default:
		return Result{Success: false, Error: "unhandled event type: " + event.Type}
	}
}

// ValidatePaymentSession reads the remote checkout session once. A paid
// session succeeds immediately; an unpaid session with an intent delegates
// to the retry machine. Remote-call errors are caught, logged as
// SESSION_VALIDATION_ERROR and returned as failures.
func (c *Coordinator) ValidatePaymentSession(ctx context.Context, sessionID string) Result {
	sess, err := c.client.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		c.append(audit.EventSessionValidationError, map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return Result{Success: false, Error: fmt.Sprintf("validating session: %v", err)}
	}

	switch {
	case sess.PaymentStatus == SessionStatusPaid:
		c.append(audit.EventPaymentSuccess, map[string]interface{}{
			"session_id":        sess.ID,
			"payment_intent_id": sess.PaymentIntentID,
		})
		c.grantEnrollment(sess)
		return Result{Success: true, Session: &sess}
	case sess.PaymentStatus == SessionStatusUnpaid && sess.PaymentIntentID != "":
		return c.HandleFailedPayment(ctx, sess.PaymentIntentID)
	default:
		c.append(audit.EventPaymentFailure, map[string]interface{}{
			"session_id": sess.ID,
			"status":     sess.PaymentStatus,
			"reason":     "invalid session payment status",
		})
		return Result{Success: false, Error: "invalid session payment status: " + sess.PaymentStatus}
	}
}

// append records one audit entry; a sink failure is logged, never surfaced.
func (c *Coordinator) append(eventType string, payload interface{}) {
	if err := c.sink.Append(audit.NewEntry(eventType, payload)); err != nil && c.logger != nil {
		c.logger.Warn("appending payment audit entry", err)
	}
}

// grantEnrollment activates the enrollment a paid session was for and sends
// the receipt. Fire-and-forget; the validation result does not wait on it.
func (c *Coordinator) grantEnrollment(sess Session) {
	userID, courseID := sess.Metadata[MetaUserID], sess.Metadata[MetaCourseID]
	if c.enroller == nil || userID == "" || courseID == "" {
		return
	}
	go func() {
		if _, err := c.enroller.Enroll(userID, courseID); err != nil {
			if c.logger != nil {
				c.logger.Error("enrolling after paid session", err)
			}
			return
		}
		c.sendReceipt(sess)
	}()
}

func (c *Coordinator) sendReceipt(sess Session) {
	if c.mailSvc == nil || sess.CustomerEmail == "" {
		return
	}
	c.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: sess.CustomerEmail}},
		Subject: "Your course enrollment is confirmed",
		BodyStr: fmt.Sprintf(
			"Thank you for your purchase!\n\nAmount: %s\nReference: %s\n\nYour course is now available in your dashboard.",
			core.FmtPrice(sess.AmountTotal, sess.Currency), sess.ID,
		),
	})
}

func (c *Coordinator) notifyExhausted(intentID string) {
	if c.mailSvc == nil || c.adminEmail == "" {
		return
	}
	c.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: c.adminEmail}},
		Subject: "Payment retries exhausted",
		BodyStr: fmt.Sprintf(
			"All confirmation retries failed for payment intent %s. The customer has not been charged; manual follow-up may be needed.",
			intentID,
		),
	})
}
