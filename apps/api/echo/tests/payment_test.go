package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/darasahq/darasa/core/payment"
	"github.com/darasahq/darasa/core/user"
)

func postWebhook(t *testing.T, body string) (int, payment.Result) {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", []byte(body))
	app.ServeHTTP(rec, req)

	var res payment.Result
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling result: %v", err)
		}
	}
	return rec.Code, res
}

func TestPaymentWebhook(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid webhook payload"})}
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", []byte("not json"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unhandled event type", func(t *testing.T) {
		code, res := postWebhook(t, `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
		if code != http.StatusOK {
			t.Fatalf("code = %v; want %v", code, http.StatusOK)
		}
		if res.Success {
			t.Error("expected failure result")
		}
		if want := "unhandled event type: checkout.session.completed"; res.Error != want {
			t.Errorf("error = %q; want %q", res.Error, want)
		}
	})

	t.Run("failure event missing intent id", func(t *testing.T) {
		code, res := postWebhook(t, `{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{}}}`)
		if code != http.StatusOK {
			t.Fatalf("code = %v; want %v", code, http.StatusOK)
		}
		if res.Success || res.Error != "webhook event missing payment intent id" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("non-retriable intent", func(t *testing.T) {
		payClient.intents["pi_done"] = payment.Intent{ID: "pi_done", Status: payment.IntentStatusSucceeded}

		_, res := postWebhook(t, `{"id":"evt_3","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_done"}}}`)
		if res.Success || res.Error != "payment intent not retriable" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("retries until confirmation succeeds", func(t *testing.T) {
		payClient.intents["pi_retry"] = payment.Intent{ID: "pi_retry", Status: payment.IntentStatusRequiresPaymentMethod}
		payClient.failAttempts["pi_retry"] = 1

		_, res := postWebhook(t, `{"id":"evt_4","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_retry"}}}`)
		if !res.Success {
			t.Fatalf("expected success; got %+v", res)
		}
		if res.PaymentIntent == nil || res.PaymentIntent.Status != payment.IntentStatusSucceeded {
			t.Errorf("unexpected payment intent %+v", res.PaymentIntent)
		}
	})
}

func TestPaymentVerifySession(t *testing.T) {
	buyer := createUser(t, "Nina Simone", "nina.simone", "nina@darasa.cd", "Feeling Good", []string{user.RoleStudent})
	crs, _ := createCourseWithLesson(t, "Vocal Jazz")

	verify := func(t *testing.T, sessionID, token string) (int, payment.Result) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/payments/verify-session/"+sessionID, token)
		app.ServeHTTP(rec, req)

		var res payment.Result
		if rec.Code == http.StatusOK {
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("unmarshalling result: %v", err)
			}
		}
		return rec.Code, res
	}

	t.Run("anonymous", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/payments/verify-session/cs_whatever")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, res := verify(t, "cs_unknown", getToken(t, buyer))
		if res.Success || !strings.HasPrefix(res.Error, "validating session:") {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("invalid payment status", func(t *testing.T) {
		payClient.sessions["cs_void"] = payment.Session{ID: "cs_void", PaymentStatus: "expired"}

		_, res := verify(t, "cs_void", getToken(t, buyer))
		if res.Success || res.Error != "invalid session payment status: expired" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("unpaid session delegates to retries", func(t *testing.T) {
		payClient.intents["pi_sess"] = payment.Intent{ID: "pi_sess", Status: payment.IntentStatusRequiresPaymentMethod}
		payClient.sessions["cs_unpaid"] = payment.Session{
			ID:              "cs_unpaid",
			PaymentStatus:   payment.SessionStatusUnpaid,
			PaymentIntentID: "pi_sess",
		}

		_, res := verify(t, "cs_unpaid", getToken(t, buyer))
		if !res.Success {
			t.Fatalf("expected success; got %+v", res)
		}
	})

	t.Run("paid session grants enrollment", func(t *testing.T) {
		payClient.sessions["cs_paid"] = payment.Session{
			ID:            "cs_paid",
			PaymentStatus: payment.SessionStatusPaid,
			CustomerEmail: buyer.Email,
			AmountTotal:   4999,
			Currency:      "usd",
			Metadata: map[string]string{
				"user_id":   buyer.ID,
				"course_id": crs.ID,
			},
		}

		code, res := verify(t, "cs_paid", getToken(t, buyer))
		if code != http.StatusOK || !res.Success {
			t.Fatalf("code = %v, result %+v", code, res)
		}
		if res.Session == nil || res.Session.ID != "cs_paid" {
			t.Errorf("unexpected session %+v", res.Session)
		}

		// enrollment is granted in the background
		deadline := time.Now().Add(2 * time.Second)
		for {
			enrolled, err := crsSvc.IsEnrolled(buyer.ID, crs.ID)
			if err != nil {
				t.Fatalf("checking enrollment: %v", err)
			}
			if enrolled {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("enrollment was not granted")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}
