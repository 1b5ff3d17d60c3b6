package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/payment"
)

type paymentApi struct {
	coord *payment.Coordinator
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, coord *payment.Coordinator) {
	api := paymentApi{coord: coord}

	pg := g.Group("/payments")
	pg.POST("/webhook", api.webhook)
	pg.GET("/verify-session/:sessionId", api.verifySession, jwt)
}

// webhook receives raw provider payloads. With a webhook secret configured
// the signature is verified before anything is parsed; without one (local
// dev, tests) the body is trusted as-is. The provider only needs a 2xx, so
// the coordinator's result rides along in the response body.
func (api *paymentApi) webhook(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}

	event, err := parseWebhookEvent(body, ctx.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	res := api.coord.HandleWebhookFailure(ctx.Request().Context(), event)
	return ctx.JSON(http.StatusOK, res)
}

func (api *paymentApi) verifySession(ctx echo.Context) error {
	res := api.coord.ValidatePaymentSession(ctx.Request().Context(), ctx.Param("sessionId"))
	return ctx.JSON(http.StatusOK, res)
}

func parseWebhookEvent(body []byte, sigHeader string) (payment.WebhookEvent, error) {
	if secret := core.Conf.Stripe.WebhookSecret; secret != "" {
		evt, err := webhook.ConstructEvent(body, sigHeader, secret)
		if err != nil {
			return payment.WebhookEvent{}, errors.Wrap(err, "verifying webhook signature")
		}
		var intentID string
		if id, ok := evt.Data.Object["id"].(string); ok {
			intentID = id
		}
		return payment.WebhookEvent{
			ID:       evt.ID,
			Type:     string(evt.Type),
			IntentID: intentID,
			Raw:      body,
		}, nil
	}

	// unsigned payload; same shape as the provider's
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return payment.WebhookEvent{}, errors.Wrap(err, "unmarshalling webhook payload")
	}
	return payment.WebhookEvent{
		ID:       raw.ID,
		Type:     raw.Type,
		IntentID: raw.Data.Object.ID,
		Raw:      body,
	}, nil
}
