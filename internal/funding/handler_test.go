package funding

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/logging"
	"github.com/naira-pay/naira_pay/internal/paystack"
)

func webhookApp(f fixture) *fiber.App {
	handler := NewHandler(f.svc, f.gateway, logging.Discard())
	app := fiber.New()
	app.Post("/webhooks/paystack", handler.Webhook)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, body, signature string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/paystack", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func chargeSuccessBody(reference string, amount int64) string {
	return fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d,"status":"success","paid_at":"2026-08-31T12:00:00Z"}}`, reference, amount)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	app := webhookApp(f)

	status := postWebhook(t, app, chargeSuccessBody("ref-1", 50000), "tampered")
	require.Equal(t, fiber.StatusUnauthorized, status)

	status = postWebhook(t, app, chargeSuccessBody("ref-1", 50000), "")
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWebhookSettlesDeposit(t *testing.T) {
	f := newFixture(t)
	app := webhookApp(f)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)

	status := postWebhook(t, app, chargeSuccessBody(checkout.Reference, 50000), "valid")
	require.Equal(t, fiber.StatusOK, status)

	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance)

	// Redelivery acknowledges without double crediting.
	status = postWebhook(t, app, chargeSuccessBody(checkout.Reference, 50000), "valid")
	require.Equal(t, fiber.StatusOK, status)

	w, err = f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	app := webhookApp(f)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"event":"charge.dispute.create","data":{"reference":%q,"amount":50000}}`, checkout.Reference)
	status := postWebhook(t, app, body, "valid")
	require.Equal(t, fiber.StatusOK, status)

	txn, err := f.store.FindByReference(ctx, checkout.Reference)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPending, txn.Status)
}

func TestWebhookAcknowledgesUnknownReference(t *testing.T) {
	f := newFixture(t)
	app := webhookApp(f)

	status := postWebhook(t, app, chargeSuccessBody("never-seen", 50000), "valid")
	require.Equal(t, fiber.StatusOK, status)
}

func TestWebhookAcknowledgesMalformedBody(t *testing.T) {
	f := newFixture(t)
	app := webhookApp(f)

	status := postWebhook(t, app, `{"event":`, "valid")
	require.Equal(t, fiber.StatusOK, status)
}
