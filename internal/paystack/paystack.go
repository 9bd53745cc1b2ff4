package paystack

import (
	"context"
	"errors"
	"time"
)

// ErrGateway indicates the payment provider was unreachable or rejected the
// request. Callers surface it without partial ledger state.
var ErrGateway = errors.New("payment gateway error")

// SignatureHeader carries the HMAC-SHA512 webhook signature.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess is the only webhook event that drives crediting.
const EventChargeSuccess = "charge.success"

// Remote transaction statuses reported by the provider.
const (
	RemoteStatusSuccess = "success"
	RemoteStatusFailed  = "failed"
	RemoteStatusPending = "pending"
)

// Checkout is the provider's answer to a checkout initialization.
type Checkout struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// RemoteStatus is the provider's view of a transaction, used for manual
// status refresh.
type RemoteStatus struct {
	Status string
	PaidAt *time.Time
}

// WebhookEvent is the provider's event envelope as delivered to the webhook
// endpoint.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
		PaidAt    string `json:"paid_at"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
		Metadata map[string]any `json:"metadata,omitempty"`
	} `json:"data"`
}

// Gateway is the contract to the external payment provider. Treated as an
// unreliable, at-least-once-delivering system.
type Gateway interface {
	// Initialize creates a checkout session. The reference is not reserved
	// until this call returns.
	Initialize(ctx context.Context, email string, amount int64, metadata map[string]string) (Checkout, error)

	// Verify polls the provider for a transaction's current status.
	Verify(ctx context.Context, reference string) (RemoteStatus, error)

	// VerifySignature checks the webhook HMAC over the exact raw request
	// bytes. Any mismatch, missing header or missing body yields false.
	VerifySignature(payload []byte, signature string) bool
}
