package funding

import (
	"time"

	"github.com/naira-pay/naira_pay/internal/ledger"
)

type depositRequest struct {
	Amount int64 `json:"amount"`
}

type checkoutResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	Reused           bool   `json:"reused,omitempty"`
}

type transactionResponse struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	PaidAt    *time.Time        `json:"paid_at,omitempty"`
}

func toTransactionResponse(txn ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:        txn.ID,
		Amount:    txn.Amount,
		Type:      string(txn.Type),
		Status:    string(txn.Status),
		Reference: txn.Reference,
		Metadata:  txn.Metadata,
		CreatedAt: txn.CreatedAt,
		PaidAt:    txn.PaidAt,
	}
}
