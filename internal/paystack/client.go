package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Paystack REST API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
}

// NewClient builds a Paystack client. The timeout bounds every provider call.
func NewClient(baseURL, secretKey, webhookSecret string, timeout time.Duration) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
}

type initializeRequest struct {
	Email    string            `json:"email"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize creates a checkout session for the payer.
func (c *Client) Initialize(ctx context.Context, email string, amount int64, metadata map[string]string) (Checkout, error) {
	payload, err := json.Marshal(initializeRequest{Email: email, Amount: amount, Metadata: metadata})
	if err != nil {
		return Checkout{}, fmt.Errorf("encode initialize request: %w", err)
	}

	var out initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(payload), &out); err != nil {
		return Checkout{}, err
	}
	if !out.Status {
		return Checkout{}, fmt.Errorf("initialize transaction: %s: %w", out.Message, ErrGateway)
	}

	return Checkout{
		Reference:        out.Data.Reference,
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		PaidAt string `json:"paid_at"`
	} `json:"data"`
}

// Verify polls the provider for the transaction's current status.
func (c *Client) Verify(ctx context.Context, reference string) (RemoteStatus, error) {
	var out verifyResponse
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &out); err != nil {
		return RemoteStatus{}, err
	}
	if !out.Status {
		return RemoteStatus{}, fmt.Errorf("verify transaction: %s: %w", out.Message, ErrGateway)
	}

	status := RemoteStatus{Status: out.Data.Status}
	if out.Data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, out.Data.PaidAt); err == nil {
			utc := paidAt.UTC()
			status.PaidAt = &utc
		}
	}
	return status, nil
}

// VerifySignature computes HMAC-SHA512 over the exact raw payload bytes and
// compares constant-time against the hex signature header. It must never be
// handed re-serialized JSON: re-encoding parsed payloads changes the bytes
// and breaks verification.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if len(payload) == 0 || signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(payload)
	return hmac.Equal(provided, mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrGateway)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %v: %w", method, path, err, ErrGateway)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrGateway)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %v: %w", method, path, err, ErrGateway)
	}
	return nil
}
