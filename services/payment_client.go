// services/payment_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// TransferRequest asks the settlement side to send Amount to Recipient.
// Reference is the bounty id and doubles as the idempotency key.
type TransferRequest struct {
	Recipient string
	Amount    float64
	Reference string
}

type TransferReceipt struct {
	TransactionRef string `json:"transaction_ref"`
	Simulated      bool   `json:"simulated,omitempty"`
}

// PaymentGateway moves a bounty reward to the winner's identity.
type PaymentGateway interface {
	Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error)
}

// SimulatedGateway is the fallback wallet used where no live settlement
// exists: every transfer succeeds and is only logged.
type SimulatedGateway struct{}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{}
}

func (g *SimulatedGateway) Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	if err := ctx.Err(); err != nil {
		return TransferReceipt{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	ref := "sim-" + uuid.NewString()
	log.Printf("💸 [Payment] Simulated sending %v to %s (bounty %s, ref %s)", req.Amount, req.Recipient, req.Reference, ref)
	return TransferReceipt{TransactionRef: ref, Simulated: true}, nil
}

// HTTPGateway calls an external settlement service.
type HTTPGateway struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPGateway builds a client limited to ratePerSec transfers per second
// (<= 0 disables the limit). Per-call deadlines come from the caller's ctx.
func NewHTTPGateway(baseURL, token string, ratePerSec float64) *HTTPGateway {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (g *HTTPGateway) Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return TransferReceipt{}, fmt.Errorf("%w: rate limiter: %v", ErrPaymentFailed, err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"recipient": req.Recipient,
		"amount":    req.Amount,
		"reference": req.Reference,
	})
	if err != nil {
		return TransferReceipt{}, fmt.Errorf("%w: encode request: %v", ErrPaymentFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return TransferReceipt{}, fmt.Errorf("%w: create request: %v", ErrPaymentFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Service-Token", g.Token)
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		return TransferReceipt{}, fmt.Errorf("%w: call settlement service: %v", ErrPaymentFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return TransferReceipt{}, fmt.Errorf("%w: read response: %v", ErrPaymentFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := gjson.GetBytes(body, "error").String()
		if reason == "" {
			reason = string(body)
		}
		return TransferReceipt{}, fmt.Errorf("%w: settlement service returned status %d: %s", ErrPaymentFailed, resp.StatusCode, reason)
	}

	if gjson.GetBytes(body, "status").String() == "failed" {
		return TransferReceipt{}, fmt.Errorf("%w: %s", ErrPaymentFailed, gjson.GetBytes(body, "reason").String())
	}

	ref := gjson.GetBytes(body, "transaction_ref").String()
	if ref == "" {
		ref = gjson.GetBytes(body, "signature").String()
	}
	if ref == "" {
		return TransferReceipt{}, fmt.Errorf("%w: response carried no transaction reference", ErrPaymentFailed)
	}
	return TransferReceipt{TransactionRef: ref}, nil
}
