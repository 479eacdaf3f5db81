package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedGateway_Transfer(t *testing.T) {
	gw := NewSimulatedGateway()

	receipt, err := gw.Transfer(context.Background(), TransferRequest{Recipient: "bob", Amount: 5, Reference: "bounty-1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.TransactionRef, "sim-"))
	assert.True(t, receipt.Simulated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Transfer(ctx, TransferRequest{Recipient: "bob", Amount: 5, Reference: "bounty-1"})
	assert.ErrorIs(t, err, ErrPaymentFailed)
}

func TestHTTPGateway_SendsTransfer(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Service-Token"))
		assert.Equal(t, "bounty-1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"confirmed","transaction_ref":"tx-abc"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", "secret", 0)
	receipt, err := gw.Transfer(context.Background(), TransferRequest{Recipient: "bob", Amount: 5, Reference: "bounty-1"})
	require.NoError(t, err)
	assert.Equal(t, "tx-abc", receipt.TransactionRef)
	assert.False(t, receipt.Simulated)

	assert.Equal(t, "bob", got["recipient"])
	assert.Equal(t, 5.0, got["amount"])
	assert.Equal(t, "bounty-1", got["reference"])
}

func TestHTTPGateway_SignatureFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"signature":"5xSig"}`))
	}))
	defer srv.Close()

	receipt, err := NewHTTPGateway(srv.URL, "", 10).Transfer(context.Background(), TransferRequest{Recipient: "bob", Amount: 1, Reference: "bounty-1"})
	require.NoError(t, err)
	assert.Equal(t, "5xSig", receipt.TransactionRef)
}

func TestHTTPGateway_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"ledger down"}`},
		{"rejected", http.StatusPaymentRequired, `insufficient funds`},
		{"failed status", http.StatusOK, `{"status":"failed","reason":"frozen account"}`},
		{"no reference", http.StatusOK, `{"status":"confirmed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL, "", 0).Transfer(context.Background(), TransferRequest{Recipient: "bob", Amount: 1, Reference: "bounty-1"})
			assert.ErrorIs(t, err, ErrPaymentFailed)
		})
	}
}

func TestHTTPGateway_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewHTTPGateway(srv.URL, "", 0).Transfer(ctx, TransferRequest{Recipient: "bob", Amount: 1, Reference: "bounty-1"})
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
}
