package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func rpcHandler(t *testing.T, method string, result interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestHTTPClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getBalance", map[string]interface{}{
		"value": uint64(5000000000),
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.GetBalance(context.Background(), "wallet123")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 5000000000 {
		t.Errorf("expected 5000000000 lamports, got %d", balance)
	}
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getLatestBlockhash", map[string]interface{}{
		"value": map[string]string{
			"blockhash": "9pHNyLzT3mDwsfHzXBBSTwZfGcTG9eSk9vFLnGnAYmEf",
		},
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	blockhash, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if blockhash != "9pHNyLzT3mDwsfHzXBBSTwZfGcTG9eSk9vFLnGnAYmEf" {
		t.Errorf("unexpected blockhash %s", blockhash)
	}
}

func TestHTTPClient_GetAccountInfoNotFound(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getAccountInfo", map[string]interface{}{
		"value": nil,
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetAccountInfo(context.Background(), "missing123")
	var notFound *AccountNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected AccountNotFoundError, got %v", err)
	}
	if notFound.Address != "missing123" {
		t.Errorf("expected address missing123, got %s", notFound.Address)
	}
}

func TestHTTPClient_GetTokenAccountBalance(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getTokenAccountBalance", map[string]interface{}{
		"value": map[string]interface{}{
			"amount":   "1500000000",
			"decimals": 9,
		},
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.GetTokenAccountBalance(context.Background(), "ata123")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}
	if balance.Amount != 1500000000 {
		t.Errorf("expected amount 1500000000, got %d", balance.Amount)
	}
	if balance.Decimals != 9 {
		t.Errorf("expected 9 decimals, got %d", balance.Decimals)
	}
}

func TestHTTPClient_SimulateTransactionFailure(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "simulateTransaction", map[string]interface{}{
		"value": map[string]interface{}{
			"err":  map[string]interface{}{"InstructionError": []interface{}{0, "InsufficientFunds"}},
			"logs": []string{"Program log: Error: insufficient funds"},
		},
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	err := client.SimulateTransaction(context.Background(), "dGVzdA==")
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if len(simErr.Logs) != 1 {
		t.Errorf("expected 1 log line, got %d", len(simErr.Logs))
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "sendTransaction", "sig123abc"))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	sig, err := client.SendTransaction(context.Background(), "dGVzdA==")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "sig123abc" {
		t.Errorf("expected signature sig123abc, got %s", sig)
	}
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(1),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.GetBalance(context.Background(), "wallet123")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Endpoint != server.URL {
		t.Errorf("expected endpoint %s, got %s", server.URL, connErr.Endpoint)
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"node is behind"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.GetBalance(context.Background(), "wallet123")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("rpc error should not be retried, got %d calls", calls)
	}
}
