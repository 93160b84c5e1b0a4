package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler func(req RPCRequest) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		result, rpcErr := handler(req)
		resp := RPCResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		if rpcErr == nil {
			raw, err := json.Marshal(result)
			if err != nil {
				t.Fatalf("marshal result: %v", err)
			}
			resp.Result = raw
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{RPCURL: url, RequestsPerSec: 1000}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	c.pollInterval = 5 * time.Millisecond
	c.waitTimeout = time.Second
	return c
}

func TestClient_Call(t *testing.T) {
	srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
		if req.Method != "getblockcount" {
			t.Errorf("unexpected method %s", req.Method)
		}
		return 42, nil
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.Call(context.Background(), "getblockcount", nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	var count int
	if err := json.Unmarshal(result, &count); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42, got %d", count)
	}
}

func TestClient_Call_UserRejected(t *testing.T) {
	tests := []struct {
		name   string
		rpcErr *RPCError
	}{
		{"by code", &RPCError{Code: CodeUserRejected, Message: "signature declined"}},
		{"by marker", &RPCError{Code: -32000, Message: "user rejected transaction in wallet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
				return nil, tt.rpcErr
			})
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			_, err := c.Call(context.Background(), "sendinvocation", nil)
			if !errors.Is(err, ErrUserRejected) {
				t.Errorf("expected ErrUserRejected, got %v", err)
			}
		})
	}
}

func TestClient_Call_GenericRPCError(t *testing.T) {
	srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32601, Message: "method not found"}
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Call(context.Background(), "bogus", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUserRejected) {
		t.Error("generic RPC error must not map to ErrUserRejected")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Errorf("expected *RPCError, got %T", err)
	}
}

func TestClient_InvokeRead(t *testing.T) {
	t.Run("halt", func(t *testing.T) {
		srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
			return InvokeResult{State: "HALT", Stack: json.RawMessage(`[{"name":"Alice"}]`)}, nil
		})
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		item, err := c.InvokeRead(context.Background(), "0xabc", "getRecordData", nil)
		if err != nil {
			t.Fatalf("InvokeRead failed: %v", err)
		}
		if got := item.Get("name").String(); got != "Alice" {
			t.Errorf("expected Alice, got %q", got)
		}
	})

	t.Run("fault", func(t *testing.T) {
		srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
			return InvokeResult{State: "FAULT", Exception: "record missing"}, nil
		})
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		if _, err := c.InvokeRead(context.Background(), "0xabc", "getRecordData", nil); err == nil {
			t.Fatal("expected error for FAULT state")
		}
	})
}

func TestTx_Wait(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
		switch req.Method {
		case "sendinvocation":
			return map[string]string{"hash": "0xdead"}, nil
		case "getreceipt":
			// Not indexed for the first two polls.
			if calls.Add(1) < 3 {
				return nil, &RPCError{Code: CodeUnknownTransaction, Message: "unknown transaction"}
			}
			return Receipt{TxHash: "0xdead", BlockNumber: 7, State: "HALT"}, nil
		default:
			t.Errorf("unexpected method %s", req.Method)
			return nil, &RPCError{Code: -32601, Message: "method not found"}
		}
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	tx, err := c.SendInvocation(context.Background(), "0xabc", "createRecord", nil)
	if err != nil {
		t.Fatalf("SendInvocation failed: %v", err)
	}

	receipt, err := tx.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if receipt.BlockNumber != 7 {
		t.Errorf("expected block 7, got %d", receipt.BlockNumber)
	}
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 receipt polls, got %d", calls.Load())
	}
}

func TestTx_Wait_Fault(t *testing.T) {
	srv := newTestServer(t, func(req RPCRequest) (interface{}, *RPCError) {
		return Receipt{TxHash: "0xdead", State: "FAULT", Exception: "revert"}, nil
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	tx := &Tx{client: c, Hash: "0xdead"}
	if _, err := tx.Wait(context.Background()); err == nil {
		t.Fatal("expected error for faulted transaction")
	}
}
