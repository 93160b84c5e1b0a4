package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ScholarShield/scholarship-client/internal/chain"
)

// invokeHandler routes invokefunction calls by contract method name.
func invokeServer(t *testing.T, stacks map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chain.RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		method, _ := req.Params[1].(string)
		stack, ok := stacks[method]
		if !ok {
			t.Errorf("unexpected contract method %q", method)
			stack = "[]"
		}
		result, _ := json.Marshal(chain.InvokeResult{State: "HALT", Stack: json.RawMessage(stack)})
		resp := chain.RPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newRPCRegistry(t *testing.T, url string) *RPCRegistry {
	t.Helper()
	client, err := chain.NewClient(chain.Config{RPCURL: url, RequestsPerSec: 1000}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	reg, err := NewRPCRegistry(client, "0xc0ffee")
	if err != nil {
		t.Fatalf("NewRPCRegistry: %v", err)
	}
	return reg
}

func TestRPCRegistry_Reads(t *testing.T) {
	srv := invokeServer(t, map[string]string{
		"getAllRecordIds": `[["scholar-1","scholar-2"]]`,
		"getRecordData": `[{
			"name": "Alice",
			"description": "needs-based",
			"publicValue1": 9,
			"publicValue2": "7",
			"timestamp": 1700000000,
			"creator": "0xa11ce",
			"isVerified": true,
			"decryptedValue": 42000
		}]`,
		"getEncryptedValue": `["scholar-1"]`,
		"isAvailable":       `[true]`,
	})
	defer srv.Close()

	reg := newRPCRegistry(t, srv.URL)
	ctx := context.Background()

	t.Run("AllRecordIDs", func(t *testing.T) {
		ids, err := reg.AllRecordIDs(ctx)
		if err != nil {
			t.Fatalf("AllRecordIDs: %v", err)
		}
		if len(ids) != 2 || ids[0] != "scholar-1" {
			t.Errorf("unexpected ids %v", ids)
		}
	})

	t.Run("Record", func(t *testing.T) {
		view, err := reg.Record(ctx, "scholar-1")
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if view.Name != "Alice" || !view.IsVerified || view.DecryptedValue != 42000 {
			t.Errorf("unexpected view %+v", view)
		}
		// String-typed numerics coerce to integers.
		if view.PublicValue2 != 7 {
			t.Errorf("expected coerced publicValue2 7, got %d", view.PublicValue2)
		}
	})

	t.Run("EncryptedHandle", func(t *testing.T) {
		handle, err := reg.EncryptedHandle(ctx, "scholar-1")
		if err != nil {
			t.Fatalf("EncryptedHandle: %v", err)
		}
		if handle != "scholar-1" {
			t.Errorf("expected handle scholar-1, got %s", handle)
		}
	})

	t.Run("Available", func(t *testing.T) {
		ok, err := reg.Available(ctx)
		if err != nil {
			t.Fatalf("Available: %v", err)
		}
		if !ok {
			t.Error("expected available")
		}
	})
}

func TestRPCRegistry_MalformedNumericsCoerceToZero(t *testing.T) {
	srv := invokeServer(t, map[string]string{
		"getRecordData": `[{"name":"Bob","publicValue1":"abc","creator":"0xb0b"}]`,
	})
	defer srv.Close()

	reg := newRPCRegistry(t, srv.URL)
	view, err := reg.Record(context.Background(), "scholar-9")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if view.PublicValue1 != 0 || view.PublicValue2 != 0 || view.DecryptedValue != 0 {
		t.Errorf("malformed or absent numerics must coerce to zero, got %+v", view)
	}
	if view.IsVerified {
		t.Error("absent isVerified must default to false")
	}
}
