package fhe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

type relayerStub struct {
	mu          sync.Mutex
	keyCalls    atomic.Int32
	failInit    bool
	failEncrypt string // error message, empty for success
	failDecrypt string
	clearValues map[string]int64
}

func (s *relayerStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/v1/keys":
			s.keyCalls.Add(1)
			if s.failInit {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "keygen unavailable"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"public_key": "0xfeed"})
		case "/v1/encrypt":
			if s.failEncrypt != "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": s.failEncrypt})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"ciphertext": "0xc1", "proof": "0xp1"})
		case "/v1/decrypt-verify":
			if s.failDecrypt != "" {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"error": s.failDecrypt})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"clear_values":         s.clearValues,
				"clear_values_encoded": "0xabi",
				"proof":                "0xzk",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestEngine(t *testing.T, stub *relayerStub) *Engine {
	t.Helper()
	srv := stub.server(t)
	t.Cleanup(srv.Close)

	relayer, err := NewRelayer(RelayerConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewRelayer failed: %v", err)
	}
	return NewEngine(relayer, nil)
}

func TestEngine_InitializeOnce(t *testing.T) {
	stub := &relayerStub{}
	engine := newTestEngine(t, stub)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = engine.Initialize(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if !engine.Ready() {
		t.Fatal("engine should be ready")
	}
	// Repeated initialization is a no-op.
	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("re-initialize failed: %v", err)
	}
	if got := stub.keyCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 key fetch, got %d", got)
	}
}

func TestEngine_InitializeFailureIsRetryable(t *testing.T) {
	stub := &relayerStub{failInit: true}
	engine := newTestEngine(t, stub)
	ctx := context.Background()

	err := engine.Initialize(ctx)
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
	if engine.Ready() {
		t.Fatal("engine must not be ready after failed init")
	}

	// The failure is not memoized: the next attempt reaches the relayer again.
	stub.mu.Lock()
	stub.failInit = false
	stub.mu.Unlock()

	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !engine.Ready() {
		t.Fatal("engine should be ready after retry")
	}
}

func TestEngine_EncryptRequiresInit(t *testing.T) {
	engine := newTestEngine(t, &relayerStub{})

	_, err := engine.Encrypt(context.Background(), "0xc0ffee", "0xa11ce", 42000)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestEngine_Encrypt(t *testing.T) {
	stub := &relayerStub{}
	engine := newTestEngine(t, stub)
	ctx := context.Background()
	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		result, err := engine.Encrypt(ctx, "0xc0ffee", "0xa11ce", 42000)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if result.Ciphertext != "0xc1" || result.Proof != "0xp1" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("relayer rejection", func(t *testing.T) {
		stub.mu.Lock()
		stub.failEncrypt = "value out of range for euint64"
		stub.mu.Unlock()

		_, err := engine.Encrypt(ctx, "0xc0ffee", "0xa11ce", -1)
		if !errors.Is(err, ErrEncryption) {
			t.Errorf("expected ErrEncryption, got %v", err)
		}
	})
}

func TestEngine_RequestVerifiedDecryption(t *testing.T) {
	stub := &relayerStub{clearValues: map[string]int64{"scholar-1": 42000}}
	engine := newTestEngine(t, stub)
	ctx := context.Background()
	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	t.Run("invokes submitter with proof material", func(t *testing.T) {
		var gotEncoded, gotProof string
		result, err := engine.RequestVerifiedDecryption(ctx, []string{"scholar-1"}, "0xc0ffee",
			func(ctx context.Context, clearValuesEncoded, proof string) error {
				gotEncoded, gotProof = clearValuesEncoded, proof
				return nil
			})
		if err != nil {
			t.Fatalf("RequestVerifiedDecryption failed: %v", err)
		}
		if gotEncoded != "0xabi" || gotProof != "0xzk" {
			t.Errorf("submitter got (%q, %q)", gotEncoded, gotProof)
		}
		if result.ClearValues["scholar-1"] != 42000 {
			t.Errorf("unexpected clear values %+v", result.ClearValues)
		}
	})

	t.Run("already verified from relayer", func(t *testing.T) {
		stub.mu.Lock()
		stub.failDecrypt = "Data already verified on-chain"
		stub.mu.Unlock()

		_, err := engine.RequestVerifiedDecryption(ctx, []string{"scholar-1"}, "0xc0ffee", nil)
		if !errors.Is(err, ErrAlreadyVerified) {
			t.Errorf("expected ErrAlreadyVerified, got %v", err)
		}
		if errors.Is(err, ErrDecryption) {
			t.Error("already-verified must not be a decryption failure")
		}

		stub.mu.Lock()
		stub.failDecrypt = ""
		stub.mu.Unlock()
	})

	t.Run("submitter failure keeps cause", func(t *testing.T) {
		cause := errors.New("user rejected transaction")
		_, err := engine.RequestVerifiedDecryption(ctx, []string{"scholar-1"}, "0xc0ffee",
			func(ctx context.Context, clearValuesEncoded, proof string) error {
				return cause
			})
		if !errors.Is(err, ErrDecryption) {
			t.Errorf("expected ErrDecryption, got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Error("cause must remain matchable through the wrap")
		}
	})
}
