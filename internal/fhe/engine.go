// Package fhe adapts the remote fully-homomorphic encryption relayer into the
// client's encryption engine: one-shot initialization, income encryption, and
// the request-verify-decrypt protocol.
package fhe

import (
	"context"
	"fmt"
	"sync"

	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

// ProofSubmitter submits the on-chain verification transaction for a set of
// clear values and their correctness proof. The engine stays ignorant of the
// write-call shape; the orchestrator controls chain submission through this
// callback.
type ProofSubmitter func(ctx context.Context, clearValuesEncoded, proof string) error

// DecryptionResult maps each requested handle to its disclosed clear value.
type DecryptionResult struct {
	ClearValues map[string]int64
}

type initCall struct {
	done chan struct{}
	err  error
}

// Engine is the client-side encryption engine. Initialization is memoized:
// concurrent callers share one in-flight attempt, a success is permanent for
// the session, and a failure clears the memo so the next connect can retry.
type Engine struct {
	relayer *Relayer
	log     *logger.Logger

	mu          sync.Mutex
	initialized bool
	inflight    *initCall
	publicKey   string
}

// NewEngine creates an uninitialized engine over the given relayer.
func NewEngine(relayer *Relayer, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("fhe")
	}
	return &Engine{relayer: relayer, log: log}
}

// Initialize prepares the engine for encryption. It is idempotent and safe to
// call concurrently; duplicate calls while an attempt is in flight wait for
// that attempt instead of starting another.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	if e.inflight != nil {
		call := e.inflight
		e.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-call.done:
			return call.err
		}
	}
	call := &initCall{done: make(chan struct{})}
	e.inflight = call
	e.mu.Unlock()

	key, err := e.relayer.FetchKeys(ctx)

	e.mu.Lock()
	e.inflight = nil
	if err != nil {
		call.err = fmt.Errorf("%w: %v", ErrInitialization, err)
	} else {
		e.initialized = true
		e.publicKey = key
	}
	e.mu.Unlock()
	close(call.done)

	if call.err != nil {
		e.log.WithError(err).Warn("engine initialization failed")
		return call.err
	}
	e.log.Info("encryption engine initialized")
	return nil
}

// Ready reports whether Initialize has completed successfully.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Encrypt encrypts value for submission to the contract, bound to the
// submitting account. Must only be called after successful initialization.
func (e *Engine) Encrypt(ctx context.Context, contractAddr, account string, value int64) (*EncryptResult, error) {
	if !e.Ready() {
		return nil, ErrNotInitialized
	}

	result, err := e.relayer.Encrypt(ctx, contractAddr, account, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return result, nil
}

// RequestVerifiedDecryption runs the decrypt-then-prove protocol for the
// given handles, invokes submit with the proof material so the caller can
// send the on-chain verification transaction, and returns the clear values
// keyed by handle.
//
// ErrAlreadyVerified is returned when another party verified the value
// concurrently; callers must treat it as a non-error, idempotent outcome.
func (e *Engine) RequestVerifiedDecryption(ctx context.Context, handles []string, contractAddr string, submit ProofSubmitter) (*DecryptionResult, error) {
	if !e.Ready() {
		return nil, ErrNotInitialized
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: no handles requested", ErrDecryption)
	}

	resp, err := e.relayer.DecryptVerify(ctx, handles, contractAddr)
	if err != nil {
		if isAlreadyVerified(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	if submit != nil {
		if err := submit(ctx, resp.ClearValuesEncoded, resp.Proof); err != nil {
			if isAlreadyVerified(err) {
				return nil, err
			}
			// Preserve the cause so callers can still match ErrUserRejected.
			return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
		}
	}

	return &DecryptionResult{ClearValues: resp.ClearValues}, nil
}
