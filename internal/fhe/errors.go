package fhe

import (
	"errors"
	"strings"
)

var (
	// ErrInitialization indicates the encryption engine failed to set up.
	// The next wallet connection may retry.
	ErrInitialization = errors.New("encryption engine initialization failed")

	// ErrNotInitialized indicates an operation was invoked before Initialize
	// completed successfully.
	ErrNotInitialized = errors.New("encryption engine not initialized")

	// ErrEncryption indicates the relayer rejected an encryption request.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption indicates the verify-decrypt protocol failed.
	ErrDecryption = errors.New("decryption failed")

	// ErrAlreadyVerified indicates the handle was already verified on-chain.
	// Callers must treat this as an idempotent success, not a failure.
	ErrAlreadyVerified = errors.New("value already verified")
)

// alreadyVerifiedMarker is the substring the relayer embeds in its error
// message when a decryption target has already been verified on-chain.
const alreadyVerifiedMarker = "Data already verified"

func isAlreadyVerified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyVerified) || strings.Contains(err.Error(), alreadyVerifiedMarker)
}
