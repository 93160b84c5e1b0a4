// Package registry binds the on-chain scholarship application registry
// contract: a read-only view and a signer-bound write view, isolating all
// chain I/O behind small interfaces.
package registry

import (
	"context"
)

// RecordView is the wire-level shape of one on-chain application record.
type RecordView struct {
	Name           string
	Description    string
	PublicValue1   int64
	PublicValue2   int64
	Timestamp      int64
	Creator        string
	IsVerified     bool
	DecryptedValue int64
}

// NewRecord carries everything needed to create an application record.
type NewRecord struct {
	ID              string
	Name            string
	Ciphertext      string
	Proof           string
	AcademicScore   int64
	Extracurricular int64
	Description     string
}

// TxWaiter resolves once a submitted write is chain-confirmed. A write is not
// complete until Wait returns.
type TxWaiter interface {
	Wait(ctx context.Context) error
}

// Reader is the read-only registry view.
type Reader interface {
	// Address returns the registry contract address.
	Address() string
	// AllRecordIDs lists every application record id.
	AllRecordIDs(ctx context.Context) ([]string, error)
	// Record fetches one record by id.
	Record(ctx context.Context, id string) (RecordView, error)
	// EncryptedHandle returns the opaque ciphertext handle for a record.
	EncryptedHandle(ctx context.Context, id string) (string, error)
	// Available reports whether the registry accepts eligibility checks.
	Available(ctx context.Context) (bool, error)
}

// Writer is the signer-bound registry view.
type Writer interface {
	// CreateRecord submits a new application record.
	CreateRecord(ctx context.Context, record NewRecord) (TxWaiter, error)
	// VerifyDecryption submits the decryption verification transaction.
	VerifyDecryption(ctx context.Context, id, clearValuesEncoded, proof string) (TxWaiter, error)
}
