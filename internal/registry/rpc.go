package registry

import (
	"context"
	"fmt"

	"github.com/ScholarShield/scholarship-client/internal/chain"
)

// RPCRegistry implements Reader and Writer over a registry chain node.
type RPCRegistry struct {
	client   *chain.Client
	contract string
}

var (
	_ Reader = (*RPCRegistry)(nil)
	_ Writer = (*RPCRegistry)(nil)
)

// NewRPCRegistry binds the registry contract at the given address.
func NewRPCRegistry(client *chain.Client, contractAddress string) (*RPCRegistry, error) {
	if contractAddress == "" {
		return nil, fmt.Errorf("contract address required")
	}
	return &RPCRegistry{client: client, contract: contractAddress}, nil
}

// Address returns the registry contract address.
func (r *RPCRegistry) Address() string { return r.contract }

// AllRecordIDs lists every application record id.
func (r *RPCRegistry) AllRecordIDs(ctx context.Context) ([]string, error) {
	item, err := r.client.InvokeRead(ctx, r.contract, "getAllRecordIds", nil)
	if err != nil {
		return nil, fmt.Errorf("get record ids: %w", err)
	}

	var ids []string
	for _, v := range item.Array() {
		if s := v.String(); s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// Record fetches one record by id. Numeric fields are coerced from their wire
// representation; absent or malformed values become zero rather than errors.
func (r *RPCRegistry) Record(ctx context.Context, id string) (RecordView, error) {
	item, err := r.client.InvokeRead(ctx, r.contract, "getRecordData", []chain.Param{chain.StringParam(id)})
	if err != nil {
		return RecordView{}, fmt.Errorf("get record %s: %w", id, err)
	}

	return RecordView{
		Name:           item.Get("name").String(),
		Description:    item.Get("description").String(),
		PublicValue1:   item.Get("publicValue1").Int(),
		PublicValue2:   item.Get("publicValue2").Int(),
		Timestamp:      item.Get("timestamp").Int(),
		Creator:        item.Get("creator").String(),
		IsVerified:     item.Get("isVerified").Bool(),
		DecryptedValue: item.Get("decryptedValue").Int(),
	}, nil
}

// EncryptedHandle returns the opaque ciphertext handle for a record.
func (r *RPCRegistry) EncryptedHandle(ctx context.Context, id string) (string, error) {
	item, err := r.client.InvokeRead(ctx, r.contract, "getEncryptedValue", []chain.Param{chain.StringParam(id)})
	if err != nil {
		return "", fmt.Errorf("get encrypted handle %s: %w", id, err)
	}
	handle := item.String()
	if handle == "" {
		return "", fmt.Errorf("record %s has no encrypted handle", id)
	}
	return handle, nil
}

// Available reports whether the registry accepts eligibility checks.
func (r *RPCRegistry) Available(ctx context.Context) (bool, error) {
	item, err := r.client.InvokeRead(ctx, r.contract, "isAvailable", nil)
	if err != nil {
		return false, fmt.Errorf("availability check: %w", err)
	}
	return item.Bool(), nil
}

// CreateRecord submits a new application record.
func (r *RPCRegistry) CreateRecord(ctx context.Context, record NewRecord) (TxWaiter, error) {
	params := []chain.Param{
		chain.StringParam(record.ID),
		chain.StringParam(record.Name),
		chain.BytesParam(record.Ciphertext),
		chain.BytesParam(record.Proof),
		chain.IntParam(record.AcademicScore),
		chain.IntParam(record.Extracurricular),
		chain.StringParam(record.Description),
	}
	tx, err := r.client.SendInvocation(ctx, r.contract, "createRecord", params)
	if err != nil {
		return nil, fmt.Errorf("create record %s: %w", record.ID, err)
	}
	return confirmedTx{tx}, nil
}

// VerifyDecryption submits the decryption verification transaction.
func (r *RPCRegistry) VerifyDecryption(ctx context.Context, id, clearValuesEncoded, proof string) (TxWaiter, error) {
	params := []chain.Param{
		chain.StringParam(id),
		chain.BytesParam(clearValuesEncoded),
		chain.BytesParam(proof),
	}
	tx, err := r.client.SendInvocation(ctx, r.contract, "verifyDecryption", params)
	if err != nil {
		return nil, fmt.Errorf("verify decryption %s: %w", id, err)
	}
	return confirmedTx{tx}, nil
}

// confirmedTx adapts a chain transaction handle to the TxWaiter interface.
type confirmedTx struct {
	tx *chain.Tx
}

func (c confirmedTx) Wait(ctx context.Context) error {
	_, err := c.tx.Wait(ctx)
	return err
}
