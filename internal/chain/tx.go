package chain

import (
	"context"
	"fmt"
	"time"
)

// DefaultWaitTimeout bounds how long Wait polls for a receipt.
const DefaultWaitTimeout = 2 * time.Minute

// DefaultPollInterval is the receipt polling cadence.
const DefaultPollInterval = 2 * time.Second

// Tx is a handle to a submitted, not necessarily confirmed, transaction.
type Tx struct {
	client *Client
	Hash   string
}

// Wait blocks until the transaction has a receipt or the context expires.
// A not-yet-indexed transaction is transient and retried; a FAULT receipt is
// an error.
func (t *Tx) Wait(ctx context.Context) (*Receipt, error) {
	wctx, cancel := context.WithTimeout(ctx, t.client.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(t.client.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", t.Hash, wctx.Err())
		case <-ticker.C:
			receipt, err := t.client.GetReceipt(wctx, t.Hash)
			if err != nil {
				if isNotFoundError(err) {
					continue
				}
				return nil, fmt.Errorf("wait for %s: %w", t.Hash, err)
			}
			if receipt.State != "HALT" {
				return receipt, fmt.Errorf("transaction %s faulted: %s", t.Hash, receipt.Exception)
			}
			return receipt, nil
		}
	}
}
