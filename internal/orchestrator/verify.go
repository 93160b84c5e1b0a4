package orchestrator

import (
	"context"
	"errors"

	"github.com/ScholarShield/scholarship-client/internal/chain"
	"github.com/ScholarShield/scholarship-client/internal/fhe"
	"github.com/ScholarShield/scholarship-client/internal/metrics"
)

// VerifyIncome runs the verification workflow for one record: short-circuit
// if already verified, otherwise request a verified decryption and submit the
// proof on-chain. It returns the clear income and whether it is known.
//
// A record verified concurrently by another party is an idempotent success:
// the repository is refreshed and the chain-confirmed value, when readable,
// is returned without a second verification transaction.
func (c *Coordinator) VerifyIncome(ctx context.Context, id string) (int64, bool, error) {
	if _, err := c.gate.RequireAccount(); err != nil {
		c.notifier.Error("Please connect your wallet first")
		return 0, false, err
	}

	c.mu.Lock()
	if c.decrypting {
		c.mu.Unlock()
		return 0, false, ErrBusy
	}
	c.decrypting = true
	c.verState = VerificationCheckingStatus
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.decrypting = false
		c.mu.Unlock()
	}()

	view, err := c.reader.Record(ctx, id)
	if err != nil {
		return 0, false, c.verificationFailed(err)
	}
	if view.IsVerified {
		c.setVerificationState(VerificationAlreadyVerified)
		c.notifier.Success("Income already verified on-chain")
		metrics.RecordVerification(metrics.StatusAlreadyVerified)
		return view.DecryptedValue, true, nil
	}

	handle, err := c.reader.EncryptedHandle(ctx, id)
	if err != nil {
		return 0, false, c.verificationFailed(err)
	}

	c.setVerificationState(VerificationRequesting)
	c.notifier.Pending("Requesting verified decryption...")
	result, err := c.engine.RequestVerifiedDecryption(ctx, []string{handle}, c.reader.Address(), func(ctx context.Context, clearValuesEncoded, proof string) error {
		c.setVerificationState(VerificationAwaitingProof)
		tx, err := c.writer.VerifyDecryption(ctx, id, clearValuesEncoded, proof)
		if err != nil {
			return err
		}
		return tx.Wait(ctx)
	})
	if err != nil {
		if errors.Is(err, fhe.ErrAlreadyVerified) {
			return c.reconcileConcurrentVerification(ctx, id)
		}
		return 0, false, c.verificationFailed(err)
	}

	clear := result.ClearValues[handle]
	c.setVerificationState(VerificationReconciling)
	if _, err := c.repo.Load(ctx); err != nil {
		c.log.WithError(err).Warn("refresh after verification failed")
	}
	c.setLocalDecrypted(id, clear)

	c.setVerificationState(VerificationDone)
	c.notifier.Success("Income verified successfully!")
	metrics.RecordVerification(metrics.StatusSuccess)
	c.log.WithField("record_id", id).Info("income verified")
	return clear, true, nil
}

// reconcileConcurrentVerification handles the race where another party
// verified the record between the status check and the decryption request.
func (c *Coordinator) reconcileConcurrentVerification(ctx context.Context, id string) (int64, bool, error) {
	if _, err := c.repo.Load(ctx); err != nil {
		c.log.WithError(err).Warn("refresh after concurrent verification failed")
	}
	c.setVerificationState(VerificationAlreadyVerified)
	c.notifier.Success("Income already verified on-chain")
	metrics.RecordVerification(metrics.StatusAlreadyVerified)

	if fresh, err := c.reader.Record(ctx, id); err == nil && fresh.IsVerified {
		return fresh.DecryptedValue, true, nil
	}
	return 0, false, nil
}

func (c *Coordinator) verificationFailed(err error) error {
	c.setVerificationState(VerificationFailed)
	if errors.Is(err, chain.ErrUserRejected) {
		c.notifier.Error("Transaction rejected")
		metrics.RecordVerification(metrics.StatusRejected)
	} else {
		c.notifier.Error("Decryption failed: " + err.Error())
		metrics.RecordVerification(metrics.StatusFailed)
	}
	c.log.WithError(err).Warn("verification failed")
	return err
}
