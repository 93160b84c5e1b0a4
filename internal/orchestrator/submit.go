package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/ScholarShield/scholarship-client/internal/chain"
	"github.com/ScholarShield/scholarship-client/internal/metrics"
	"github.com/ScholarShield/scholarship-client/internal/registry"
	"github.com/ScholarShield/scholarship-client/internal/scholar"
)

// SubmissionForm carries the raw user input for one application. Numeric
// fields arrive as strings and are coerced; anything unparsable becomes zero.
type SubmissionForm struct {
	Name            string
	Income          string
	AcademicScore   string
	Extracurricular string
	Description     string
}

// Submit runs the submission workflow: encrypt the income, create the record
// on-chain, and wait for confirmation. It returns the new record id.
//
// The income travels only as ciphertext; the clear value never leaves this
// process. The created record is unverified until a later verification run.
func (c *Coordinator) Submit(ctx context.Context, form SubmissionForm) (string, error) {
	account, err := c.gate.RequireAccount()
	if err != nil {
		c.notifier.Error("Please connect your wallet first")
		return "", err
	}
	if strings.TrimSpace(form.Name) == "" || strings.TrimSpace(form.Income) == "" {
		c.notifier.Error("Name and income are required")
		return "", ErrIncompleteForm
	}

	c.mu.Lock()
	if c.applying {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.applying = true
	c.subState = SubmissionEncrypting
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.applying = false
		c.mu.Unlock()
	}()

	c.notifier.Pending("Encrypting income data...")
	income := scholar.CoerceInt(form.Income)
	enc, err := c.engine.Encrypt(ctx, c.reader.Address(), account, income)
	if err != nil {
		c.setSubmissionState(SubmissionFailed)
		c.notifier.Error("Encryption failed: " + err.Error())
		metrics.RecordSubmission(metrics.StatusFailed)
		return "", err
	}

	id := scholar.NewRecordID(c.now())
	record := registry.NewRecord{
		ID:              id,
		Name:            form.Name,
		Ciphertext:      enc.Ciphertext,
		Proof:           enc.Proof,
		AcademicScore:   scholar.CoerceInt(form.AcademicScore),
		Extracurricular: scholar.CoerceInt(form.Extracurricular),
		Description:     form.Description,
	}

	c.setSubmissionState(SubmissionSubmitting)
	c.notifier.Pending("Submitting encrypted application...")
	tx, err := c.writer.CreateRecord(ctx, record)
	if err != nil {
		return "", c.submissionFailed(err)
	}

	c.setSubmissionState(SubmissionConfirming)
	if err := tx.Wait(ctx); err != nil {
		return "", c.submissionFailed(err)
	}

	c.setSubmissionState(SubmissionDone)
	if _, err := c.repo.Load(ctx); err != nil {
		c.log.WithError(err).Warn("refresh after submission failed")
	}
	c.notifier.Success("Scholarship application submitted successfully!")
	metrics.RecordSubmission(metrics.StatusSuccess)
	c.log.WithField("record_id", id).Info("application submitted")
	return id, nil
}

func (c *Coordinator) submissionFailed(err error) error {
	c.setSubmissionState(SubmissionFailed)
	if errors.Is(err, chain.ErrUserRejected) {
		c.notifier.Error("Transaction rejected")
		metrics.RecordSubmission(metrics.StatusRejected)
	} else {
		c.notifier.Error("Submission failed: " + err.Error())
		metrics.RecordSubmission(metrics.StatusFailed)
	}
	c.log.WithError(err).Warn("submission failed")
	return err
}
