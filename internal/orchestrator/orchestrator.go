// Package orchestrator coordinates the client workflows: wallet-gated engine
// bootstrap, encrypted submission, and verified decryption. It owns the
// transient locally-decrypted values that exist before a verification is
// chain-confirmed.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ScholarShield/scholarship-client/internal/fhe"
	"github.com/ScholarShield/scholarship-client/internal/notify"
	"github.com/ScholarShield/scholarship-client/internal/registry"
	"github.com/ScholarShield/scholarship-client/internal/scholar"
	"github.com/ScholarShield/scholarship-client/internal/session"
	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

var (
	// ErrBusy is returned when a workflow is invoked while a previous run of
	// the same workflow is still in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrIncompleteForm is returned when a submission is missing its
	// required fields.
	ErrIncompleteForm = errors.New("name and income are required")
)

// Coordinator wires the session gate, the encryption engine, the registry
// views, and the repository into the user-facing workflows.
type Coordinator struct {
	gate     *session.Gate
	engine   *fhe.Engine
	reader   registry.Reader
	writer   registry.Writer
	repo     *scholar.Repository
	notifier *notify.Notifier
	log      *logger.Logger

	now func() time.Time

	mu          sync.Mutex
	applying    bool
	decrypting  bool
	subState    SubmissionState
	verState    VerificationState
	localValues map[string]int64
}

// NewCoordinator creates a coordinator and registers its wallet-connect hook.
// The hook initializes the encryption engine and loads the repository; it
// runs on the connecting goroutine, so Connect blocks until bootstrap is done.
func NewCoordinator(gate *session.Gate, engine *fhe.Engine, reader registry.Reader, writer registry.Writer, repo *scholar.Repository, notifier *notify.Notifier, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewDefault("orchestrator")
	}
	c := &Coordinator{
		gate:        gate,
		engine:      engine,
		reader:      reader,
		writer:      writer,
		repo:        repo,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
		subState:    SubmissionIdle,
		verState:    VerificationIdle,
		localValues: make(map[string]int64),
	}
	gate.OnConnect(func(account string) {
		c.bootstrap(context.Background(), account)
	})
	return c
}

// bootstrap runs on every transition to connected. An engine initialization
// failure is surfaced but does not block the record load; the engine retries
// on the next connect.
func (c *Coordinator) bootstrap(ctx context.Context, account string) {
	if err := c.engine.Initialize(ctx); err != nil {
		c.log.WithError(err).WithField("account", account).Warn("engine bootstrap failed")
		c.notifier.Error("FHE initialization failed")
	}
	if _, err := c.repo.Load(ctx); err != nil {
		c.log.WithError(err).Warn("initial application load failed")
		c.notifier.Error("Failed to load applications")
	}
}

// Refresh reloads the repository, surfacing failures as a notification.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if _, err := c.repo.Load(ctx); err != nil {
		c.notifier.Error("Failed to load applications")
		return err
	}
	return nil
}

// CheckAvailability asks the registry whether eligibility checking is open.
func (c *Coordinator) CheckAvailability(ctx context.Context) (bool, error) {
	available, err := c.reader.Available(ctx)
	if err != nil {
		c.notifier.Error("Eligibility check failed")
		return false, err
	}
	c.notifier.Success("System is available for eligibility checking")
	return available, nil
}

// Stats computes aggregate statistics over the current snapshot.
func (c *Coordinator) Stats() scholar.Stats {
	return scholar.ComputeStats(c.repo.Snapshot())
}

// EligibilityFor reports the eligibility of one application, preferring the
// chain-confirmed value over any transient local decryption.
func (c *Coordinator) EligibilityFor(id string) (scholar.EligibilityReport, bool) {
	for _, app := range c.repo.Snapshot() {
		if app.ID == id {
			var local *int64
			if v, ok := c.LocalDecrypted(id); ok {
				local = &v
			}
			return scholar.Eligibility(app, local), true
		}
	}
	return scholar.EligibilityReport{}, false
}

// LocalDecrypted returns the transient locally-decrypted income for a record,
// if one exists from a verification run in this session.
func (c *Coordinator) LocalDecrypted(id string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.localValues[id]
	return v, ok
}

// ClearLocalDecrypted discards the transient value for a record, typically
// when the user stops inspecting it.
func (c *Coordinator) ClearLocalDecrypted(id string) {
	c.mu.Lock()
	delete(c.localValues, id)
	c.mu.Unlock()
}

func (c *Coordinator) setLocalDecrypted(id string, value int64) {
	c.mu.Lock()
	c.localValues[id] = value
	c.mu.Unlock()
}

// Applying reports whether a submission is in flight.
func (c *Coordinator) Applying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applying
}

// Decrypting reports whether a verification is in flight.
func (c *Coordinator) Decrypting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decrypting
}

// SubmissionStatus returns the submission workflow state.
func (c *Coordinator) SubmissionStatus() SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subState
}

// VerificationStatus returns the verification workflow state.
func (c *Coordinator) VerificationStatus() VerificationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verState
}

func (c *Coordinator) setSubmissionState(s SubmissionState) {
	c.mu.Lock()
	c.subState = s
	c.mu.Unlock()
}

func (c *Coordinator) setVerificationState(s VerificationState) {
	c.mu.Lock()
	c.verState = s
	c.mu.Unlock()
}
