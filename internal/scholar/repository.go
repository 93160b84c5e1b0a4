package scholar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ScholarShield/scholarship-client/internal/metrics"
	"github.com/ScholarShield/scholarship-client/internal/registry"
	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

// Repository loads and caches the full set of application records.
//
// Loads are wholesale: each successful load replaces the snapshot. Concurrent
// loads are independent and the most recently completed one wins; callers use
// Refreshing only to avoid overlapping UI triggers, not for correctness.
type Repository struct {
	reader registry.Reader
	log    *logger.Logger

	mu         sync.RWMutex
	apps       []Application
	refreshing bool
}

// NewRepository creates a repository over the given read view.
func NewRepository(reader registry.Reader, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.NewDefault("repository")
	}
	return &Repository{reader: reader, log: log}
}

// Load fetches every record id and then each record. A single record's fetch
// failure is logged and the record skipped; one bad record never aborts the
// load. The result replaces the cached snapshot.
func (r *Repository) Load(ctx context.Context) ([]Application, error) {
	start := time.Now()
	r.setRefreshing(true)
	defer r.setRefreshing(false)

	ids, err := r.reader.AllRecordIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load record ids: %w", err)
	}

	apps := make([]Application, 0, len(ids))
	for _, id := range ids {
		view, err := r.reader.Record(ctx, id)
		if err != nil {
			r.log.WithError(err).WithField("record_id", id).Warn("skipping record")
			continue
		}
		apps = append(apps, FromView(id, view))
	}

	r.mu.Lock()
	r.apps = apps
	r.mu.Unlock()

	metrics.ObserveLoad(time.Since(start), len(apps))
	r.log.WithField("count", len(apps)).Debug("applications loaded")
	return r.snapshotLocked(), nil
}

// Snapshot returns a copy of the most recently loaded applications.
func (r *Repository) Snapshot() []Application {
	return r.snapshotLocked()
}

func (r *Repository) snapshotLocked() []Application {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Application, len(r.apps))
	copy(out, r.apps)
	return out
}

// Refreshing reports whether a load is in flight. UI affordance only.
func (r *Repository) Refreshing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshing
}

func (r *Repository) setRefreshing(v bool) {
	r.mu.Lock()
	r.refreshing = v
	r.mu.Unlock()
}
