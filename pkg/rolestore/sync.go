package rolestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/buildflow/permkit/pkg/permission"
)

// Sync bridges a Source to a permission store. Refresh performs one
// load-and-publish pass; Run keeps the store current by refreshing on
// change signals (when the source implements Watcher) and on an
// optional polling interval.
type Sync struct {
	source Source
	store  *permission.Store
	log    *slog.Logger
	poll   time.Duration
}

// SyncOption configures a Sync.
type SyncOption func(*Sync)

// WithSyncLogger sets the logger for refresh failures inside Run.
func WithSyncLogger(log *slog.Logger) SyncOption {
	return func(s *Sync) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPollInterval makes Run refresh periodically even without change
// signals. Zero disables polling.
func WithPollInterval(d time.Duration) SyncOption {
	return func(s *Sync) {
		if d > 0 {
			s.poll = d
		}
	}
}

// NewSync creates a sync between the given source and store.
func NewSync(source Source, store *permission.Store, opts ...SyncOption) *Sync {
	if source == nil {
		panic("rolestore: source cannot be nil")
	}
	if store == nil {
		panic("rolestore: store cannot be nil")
	}
	s := &Sync{
		source: source,
		store:  store,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh loads the source and publishes the result to the store. A
// source version that has not advanced past the published snapshot is
// a no-op, not an error.
func (s *Sync) Refresh(ctx context.Context) error {
	data, err := s.source.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Load(data.Version, data.Roles, data.Users); err != nil {
		if errors.Is(err, permission.ErrStaleVersion) {
			return nil
		}
		return err
	}
	return nil
}

// Run refreshes once, then blocks until ctx is done, refreshing on
// every change signal and poll tick. Failed refreshes are logged and
// retried on the next trigger; the previously published snapshot stays
// live throughout.
func (s *Sync) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}

	var changes <-chan struct{}
	if w, ok := s.source.(Watcher); ok {
		changes = w.Changes()
	}

	var tick <-chan time.Time
	if s.poll > 0 {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
		case <-tick:
		}
		if err := s.Refresh(ctx); err != nil {
			s.log.ErrorContext(ctx, "role data refresh failed", "error", err)
		}
	}
}
