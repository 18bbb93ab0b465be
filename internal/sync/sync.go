package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/metrics"
	"github.com/conorfennell/idiomas/internal/remote"
	"github.com/conorfennell/idiomas/internal/srs"
	"github.com/conorfennell/idiomas/internal/worker"
)

// DefaultTimeout bounds a single detached remote write.
const DefaultTimeout = 10 * time.Second

// Syncer pushes progress and review events to the remote store without
// making callers wait for it.
type Syncer struct {
	store    remote.Store
	pool     *worker.Pool
	identity string
	timeout  time.Duration
	logger   *slog.Logger

	// latest is the newest XP total handed to SyncXP; -1 when none is pending.
	latest atomic.Int64
	// xpMu is held from taking latest until its upsert returns, so writes
	// land in the order totals were taken.
	xpMu sync.Mutex
}

// Options configures a Syncer.
type Options struct {
	Store    remote.Store
	Pool     *worker.Pool
	Identity string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewSyncer builds a Syncer. A nil store means remote sync is disabled.
func NewSyncer(opts Options) *Syncer {
	s := &Syncer{
		store:    opts.Store,
		pool:     opts.Pool,
		identity: opts.Identity,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
	if s.store == nil {
		s.store = remote.Disabled{}
	}
	if s.identity == "" {
		s.identity = domain.PlaceholderIdentity
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.latest.Store(-1)
	return s
}

// SyncXP upserts the XP total for the current identity in the background.
// When several totals are queued the task writes the newest one seen, and
// progress writes never overlap.
func (s *Syncer) SyncXP(xp int) {
	if !s.store.Configured() {
		return
	}
	s.latest.Store(int64(xp))
	s.detach("sync_xp", func(ctx context.Context) error {
		s.xpMu.Lock()
		defer s.xpMu.Unlock()
		v := s.latest.Swap(-1)
		if v < 0 {
			return nil
		}
		return s.store.UpsertProgress(ctx, s.identity, int(v))
	})
}

// LogReview appends a review event in the background.
func (s *Syncer) LogReview(wordID string, grade srs.Grade) {
	if !s.store.Configured() {
		return
	}
	review := domain.ReviewLog{
		UserID:    s.identity,
		WordID:    wordID,
		Grade:     int(grade),
		CreatedAt: time.Now().UTC(),
	}
	s.detach("log_review", func(ctx context.Context) error {
		return s.store.InsertReview(ctx, review)
	})
}

// FetchRemoteXP reads the remote XP total. It reports false when the store is
// unconfigured, unreachable, or holds no value greater than zero.
func (s *Syncer) FetchRemoteXP(ctx context.Context) (int, bool) {
	if !s.store.Configured() {
		return 0, false
	}
	xp, ok, err := s.store.Progress(ctx, s.identity)
	metrics.RecordSync("fetch_xp", err)
	if err != nil {
		s.logger.Debug("Failed to fetch remote xp", "identity", s.identity, "error", err)
		return 0, false
	}
	if !ok || xp <= 0 {
		return 0, false
	}
	return xp, true
}

// detach runs fn on the worker pool with its own timeout. Without a pool the
// task runs on a fresh goroutine.
func (s *Syncer) detach(op string, fn func(ctx context.Context) error) {
	job := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		err := fn(ctx)
		metrics.RecordSync(op, err)
		if err != nil {
			s.logger.Debug("Remote write failed", "op", op, "error", err)
		}
		return nil
	}

	if s.pool == nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Remote write panicked", "op", op, "panic", r)
				}
			}()
			job(context.Background())
		}()
		return
	}

	if err := s.pool.TrySubmit(job); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			s.logger.Warn("Sync queue full, dropping task", "op", op)
		} else {
			s.logger.Warn("Failed to schedule sync task", "op", op, "error", err)
		}
	}
}
