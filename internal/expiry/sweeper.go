package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/richarrd92/hobbymatch/internal/domain"
	"github.com/richarrd92/hobbymatch/internal/metrics"
)

// Broadcaster is the slice of the broadcast API the sweeper needs.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.Event)
}

// Lock elects a single sweeping instance across a fleet. A nil Lock means
// every instance sweeps, which is safe (deletes are idempotent) but wasteful.
type Lock interface {
	// TryAcquire takes or refreshes the lock; true means sweep this cycle.
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Sweeper periodically retires posts past their expiration: media objects
// are cleaned up best-effort, database records are removed in one
// transaction, and a delete_post event is broadcast per retired post.
type Sweeper struct {
	posts       domain.PostRepository
	media       domain.MediaStore // nil when media storage is not configured
	broadcaster Broadcaster
	lock        Lock // nil when running single-instance
	clock       clockwork.Clock
	interval    time.Duration
}

// NewSweeper creates a sweeper. media and lock may be nil.
func NewSweeper(posts domain.PostRepository, media domain.MediaStore, broadcaster Broadcaster, lock Lock, clock clockwork.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{
		posts:       posts,
		media:       media,
		broadcaster: broadcaster,
		lock:        lock,
		clock:       clock,
		interval:    interval,
	}
}

// Start runs the sweep loop until ctx is cancelled. A failed sweep is logged
// and retried on the next tick; records stay past-expiration until a sweep
// commits, so nothing is lost.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("Expiry sweeper starting", "interval", s.interval)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.runSweep(ctx)
		case <-ctx.Done():
			s.releaseLock()
			slog.Info("Expiry sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) releaseLock() {
	if s.lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.lock.Release(ctx); err != nil {
		slog.Warn("Failed to release sweep lock", "error", err)
	}
}

// runSweep executes one sweep, recovering panics so a single bad cycle never
// terminates the loop.
func (s *Sweeper) runSweep(ctx context.Context) {
	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Sweep panic recovered", "panic", r)
			metrics.SweepsTotal.WithLabelValues("error").Inc()
		}
		metrics.SweepDuration.Observe(s.clock.Since(start).Seconds())
	}()

	if s.lock != nil {
		held, err := s.lock.TryAcquire(ctx)
		if err != nil {
			// Redis trouble must not stop expiry; a duplicate sweep on
			// another instance only repeats idempotent deletes.
			slog.Warn("Sweep lock unavailable, sweeping anyway", "error", err)
		} else if !held {
			slog.Debug("Another instance holds the sweep lock, skipping")
			metrics.SweepsTotal.WithLabelValues("skipped").Inc()
			return
		}
	}

	if err := s.sweep(ctx); err != nil {
		slog.Error("Sweep failed", "error", err)
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.SweepsTotal.WithLabelValues("ok").Inc()
}

func (s *Sweeper) sweep(ctx context.Context) error {
	now := s.clock.Now().UTC()

	expired, err := s.posts.FindExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to find expired posts: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	// Media cleanup is best-effort: an orphaned object is preferable to a
	// stuck sweep.
	s.deleteMedia(ctx, expired)

	ids := make([]uuid.UUID, 0, len(expired))
	for _, ep := range expired {
		ids = append(ids, ep.ID)
	}

	// All-or-nothing: if this fails, nothing is broadcast and the next
	// sweep retries.
	if err := s.posts.DeleteCascade(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete expired posts: %w", err)
	}

	metrics.PostsExpiredTotal.Add(float64(len(ids)))
	slog.Info("Expired posts retired", "count", len(ids))

	for _, id := range ids {
		s.broadcaster.Broadcast(ctx, domain.DeletePostEvent{PostID: id})
	}
	return nil
}

func (s *Sweeper) deleteMedia(ctx context.Context, expired []domain.ExpiredPost) {
	if s.media == nil {
		return
	}
	for _, ep := range expired {
		if ep.ImageKey == "" {
			continue
		}
		if err := s.media.Delete(ctx, ep.ImageKey); err != nil {
			slog.Error("Failed to delete media object", "key", ep.ImageKey, "error", err)
			metrics.MediaDeleteFailures.Inc()
		}
	}
}
