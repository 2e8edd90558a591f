package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrHeld is returned by a no-wait acquisition when another holder owns the lock.
var ErrHeld = errors.New("insert lock is held by another writer")

// DefaultRetryInterval is the polling interval of a blocking acquisition.
const DefaultRetryInterval = 10 * time.Millisecond

// Store is the single-row lock table.
type Store interface {
	// TryAcquireLock flips the row to locked for holder. It reports false when
	// the row is already locked.
	TryAcquireLock(ctx context.Context, holder string, at time.Time) (bool, error)
	// ReleaseLock unlocks the row if holder owns it.
	ReleaseLock(ctx context.Context, holder string) (bool, error)
}

// Lock is a cooperative advisory lock serializing bulk writers across
// processes. One Lock value carries one holder identity.
type Lock struct {
	store  Store
	holder string
	retry  time.Duration
	now    func() time.Time
}

func New(store Store, retry time.Duration) *Lock {
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	return &Lock{
		store:  store,
		holder: uuid.NewString(),
		retry:  retry,
		now:    time.Now,
	}
}

// Holder returns the identity written into the lock row.
func (l *Lock) Holder() string { return l.holder }

// Acquire takes the lock. With wait it polls every retry interval until the
// lock is free or ctx is done; without wait it fails fast with ErrHeld.
func (l *Lock) Acquire(ctx context.Context, wait bool) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	attempts := 0
	for {
		ok, err := l.store.TryAcquireLock(ctx, l.holder, l.now().UTC())
		if err != nil {
			return fmt.Errorf("acquire insert lock: %w", err)
		}
		if ok {
			if attempts > 0 {
				slog.Debug("[Lock] Acquired after contention", "holder", l.holder, "attempts", attempts+1)
			}
			return nil
		}
		if !wait {
			return ErrHeld
		}
		attempts++
		if attempts == 1 {
			slog.Debug("[Lock] Held by another writer, waiting", "holder", l.holder, "retry", l.retry)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire insert lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release frees the lock. Releasing a lock this holder does not own is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	ok, err := l.store.ReleaseLock(ctx, l.holder)
	if err != nil {
		return fmt.Errorf("release insert lock: %w", err)
	}
	if !ok {
		slog.Debug("[Lock] Release without ownership", "holder", l.holder)
	}
	return nil
}

// With runs fn while holding the lock.
func (l *Lock) With(ctx context.Context, wait bool, fn func(context.Context) error) (err error) {
	if err := l.Acquire(ctx, wait); err != nil {
		return err
	}
	defer func() {
		relErr := l.Release(context.WithoutCancel(ctx))
		if err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
