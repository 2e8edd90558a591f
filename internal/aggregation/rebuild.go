package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/dimension"
	"github.com/Fulvio75/fpdb/internal/core/session"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
)

// RebuildOptions tunes one rebuild run.
type RebuildOptions struct {
	// ResumeAfter continues an interrupted rebuild after this hand id without
	// clearing the scope again.
	ResumeAfter int64
}

// Progress reports how far a rebuild went.
type Progress struct {
	Kind                cache.Kind
	Selection           cache.Selection
	Pages               int
	Lines               int
	LastCompletedHandID int64
	Duration            time.Duration
}

// RebuildError carries the resume point of a failed rebuild.
type RebuildError struct {
	Kind                cache.Kind
	LastCompletedHandID int64
	Err                 error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("rebuild %s stopped after hand %d: %v", e.Kind, e.LastCompletedHandID, e.Err)
}

func (e *RebuildError) Unwrap() error { return e.Err }

// Rebuilder recomputes caches from the stored hands, one page of hand ids per
// transaction.
type Rebuilder struct {
	store *sqlstore.Store
	opts  Options
}

func NewRebuilder(store *sqlstore.Store, opts Options) *Rebuilder {
	return &Rebuilder{store: store, opts: opts.normalized()}
}

// Rebuild recomputes the rows of a keyed cache within sel. Each page commits
// on its own, so a failure leaves the pages before it in place and the error
// names the hand to resume after.
func (r *Rebuilder) Rebuild(ctx context.Context, kind cache.Kind, sel cache.Selection, ro RebuildOptions) (Progress, error) {
	p := Progress{Kind: kind, Selection: sel, LastCompletedHandID: ro.ResumeAfter}
	if !kind.HasTourneyDimension() {
		return p, fmt.Errorf("%s is rebuilt with the sessions", kind)
	}
	if err := sel.Validate(kind); err != nil {
		return p, err
	}
	started := time.Now()

	lo, hi, err := r.store.HandIDBounds(ctx)
	if err != nil {
		return p, &RebuildError{Kind: kind, LastCompletedHandID: p.LastCompletedHandID, Err: err}
	}
	if ro.ResumeAfter == 0 {
		if _, err := r.store.ClearCache(ctx, kind, sel); err != nil {
			return p, &RebuildError{Kind: kind, Err: err}
		}
		p.LastCompletedHandID = lo - 1
	}

	for cursor := p.LastCompletedHandID; cursor < hi; {
		if err := ctx.Err(); err != nil {
			return p, &RebuildError{Kind: kind, LastCompletedHandID: cursor, Err: err}
		}
		to := min(cursor+int64(r.opts.PageSize), hi)
		var n int
		err := r.store.InTx(ctx, func(tx *sqlstore.Tx) error {
			lines, err := tx.AggregatePage(ctx, kind, sel, r.opts.FastHud, r.opts.DayStart, cursor, to)
			if err != nil {
				return err
			}
			n = len(lines)
			return mergeLines(ctx, tx, kind, lines)
		})
		if err != nil {
			return p, &RebuildError{Kind: kind, LastCompletedHandID: cursor, Err: err}
		}
		cursor = to
		p.Pages++
		p.Lines += n
		p.LastCompletedHandID = cursor
	}

	p.Duration = time.Since(started)
	slog.Info("[Rebuild] Cache rebuilt",
		"kind", kind.String(),
		"selection", sel.String(),
		"pages", p.Pages,
		"lines", p.Lines,
		"duration", p.Duration,
	)
	return p, nil
}

// RebuildSessions replays every stored hand through the session windows,
// rewriting SessionsCache, CashCache and TourCache, then rebuilds the caches
// keyed by week and month.
func (r *Rebuilder) RebuildSessions(ctx context.Context) (Progress, error) {
	p := Progress{Kind: cache.KindCash}
	started := time.Now()

	if err := r.store.InTx(ctx, func(tx *sqlstore.Tx) error { return tx.ClearSessions(ctx) }); err != nil {
		return p, fmt.Errorf("clear sessions: %w", err)
	}
	lo, hi, err := r.store.HandIDBounds(ctx)
	if err != nil {
		return p, err
	}

	opts := r.opts
	opts.CallHud = false
	opts.CacheSessions = true
	imp := NewImporter(r.store, opts)
	imp.skipBucketCaches = true
	imp.beginRun()
	ctx = dimension.WithMemo(ctx, imp.memo)

	for cursor := lo - 1; cursor < hi; {
		if err := ctx.Err(); err != nil {
			return p, &RebuildError{Kind: cache.KindCash, LastCompletedHandID: cursor, Err: err}
		}
		to := min(cursor+int64(r.opts.PageSize), hi)
		hands, err := r.store.HandsPage(ctx, cursor, to)
		if err != nil {
			return p, &RebuildError{Kind: cache.KindCash, LastCompletedHandID: cursor, Err: err}
		}
		for _, h := range hands {
			imp.accumulate(h)
		}
		if err := imp.flush(ctx); err != nil {
			return p, &RebuildError{Kind: cache.KindCash, LastCompletedHandID: cursor, Err: err}
		}
		cursor = to
		p.Pages++
		p.Lines += len(hands)
		p.LastCompletedHandID = cursor
	}

	n, err := r.store.DeleteAllOrphanBuckets(ctx)
	if err != nil {
		return p, err
	}
	p.Duration = time.Since(started)
	slog.Info("[Rebuild] Sessions rebuilt", "pages", p.Pages, "hands", p.Lines, "orphan_buckets", n, "duration", p.Duration)

	for _, k := range r.opts.keyedKinds(cache.Kind.HasBucketDimension) {
		if _, err := r.Rebuild(ctx, k, cache.SelectAll(), RebuildOptions{}); err != nil {
			return p, err
		}
	}
	return p, nil
}

// RebuildAll rebuilds every enabled cache.
func (r *Rebuilder) RebuildAll(ctx context.Context) error {
	var errs []error
	if r.opts.CacheSessions {
		if _, err := r.RebuildSessions(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.opts.CallHud {
		if _, err := r.Rebuild(ctx, cache.KindHud, cache.SelectAll(), RebuildOptions{}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpdateTimezone re-buckets every session under loc and repairs the Cards and
// Positions rows of the pairs that changed.
func (r *Rebuilder) UpdateTimezone(ctx context.Context, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	r.opts.Location = loc
	ctx = dimension.WithMemo(ctx, dimension.NewMemo())
	tracker := dimension.NewTracker()

	moved := 0
	err := r.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		res := dimension.NewResolver(tx, tracker)
		sessions, err := tx.AllSessions(ctx)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			week, month := session.Buckets(s.Start, loc)
			wid, err := res.Week(ctx, week)
			if err != nil {
				return err
			}
			mid, err := res.Month(ctx, month)
			if err != nil {
				return err
			}
			old := cache.BucketPair{WeekID: s.WeekID, MonthID: s.MonthID}
			pair := cache.BucketPair{WeekID: wid, MonthID: mid}
			if old == pair {
				continue
			}
			if err := tx.SetSessionBuckets(ctx, s.ID, wid, mid); err != nil {
				return err
			}
			tracker.MoveBucket(old, pair)
			moved++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update timezone: %w", err)
	}
	slog.Info("[Rebuild] Sessions re-bucketed", "timezone", loc.String(), "moved", moved)

	old, current := tracker.Buckets()
	return NewCollector(r.store, r.opts).ReconcileSupersededBuckets(ctx, old, current)
}
