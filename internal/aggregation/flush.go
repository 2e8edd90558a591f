package aggregation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/dimension"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
	"golang.org/x/sync/errgroup"
)

// flush writes the run buffers. Sessions are reconciled first so the
// session-dependent caches know their buckets; each cache kind is then written
// in its own transaction. A flush is never interrupted part way: cancellation
// of ctx is ignored once it starts.
func (imp *Importer) flush(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	defer imp.resetRun()

	start := time.Now()
	var refs map[int64]sessionRef
	if imp.opts.CacheSessions && len(imp.pending) > 0 {
		var err error
		if refs, err = imp.reconcileSessions(ctx); err != nil {
			return fmt.Errorf("reconcile sessions: %w", err)
		}
	}
	imp.accumulateSessionCaches(refs)

	var g errgroup.Group
	g.SetLimit(imp.opts.FlushWorkers)

	if imp.opts.CallHud {
		lines := imp.hud.Lines(excluding[cache.HudKey](imp.tracker))
		g.Go(func() error { return imp.flushKeyed(ctx, cache.KindHud, lines) })
	}
	if imp.opts.CacheSessions && !imp.skipBucketCaches {
		cards := imp.cards.Lines(excluding[cache.CardsKey](imp.tracker))
		positions := imp.positions.Lines(excluding[cache.PositionsKey](imp.tracker))
		g.Go(func() error { return imp.flushKeyed(ctx, cache.KindCards, cards) })
		g.Go(func() error { return imp.flushKeyed(ctx, cache.KindPositions, positions) })
	}
	if imp.opts.CacheSessions {
		g.Go(func() error { return imp.flushCash(ctx) })
		g.Go(func() error { return imp.flushTour(ctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("flush caches: %w", err)
	}

	if imp.tracker.Pending() && !imp.skipBucketCaches {
		if err := imp.collector.Collect(ctx, imp.tracker); err != nil {
			return fmt.Errorf("collect superseded dimensions: %w", err)
		}
	}
	slog.Debug("[Importer] Caches flushed", "run_id", imp.runID, "duration", time.Since(start))
	return nil
}

func (imp *Importer) resetRun() {
	imp.resetBuffers()
	imp.tracker.Reset()
}

func excluding[K cache.Key](t *dimension.Tracker) func(K) bool {
	return func(k K) bool { return t.Excludes(k) }
}

func (imp *Importer) flushKeyed(ctx context.Context, kind cache.Kind, lines []cache.Line) error {
	if len(lines) == 0 {
		return nil
	}
	return imp.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		return mergeLines(ctx, tx, kind, lines)
	})
}

// mergeLines adds each line onto its cache row, inserting the rows that do
// not exist yet in one batch.
func mergeLines(ctx context.Context, tx *sqlstore.Tx, kind cache.Kind, lines []cache.Line) error {
	var fresh []cache.Line
	for i := range lines {
		id, found, err := tx.FindCacheRow(ctx, lines[i].Key)
		if err != nil {
			return err
		}
		if !found {
			fresh = append(fresh, lines[i])
			continue
		}
		if err := tx.AddToCacheRow(ctx, kind, id, &lines[i].Stats); err != nil {
			return err
		}
	}
	return tx.InsertCacheRows(ctx, kind, fresh)
}

func (imp *Importer) flushCash(ctx context.Context) error {
	if len(imp.cash) == 0 {
		return nil
	}
	keys := make([]cache.CashKey, 0, len(imp.cash))
	for k := range imp.cash {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b cache.CashKey) int {
		return cmp.Or(cmp.Compare(a.GametypeID, b.GametypeID), cmp.Compare(a.PlayerID, b.PlayerID))
	})

	thr := imp.opts.SessionThreshold
	return imp.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		for _, key := range keys {
			for _, win := range imp.cash[key].All() {
				rows, err := tx.OverlappingCashRows(ctx, key, win.Start.Add(-thr), win.End.Add(thr))
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					if err := tx.InsertCashRow(ctx, key, win.Payload.SessionID, win.Start, win.End, &win.Payload.Stats); err != nil {
						return err
					}
					continue
				}

				total := win.Payload.Stats
				start, end := win.Start, win.End
				others := make([]int64, 0, len(rows)-1)
				for i, r := range rows {
					if r.Start.Before(start) {
						start = r.Start
					}
					if r.End.After(end) {
						end = r.End
					}
					if i > 0 {
						total.Add(&r.Stats)
						others = append(others, r.ID)
					}
				}
				if err := tx.UpdateCashRow(ctx, rows[0].ID, start, end, win.Payload.SessionID, &total); err != nil {
					return err
				}
				if err := tx.DeleteCashRows(ctx, others); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (imp *Importer) flushTour(ctx context.Context) error {
	if len(imp.tour) == 0 {
		return nil
	}
	keys := make([]cache.TourKey, 0, len(imp.tour))
	for k := range imp.tour {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b cache.TourKey) int {
		return cmp.Or(cmp.Compare(a.TourneyID, b.TourneyID), cmp.Compare(a.PlayerID, b.PlayerID))
	})

	return imp.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		for _, key := range keys {
			line := imp.tour[key]
			if err := tx.AddTourLine(ctx, key, line.SessionID, line.Start, line.End, &line.Stats); err != nil {
				return err
			}
		}
		return nil
	})
}
