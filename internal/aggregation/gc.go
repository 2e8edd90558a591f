package aggregation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/dimension"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
)

// Collector repairs the keyed caches after a dimension row was superseded:
// a tourney type promoted to a more specific one, or a session moved to
// another week/month pair. Rows of the affected scopes are cleared and
// rebuilt from the stored hands, and dimension rows nothing references any
// more are deleted.
type Collector struct {
	store     *sqlstore.Store
	opts      Options
	rebuilder *Rebuilder
}

func NewCollector(store *sqlstore.Store, opts Options) *Collector {
	opts = opts.normalized()
	return &Collector{store: store, opts: opts, rebuilder: NewRebuilder(store, opts)}
}

// Collect runs both reconciliations for what t recorded.
func (c *Collector) Collect(ctx context.Context, t *dimension.Tracker) error {
	old, current := t.TourneyTypes()
	if err := c.ReconcileSupersededTourneyTypes(ctx, old, current); err != nil {
		return err
	}
	oldPairs, newPairs := t.Buckets()
	return c.ReconcileSupersededBuckets(ctx, oldPairs, newPairs)
}

// ReconcileSupersededTourneyTypes clears the cache rows of the old types,
// deletes the types no tourney uses, and rebuilds the rows of the current
// types plus the old types that are still in use.
func (c *Collector) ReconcileSupersededTourneyTypes(ctx context.Context, old, current []int64) error {
	if len(old) == 0 && len(current) == 0 {
		return nil
	}
	kinds := c.opts.keyedKinds(cache.Kind.HasTourneyDimension)
	rebuild := append([]int64(nil), current...)

	err := c.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		for _, id := range old {
			for _, k := range kinds {
				if _, err := tx.ClearCache(ctx, k, cache.SelectTourneyType(id)); err != nil {
					return err
				}
			}
			inUse, err := tx.TourneyTypeInUse(ctx, id)
			if err != nil {
				return err
			}
			if inUse {
				rebuild = append(rebuild, id)
				continue
			}
			if err := tx.DeleteTourneyType(ctx, id); err != nil {
				return err
			}
			slog.Info("[Collector] Tourney type deleted", "tourney_type_id", id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear superseded tourney types: %w", err)
	}
	// Memoized fingerprints may still name a deleted type.
	dimension.MemoFrom(ctx).ForgetKind(dimension.KindTourneyType)

	for _, id := range rebuild {
		for _, k := range kinds {
			if _, err := c.rebuilder.Rebuild(ctx, k, cache.SelectTourneyType(id), RebuildOptions{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReconcileSupersededBuckets clears the Cards and Positions rows of the old
// pairs, drops week and month rows left without sessions, and rebuilds every
// pair involved.
func (c *Collector) ReconcileSupersededBuckets(ctx context.Context, old, current []cache.BucketPair) error {
	if len(old) == 0 && len(current) == 0 {
		return nil
	}
	kinds := c.opts.keyedKinds(cache.Kind.HasBucketDimension)

	var orphans int64
	err := c.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		for _, p := range old {
			for _, k := range kinds {
				if _, err := tx.ClearCache(ctx, k, cache.SelectBucket(p)); err != nil {
					return err
				}
			}
		}
		n, err := tx.DeleteOrphanBuckets(ctx, old)
		orphans = n
		return err
	})
	if err != nil {
		return fmt.Errorf("clear superseded buckets: %w", err)
	}
	if orphans > 0 {
		slog.Info("[Collector] Orphan week/month rows deleted", "rows", orphans)
	}
	dimension.MemoFrom(ctx).ForgetKind(dimension.KindWeek)
	dimension.MemoFrom(ctx).ForgetKind(dimension.KindMonth)

	seen := make(map[cache.BucketPair]bool, len(old)+len(current))
	for _, p := range append(append([]cache.BucketPair(nil), current...), old...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		for _, k := range kinds {
			if _, err := c.rebuilder.Rebuild(ctx, k, cache.SelectBucket(p), RebuildOptions{}); err != nil {
				return err
			}
		}
	}
	return nil
}
