package aggregation

import (
	"context"
	"log/slog"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/dimension"
	"github.com/Fulvio75/fpdb/internal/core/session"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
)

// reconcileSessions merges the run's in-memory sessions with the persisted
// ones and stamps every session hand. A persisted session within the
// threshold of a run session is absorbed; when several are, the earliest
// survives and the others are repointed onto it and deleted.
func (imp *Importer) reconcileSessions(ctx context.Context) (map[int64]sessionRef, error) {
	sessions := imp.windower.Sessions()
	if len(sessions) == 0 {
		return nil, nil
	}

	refs := make(map[int64]sessionRef)
	scratch := dimension.NewTracker()
	thr := imp.opts.SessionThreshold

	err := imp.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		res := dimension.NewResolver(tx, scratch)
		for _, s := range sessions {
			overlap, err := tx.OverlappingSessions(ctx, s.Start.Add(-thr), s.End.Add(thr))
			if err != nil {
				return err
			}
			start, end := s.Start, s.End
			for _, o := range overlap {
				if o.Start.Before(start) {
					start = o.Start
				}
				if o.End.After(end) {
					end = o.End
				}
			}

			week, month := session.Buckets(start, imp.opts.Location)
			wid, err := res.Week(ctx, week)
			if err != nil {
				return err
			}
			mid, err := res.Month(ctx, month)
			if err != nil {
				return err
			}
			pair := cache.BucketPair{WeekID: wid, MonthID: mid}
			row := storage.SessionRow{WeekID: wid, MonthID: mid, Start: start, End: end}

			if len(overlap) == 0 {
				row.ID, err = tx.InsertSession(ctx, row)
				if err != nil {
					return err
				}
			} else {
				row.ID = overlap[0].ID
				merged := make([]int64, 0, len(overlap)-1)
				for i, o := range overlap {
					if old := (cache.BucketPair{WeekID: o.WeekID, MonthID: o.MonthID}); old != pair {
						scratch.MoveBucket(old, pair)
					}
					if i > 0 {
						merged = append(merged, o.ID)
					}
				}
				if err := tx.UpdateSession(ctx, row); err != nil {
					return err
				}
				if err := tx.RepointSessions(ctx, row.ID, merged); err != nil {
					return err
				}
				if err := tx.DeleteSessions(ctx, merged); err != nil {
					return err
				}
				repoint(refs, row.ID, pair, merged)
				if len(merged) > 0 {
					slog.Debug("[Sessions] Persisted sessions merged", "survivor", row.ID, "merged", merged)
				}
			}

			if err := tx.AssignSession(ctx, row.ID, s.HandIDs); err != nil {
				return err
			}
			for _, id := range s.HandIDs {
				refs[id] = sessionRef{SessionID: row.ID, Buckets: pair}
			}
		}
		return nil
	})
	if err != nil {
		imp.memo.Reset()
		return nil, err
	}
	imp.tracker.Merge(scratch)
	return refs, nil
}

// repoint rewrites refs of this run that pointed at sessions merged into survivor.
func repoint(refs map[int64]sessionRef, survivor int64, pair cache.BucketPair, merged []int64) {
	gone := make(map[int64]bool, len(merged)+1)
	gone[survivor] = true
	for _, id := range merged {
		gone[id] = true
	}
	for hid, ref := range refs {
		if gone[ref.SessionID] {
			refs[hid] = sessionRef{SessionID: survivor, Buckets: pair}
		}
	}
}
