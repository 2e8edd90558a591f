package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/Fulvio75/fpdb/internal/core/dimension"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
)

// SummaryReport tells what a tourney summary import changed.
type SummaryReport struct {
	TourneyID     int64 `json:"tourneyId"`
	TourneyTypeID int64 `json:"tourneyTypeId"`
	Inserted      int   `json:"inserted"`
	Updated       int   `json:"updated"`
}

// ImportSummary stores a tourney summary: it refines the tourney type, fills
// the tourney attributes it did not know and merges the finishing results.
// A result field the summary leaves out keeps its stored value.
func (imp *Importer) ImportSummary(ctx context.Context, s storage.TourneySummary) (SummaryReport, error) {
	var report SummaryReport
	if s.SiteTourneyNo == "" {
		return report, errors.New("missing site tourney number")
	}
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.beginRun()

	err := imp.withLock(ctx, func(ctx context.Context) error {
		ctx = dimension.WithMemo(ctx, imp.memo)
		scratch := dimension.NewTracker()
		heroName, hasHero := imp.opts.hero(s.Site)

		err := imp.store.InTx(ctx, func(tx *sqlstore.Tx) error {
			res := dimension.NewResolver(tx, scratch)
			siteID, err := res.Site(ctx, s.Site)
			if err != nil {
				return err
			}
			if s.Gametype != (storage.Gametype{}) {
				if _, err := res.Gametype(ctx, siteID, s.Gametype); err != nil {
					return err
				}
			}
			tid, ttid, err := res.Tourney(ctx, siteID, s.SiteTourneyNo, s.Type)
			if err != nil {
				return err
			}
			report.TourneyID, report.TourneyTypeID = tid, ttid
			if err := tx.MergeTourneyInfo(ctx, tid, s.Info); err != nil {
				return err
			}

			existing, err := tx.TourneysPlayers(ctx, tid)
			if err != nil {
				return err
			}
			var fresh []storage.TourneysPlayerRow
			for _, r := range s.Players {
				pid, err := res.Player(ctx, siteID, r.Name, hasHero && r.Name == heroName)
				if err != nil {
					return err
				}
				row, ok := existing[[2]int64{pid, int64(r.EntryID)}]
				if !ok {
					fresh = append(fresh, storage.TourneysPlayerRow{TourneyID: tid, PlayerID: pid, EntryID: r.EntryID, Result: r})
					continue
				}
				merged := mergeResult(row.Result, r)
				if reflect.DeepEqual(merged, row.Result) {
					continue
				}
				if err := tx.UpdateTourneysPlayerResult(ctx, row.ID, merged); err != nil {
					return err
				}
				report.Updated++
			}
			report.Inserted = len(fresh)
			return tx.InsertTourneysPlayers(ctx, fresh)
		})
		if err != nil {
			imp.memo.Reset()
			return err
		}

		imp.tracker.Merge(scratch)
		defer imp.tracker.Reset()
		if imp.tracker.Pending() {
			return imp.collector.Collect(context.WithoutCancel(ctx), imp.tracker)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("import tourney summary %s: %w", s.SiteTourneyNo, err)
	}

	slog.Info("[Importer] Tourney summary imported",
		"site_tourney_no", s.SiteTourneyNo,
		"tourney_id", report.TourneyID,
		"inserted", report.Inserted,
		"updated", report.Updated,
	)
	return report, nil
}

// mergeResult overlays the known fields of rec onto the stored result.
func mergeResult(stored, rec storage.TourneyResult) storage.TourneyResult {
	out := stored
	out.EntryID = rec.EntryID
	if rec.Rank != nil {
		out.Rank = rec.Rank
	}
	if rec.Winnings != nil {
		out.Winnings = rec.Winnings
	}
	if rec.WinningsCurrency != nil {
		out.WinningsCurrency = rec.WinningsCurrency
	}
	if rec.RebuyCount != nil {
		out.RebuyCount = rec.RebuyCount
	}
	if rec.AddOnCount != nil {
		out.AddOnCount = rec.AddOnCount
	}
	if rec.KoCount != nil {
		out.KoCount = rec.KoCount
	}
	return out
}
