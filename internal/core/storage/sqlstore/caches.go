package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

func (c *conn) keyedFor(k cache.Kind) (*keyedQueries, error) {
	kq, ok := c.q.keyed[k]
	if !ok {
		return nil, fmt.Errorf("%s is not a keyed cache", k)
	}
	return kq, nil
}

// FindCacheRow looks up the row id of a keyed cache line.
func (c *conn) FindCacheRow(ctx context.Context, key cache.RowKey) (int64, bool, error) {
	kq, err := c.keyedFor(key.Kind())
	if err != nil {
		return 0, false, err
	}
	var id int64
	err = c.ext.QueryRowxContext(ctx, kq.selectID[key.CacheScope().Mode()], kq.spec.selectArgs(key)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fperrors.Storage("select "+kq.spec.table, err)
	}
	return id, true, nil
}

// AddToCacheRow adds v to the counters of row id.
func (c *conn) AddToCacheRow(ctx context.Context, kind cache.Kind, id int64, v *stats.Vector) error {
	kq, err := c.keyedFor(kind)
	if err != nil {
		return err
	}
	_, err = c.exec(ctx, "update "+kq.spec.table, kq.update, append(counterArgs(v), id)...)
	return err
}

// InsertCacheRows inserts new keyed lines with multi-row statements.
func (c *conn) InsertCacheRows(ctx context.Context, kind cache.Kind, lines []cache.Line) error {
	kq, err := c.keyedFor(kind)
	if err != nil {
		return err
	}
	perStmt := chunkSize * 20 / kq.width
	return eachChunk(len(lines), perStmt, func(lo, hi int) error {
		args := make([]any, 0, (hi-lo)*kq.width)
		for i := lo; i < hi; i++ {
			args = append(args, kq.spec.insertArgs(lines[i].Key, &lines[i].Stats)...)
		}
		_, err := c.exec(ctx, "insert "+kq.spec.table, c.multiRowInsert(kq.insertHead, kq.row, hi-lo), args...)
		return err
	})
}

// ClearCache deletes the rows of a kind within a selection and reports how
// many went; an unscoped clear empties the table and reports -1.
func (c *conn) ClearCache(ctx context.Context, kind cache.Kind, sel cache.Selection) (int64, error) {
	if err := sel.Validate(kind); err != nil {
		return 0, err
	}
	table := kind.String()
	if sel.IsAll() {
		if err := c.clearTable(ctx, table); err != nil {
			return 0, err
		}
		return -1, nil
	}

	var (
		where []string
		args  []any
	)
	if sel.TourneyTypeID != 0 {
		where = append(where, "tourneyTypeId = ?")
		args = append(args, sel.TourneyTypeID)
	}
	if sel.HasBucket() {
		where = append(where, "weekId = ?", "monthId = ?")
		args = append(args, sel.Bucket.WeekID, sel.Bucket.MonthID)
	}
	res, err := c.exec(ctx, "clear "+table,
		c.rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(where, " AND "))), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fperrors.Storage("clear "+table, err)
	}
	return n, nil
}

// AggregatePage returns the grouped lines of the hands with from < id <= to
// for a keyed kind, ordered by key.
func (c *conn) AggregatePage(ctx context.Context, kind cache.Kind, sel cache.Selection, fast bool, dayStart int, from, to int64) ([]cache.Line, error) {
	q, args, err := aggregateQuery(c.dialect, kind, sel, fast && kind == cache.KindHud, dayStart, from, to)
	if err != nil {
		return nil, err
	}
	rows, err := c.ext.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, fperrors.Storage("aggregate "+kind.String(), err)
	}
	defer rows.Close()

	var lines []cache.Line
	for rows.Next() {
		line, err := scanAggregate(kind, rows)
		if err != nil {
			return nil, fperrors.Storage("scan "+kind.String()+" aggregate", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fperrors.Storage("aggregate "+kind.String(), err)
	}
	return lines, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(kind cache.Kind, rows scanner) (cache.Line, error) {
	var (
		line     cache.Line
		gt, tt   sql.NullInt64
		pid      int64
		week, mo int64
	)
	switch kind {
	case cache.KindHud:
		var k cache.HudKey
		dest := append([]any{&gt, &tt, &pid, &k.ActiveSeats, &k.Position, &k.StyleKey}, counterDest(&line.Stats)...)
		if err := rows.Scan(dest...); err != nil {
			return line, err
		}
		k.Scope, k.PlayerID = cache.ScopeFor(gt.Int64, tt.Int64), pid
		line.Key = k
	case cache.KindCards:
		var k cache.CardsKey
		dest := append([]any{&week, &mo, &gt, &tt, &pid, &k.StreetID, &k.BoardID, &k.HiLo, &k.StartCards, &k.RankID},
			counterDest(&line.Stats)...)
		if err := rows.Scan(dest...); err != nil {
			return line, err
		}
		k.Buckets, k.Scope, k.PlayerID = cache.BucketPair{WeekID: week, MonthID: mo}, cache.ScopeFor(gt.Int64, tt.Int64), pid
		line.Key = k
	case cache.KindPositions:
		var k cache.PositionsKey
		dest := append([]any{&week, &mo, &gt, &tt, &pid, &k.ActiveSeats, &k.Position}, counterDest(&line.Stats)...)
		if err := rows.Scan(dest...); err != nil {
			return line, err
		}
		k.Buckets, k.Scope, k.PlayerID = cache.BucketPair{WeekID: week, MonthID: mo}, cache.ScopeFor(gt.Int64, tt.Int64), pid
		line.Key = k
	default:
		return line, fmt.Errorf("%s has no grouped rebuild", kind)
	}
	return line, nil
}

// OverlappingCashRows returns the CashCache lines of one player and game type
// intersecting [from, to], earliest start first.
func (c *conn) OverlappingCashRows(ctx context.Context, key cache.CashKey, from, to time.Time) ([]storage.CashRow, error) {
	cols := make([]string, stats.NumKeys)
	copy(cols, stats.Keys[:])
	rows, err := c.ext.QueryxContext(ctx, c.rebind(fmt.Sprintf(
		"SELECT id, sessionId, startTime, endTime, %s FROM CashCache "+
			"WHERE gametypeId = ? AND playerId = ? AND endTime >= ? AND startTime <= ? ORDER BY startTime, id",
		strings.Join(cols, ", "))), key.GametypeID, key.PlayerID, ts(from), ts(to))
	if err != nil {
		return nil, fperrors.Storage("select CashCache", err)
	}
	defer rows.Close()

	var out []storage.CashRow
	for rows.Next() {
		var (
			r   storage.CashRow
			sid sql.NullInt64
		)
		dest := append([]any{&r.ID, &sid, scanTime(&r.Start), scanTime(&r.End)}, counterDest(&r.Stats)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fperrors.Storage("scan CashCache", err)
		}
		r.SessionID = sid.Int64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fperrors.Storage("select CashCache", err)
	}
	return out, nil
}

// UpdateCashRow sets the span of a CashCache line, fills a missing session and
// adds v to its counters.
func (c *conn) UpdateCashRow(ctx context.Context, id int64, start, end time.Time, sessionID int64, v *stats.Vector) error {
	args := append([]any{ts(start), ts(end), nullID(sessionID)}, counterArgs(v)...)
	_, err := c.exec(ctx, "update CashCache", c.q.cashUpdate, append(args, id)...)
	return err
}

func (c *conn) InsertCashRow(ctx context.Context, key cache.CashKey, sessionID int64, start, end time.Time, v *stats.Vector) error {
	args := append([]any{nullID(sessionID), ts(start), ts(end), key.GametypeID, key.PlayerID}, counterArgs(v)...)
	_, err := c.exec(ctx, "insert CashCache", c.q.cashInsert, args...)
	return err
}

func (c *conn) DeleteCashRows(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.execIn(ctx, "delete CashCache", "DELETE FROM CashCache WHERE id IN (?)", ids)
	return err
}

// AddTourLine adds a player's tourney line into TourCache, widening the
// stored span, and inserts the row when there is none.
func (c *conn) AddTourLine(ctx context.Context, key cache.TourKey, sessionID int64, start, end time.Time, v *stats.Vector) error {
	s, e := ts(start), ts(end)
	args := append([]any{s, s, e, e, nullID(sessionID)}, counterArgs(v)...)
	res, err := c.exec(ctx, "update TourCache", c.q.tourUpdate, append(args, key.TourneyID, key.PlayerID)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fperrors.Storage("update TourCache", err)
	}
	if n > 0 {
		return nil
	}
	ins := append([]any{nullID(sessionID), s, e, key.TourneyID, key.PlayerID}, counterArgs(v)...)
	_, err = c.exec(ctx, "insert TourCache", c.q.tourInsert, ins...)
	return err
}
