package sqlstore

import (
	"context"
	"time"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

const sessionCols = "id, weekId, monthId, sessionStart, sessionEnd"

func (c *conn) querySessions(ctx context.Context, op, query string, args ...any) ([]storage.SessionRow, error) {
	rows, err := c.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fperrors.Storage(op, err)
	}
	defer rows.Close()

	var out []storage.SessionRow
	for rows.Next() {
		var s storage.SessionRow
		if err := rows.Scan(&s.ID, &s.WeekID, &s.MonthID, scanTime(&s.Start), scanTime(&s.End)); err != nil {
			return nil, fperrors.Storage(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fperrors.Storage(op, err)
	}
	return out, nil
}

// OverlappingSessions returns the sessions intersecting [from, to], earliest
// start first and lowest id on ties.
func (c *conn) OverlappingSessions(ctx context.Context, from, to time.Time) ([]storage.SessionRow, error) {
	return c.querySessions(ctx, "select overlapping sessions",
		c.rebind("SELECT "+sessionCols+" FROM SessionsCache WHERE sessionEnd >= ? AND sessionStart <= ? ORDER BY sessionStart, id"),
		ts(from), ts(to))
}

// AllSessions returns every session in start order.
func (c *conn) AllSessions(ctx context.Context) ([]storage.SessionRow, error) {
	return c.querySessions(ctx, "select sessions", "SELECT "+sessionCols+" FROM SessionsCache ORDER BY sessionStart, id")
}

func (c *conn) InsertSession(ctx context.Context, s storage.SessionRow) (int64, error) {
	var id int64
	err := c.ext.QueryRowxContext(ctx, c.rebind(
		"INSERT INTO SessionsCache (weekId, monthId, sessionStart, sessionEnd) VALUES (?, ?, ?, ?) RETURNING id"),
		s.WeekID, s.MonthID, ts(s.Start), ts(s.End)).Scan(&id)
	if err != nil {
		return 0, fperrors.Storage("insert session", err)
	}
	return id, nil
}

// UpdateSession rewrites the span and bucket ids of a session.
func (c *conn) UpdateSession(ctx context.Context, s storage.SessionRow) error {
	_, err := c.exec(ctx, "update session", c.rebind(
		"UPDATE SessionsCache SET weekId = ?, monthId = ?, sessionStart = ?, sessionEnd = ? WHERE id = ?"),
		s.WeekID, s.MonthID, ts(s.Start), ts(s.End), s.ID)
	return err
}

// RepointSessions moves every reference to the merged-away sessions onto the survivor.
func (c *conn) RepointSessions(ctx context.Context, survivor int64, merged []int64) error {
	if len(merged) == 0 {
		return nil
	}
	for _, table := range []string{"CashCache", "TourCache", "Tourneys", "Hands"} {
		if _, err := c.execIn(ctx, "repoint "+table,
			"UPDATE "+table+" SET sessionId = ? WHERE sessionId IN (?)", survivor, merged); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) DeleteSessions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.execIn(ctx, "delete sessions", "DELETE FROM SessionsCache WHERE id IN (?)", ids)
	return err
}

// AssignSession stamps sessionId on the hands and on their tourneys.
func (c *conn) AssignSession(ctx context.Context, sessionID int64, handIDs []int64) error {
	return eachChunk(len(handIDs), chunkSize, func(lo, hi int) error {
		ids := handIDs[lo:hi]
		if _, err := c.execIn(ctx, "assign hands session",
			"UPDATE Hands SET sessionId = ? WHERE id IN (?)", sessionID, ids); err != nil {
			return err
		}
		_, err := c.execIn(ctx, "assign tourneys session",
			"UPDATE Tourneys SET sessionId = ? WHERE id IN (SELECT tourneyId FROM Hands WHERE id IN (?) AND tourneyId IS NOT NULL)",
			sessionID, ids)
		return err
	})
}

// HandSession returns the session id of a stored hand, zero when unassigned.
func (c *conn) HandSession(ctx context.Context, handID int64) (int64, error) {
	var sid *int64
	if err := c.ext.QueryRowxContext(ctx, c.rebind("SELECT sessionId FROM Hands WHERE id = ?"), handID).Scan(&sid); err != nil {
		return 0, fperrors.Storage("hand session", err)
	}
	if sid == nil {
		return 0, nil
	}
	return *sid, nil
}

// ClearSessions drops every session, CashCache and TourCache row, and the
// session references of hands and tourneys. Week and month rows are kept so
// their ids survive a replay.
func (c *conn) ClearSessions(ctx context.Context) error {
	for _, table := range []string{"CashCache", "TourCache", "SessionsCache"} {
		if err := c.clearTable(ctx, table); err != nil {
			return err
		}
	}
	for _, table := range []string{"Hands", "Tourneys"} {
		if _, err := c.exec(ctx, "clear "+table+" sessions",
			"UPDATE "+table+" SET sessionId = NULL WHERE sessionId IS NOT NULL"); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) clearTable(ctx context.Context, table string) error {
	q := "DELETE FROM " + table
	if c.dialect == Postgres {
		q = "TRUNCATE TABLE " + table
	}
	_, err := c.exec(ctx, "clear "+table, q)
	return err
}

// SetSessionBuckets re-stamps the week and month of a session.
func (c *conn) SetSessionBuckets(ctx context.Context, sessionID, weekID, monthID int64) error {
	_, err := c.exec(ctx, "set session buckets",
		c.rebind("UPDATE SessionsCache SET weekId = ?, monthId = ? WHERE id = ?"), weekID, monthID, sessionID)
	return err
}
