package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// HudHand loads the hand a HUD is drawn for, with its seated players.
func (c *conn) HudHand(ctx context.Context, handID int64) (storage.HudHand, error) {
	var (
		h       storage.HudHand
		tt, sid sql.NullInt64
	)
	err := c.ext.QueryRowxContext(ctx, c.rebind(
		"SELECT h.id, h.gametypeId, t.tourneyTypeId, h.sessionId, h.startTime, h.seats, h.heroSeat "+
			"FROM Hands h LEFT JOIN Tourneys t ON t.id = h.tourneyId WHERE h.id = ?"), handID,
	).Scan(&h.ID, &h.GametypeID, &tt, &sid, scanTime(&h.StartTime), &h.Seats, &h.HeroSeat)
	if errors.Is(err, sql.ErrNoRows) {
		return h, storage.ErrNotFound
	}
	if err != nil {
		return h, fperrors.Storage("load hud hand", err)
	}
	h.TourneyTypeID, h.SessionID = tt.Int64, sid.Int64

	rows, err := c.ext.QueryxContext(ctx, c.rebind(
		"SELECT hp.playerId, p.name, hp.seatNo FROM HandsPlayers hp JOIN Players p ON p.id = hp.playerId "+
			"WHERE hp.handId = ? ORDER BY hp.seatNo"), handID)
	if err != nil {
		return h, fperrors.Storage("load hud seats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s storage.HudSeat
		if err := rows.Scan(&s.PlayerID, &s.Name, &s.SeatNo); err != nil {
			return h, fperrors.Storage("scan hud seat", err)
		}
		s.Hero = h.HeroSeat != 0 && s.SeatNo == h.HeroSeat
		h.Players = append(h.Players, s)
	}
	if err := rows.Err(); err != nil {
		return h, fperrors.Storage("load hud seats", err)
	}
	return h, nil
}

// HudTotals sums the HudCache rows matching q per player.
func (c *conn) HudTotals(ctx context.Context, q storage.HudQuery) (map[int64]stats.Vector, error) {
	if len(q.PlayerIDs) == 0 {
		return map[int64]stats.Vector{}, nil
	}
	scope, args := "h.tourneyTypeId IS NULL", []any{q.GametypeID}
	if q.TourneyTypeID != 0 {
		scope = "h.tourneyTypeId = ?"
		args = append(args, q.TourneyTypeID)
	}
	args = append(args, q.PlayerIDs, q.MinSeats, q.MaxSeats, q.StyleKeyAfter)

	query, bound, err := c.in(fmt.Sprintf(
		"SELECT h.playerId, %s FROM HudCache h WHERE h.gametypeId = ? AND %s AND h.playerId IN (?) "+
			"AND h.activeSeats BETWEEN ? AND ? AND h.styleKey > ? GROUP BY h.playerId",
		sumAll("h"), scope), args...)
	if err != nil {
		return nil, fperrors.Storage("hud totals", err)
	}
	return c.totalsByPlayer(ctx, "hud totals", query, bound)
}

// LiveTotals aggregates the stored hands of a live session per player,
// bypassing the caches.
func (c *conn) LiveTotals(ctx context.Context, q storage.LiveQuery) (map[int64]stats.Vector, error) {
	if len(q.PlayerIDs) == 0 {
		return map[int64]stats.Vector{}, nil
	}
	var (
		span string
		args = []any{q.GametypeID, q.PlayerIDs}
	)
	if q.SessionID != 0 {
		span = "h.sessionId = ?"
		args = append(args, q.SessionID)
	} else {
		span = "h.startTime BETWEEN ? AND ?"
		args = append(args, ts(q.From), ts(q.To))
	}
	query, bound, err := c.in(fmt.Sprintf(
		"SELECT hp.playerId, %s FROM HandsPlayers hp JOIN Hands h ON h.id = hp.handId "+
			"WHERE h.gametypeId = ? AND hp.playerId IN (?) AND %s GROUP BY hp.playerId",
		sumCounters("hp"), span), args...)
	if err != nil {
		return nil, fperrors.Storage("live totals", err)
	}
	return c.totalsByPlayer(ctx, "live totals", query, bound)
}

func (c *conn) totalsByPlayer(ctx context.Context, op, query string, args []any) (map[int64]stats.Vector, error) {
	rows, err := c.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fperrors.Storage(op, err)
	}
	defer rows.Close()

	out := make(map[int64]stats.Vector)
	for rows.Next() {
		var (
			pid int64
			v   stats.Vector
		)
		if err := rows.Scan(append([]any{&pid}, counterDest(&v)...)...); err != nil {
			return nil, fperrors.Storage(op, err)
		}
		out[pid] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fperrors.Storage(op, err)
	}
	return out, nil
}

// sumAll sums every counter column of a cache alias.
func sumAll(alias string) string {
	var b []byte
	for i, k := range stats.Keys {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = fmt.Appendf(b, "SUM(%s.%s)", alias, k)
	}
	return string(b)
}
