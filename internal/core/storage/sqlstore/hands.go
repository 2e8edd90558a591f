package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// InsertHand writes a hand with its players and stove rows and sets h.ID. A
// hand already stored under (siteHandNo, gametypeId) yields storage.ErrDuplicate
// and writes nothing.
func (c *conn) InsertHand(ctx context.Context, h *storage.StoredHand) error {
	var id int64
	err := c.ext.QueryRowxContext(ctx, c.rebind(
		"INSERT INTO Hands (siteHandNo, gametypeId, tourneyId, tableName, startTime, seats, heroSeat) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING RETURNING id"),
		h.SiteHandNo, h.GametypeID, nullID(h.TourneyID), h.TableName, ts(h.StartTime), h.Seats, h.HeroSeat,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fperrors.Storage("insert hand", err)
	}
	h.ID = id

	if err := c.insertHandsPlayers(ctx, h); err != nil {
		return err
	}
	return c.insertStove(ctx, h)
}

func (c *conn) insertHandsPlayers(ctx context.Context, h *storage.StoredHand) error {
	if len(h.Players) == 0 {
		return nil
	}
	args := make([]any, 0, len(h.Players)*c.q.handsPlayersWidth)
	for i := range h.Players {
		p := &h.Players[i]
		args = append(args, h.ID, p.PlayerID, p.SeatNo, p.Position, p.StartCards, nullID(p.TourneysPlayersID))
		for _, x := range p.Stats[1:] {
			args = append(args, x)
		}
	}
	q := c.multiRowInsert(c.q.handsPlayersInsertHead, c.q.handsPlayersRow, len(h.Players))
	_, err := c.exec(ctx, "insert hands players", q, args...)
	return err
}

func (c *conn) insertStove(ctx context.Context, h *storage.StoredHand) error {
	if len(h.Stove) == 0 {
		return nil
	}
	args := make([]any, 0, len(h.Stove)*6)
	for _, s := range h.Stove {
		args = append(args, h.ID, s.PlayerID, s.StreetID, s.BoardID, s.HiLo, s.RankID)
	}
	q := c.multiRowInsert("INSERT INTO HandsStove (handId, playerId, streetId, boardId, hiLo, rankId) VALUES ",
		placeholders(6), len(h.Stove))
	_, err := c.exec(ctx, "insert hands stove", q, args...)
	return err
}

// HandIDBounds returns the smallest and largest stored hand ids, both zero
// when there are no hands.
func (c *conn) HandIDBounds(ctx context.Context) (lo, hi int64, err error) {
	err = c.ext.QueryRowxContext(ctx, "SELECT COALESCE(MIN(id), 0), COALESCE(MAX(id), 0) FROM Hands").Scan(&lo, &hi)
	if err != nil {
		return 0, 0, fperrors.Storage("hand id bounds", err)
	}
	return lo, hi, nil
}

// HandsPage loads the hands with from < id <= to in id order, players and
// stove rows included. Player vectors carry hands=1.
func (c *conn) HandsPage(ctx context.Context, from, to int64) ([]storage.StoredHand, error) {
	rows, err := c.ext.QueryxContext(ctx, c.rebind(
		"SELECT h.id, h.siteHandNo, h.gametypeId, h.tourneyId, t.tourneyTypeId, h.tableName, h.startTime, h.seats, h.heroSeat "+
			"FROM Hands h LEFT JOIN Tourneys t ON t.id = h.tourneyId WHERE h.id > ? AND h.id <= ? ORDER BY h.id"),
		from, to)
	if err != nil {
		return nil, fperrors.Storage("load hands page", err)
	}
	var (
		hands []storage.StoredHand
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			h          storage.StoredHand
			tid, ttype sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.SiteHandNo, &h.GametypeID, &tid, &ttype, &h.TableName,
			scanTime(&h.StartTime), &h.Seats, &h.HeroSeat); err != nil {
			rows.Close()
			return nil, fperrors.Storage("scan hand", err)
		}
		h.TourneyID, h.TourneyTypeID = tid.Int64, ttype.Int64
		index[h.ID] = len(hands)
		hands = append(hands, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fperrors.Storage("load hands page", err)
	}
	if len(hands) == 0 {
		return nil, nil
	}

	if err := c.loadPagePlayers(ctx, from, to, hands, index); err != nil {
		return nil, err
	}
	if err := c.loadPageStove(ctx, from, to, hands, index); err != nil {
		return nil, err
	}
	return hands, nil
}

func (c *conn) loadPagePlayers(ctx context.Context, from, to int64, hands []storage.StoredHand, index map[int64]int) error {
	cols := make([]string, 0, stats.NumKeys-1)
	for _, k := range stats.Keys[1:] {
		cols = append(cols, "hp."+k)
	}
	rows, err := c.ext.QueryxContext(ctx, c.rebind(fmt.Sprintf(
		"SELECT hp.handId, hp.playerId, hp.seatNo, hp.position, hp.startCards, hp.tourneysPlayersId, %s "+
			"FROM HandsPlayers hp WHERE hp.handId > ? AND hp.handId <= ? ORDER BY hp.handId, hp.seatNo",
		strings.Join(cols, ", "))), from, to)
	if err != nil {
		return fperrors.Storage("load hands players", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			handID int64
			tp     sql.NullInt64
			p      storage.StoredPlayer
		)
		dest := []any{&handID, &p.PlayerID, &p.SeatNo, &p.Position, &p.StartCards, &tp}
		dest = append(dest, counterDest(&p.Stats)[1:]...)
		if err := rows.Scan(dest...); err != nil {
			return fperrors.Storage("scan hands player", err)
		}
		p.TourneysPlayersID = tp.Int64
		p.Stats[stats.HandsIndex] = 1
		if i, ok := index[handID]; ok {
			hands[i].Players = append(hands[i].Players, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fperrors.Storage("load hands players", err)
	}
	return nil
}

func (c *conn) loadPageStove(ctx context.Context, from, to int64, hands []storage.StoredHand, index map[int64]int) error {
	rows, err := c.ext.QueryxContext(ctx, c.rebind(
		"SELECT handId, playerId, streetId, boardId, hiLo, rankId FROM HandsStove "+
			"WHERE handId > ? AND handId <= ? ORDER BY handId, id"), from, to)
	if err != nil {
		return fperrors.Storage("load hands stove", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			handID int64
			s      storage.StoredStove
		)
		if err := rows.Scan(&handID, &s.PlayerID, &s.StreetID, &s.BoardID, &s.HiLo, &s.RankID); err != nil {
			return fperrors.Storage("scan hands stove", err)
		}
		if i, ok := index[handID]; ok {
			hands[i].Stove = append(hands[i].Stove, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fperrors.Storage("load hands stove", err)
	}
	return nil
}
