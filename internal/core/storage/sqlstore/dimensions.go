package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// insertOrGet runs an INSERT ... ON CONFLICT DO NOTHING RETURNING id and falls
// back to selecting the existing row when the insert hit the natural key.
func (c *conn) insertOrGet(ctx context.Context, op, insert string, insertArgs []any, sel string, selArgs []any) (int64, error) {
	var id int64
	err := c.ext.QueryRowxContext(ctx, c.rebind(insert), insertArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fperrors.Storage(op, err)
	}
	if err := c.ext.QueryRowxContext(ctx, c.rebind(sel), selArgs...).Scan(&id); err != nil {
		return 0, fperrors.Storage(op+": reselect", err)
	}
	return id, nil
}

func (c *conn) EnsureSite(ctx context.Context, name string) (int64, error) {
	return c.insertOrGet(ctx, "ensure site",
		"INSERT INTO Sites (name) VALUES (?) ON CONFLICT DO NOTHING RETURNING id", []any{name},
		"SELECT id FROM Sites WHERE name = ?", []any{name})
}

var gametypeCols = []string{"type", "base", "category", "limitType", "currency",
	"smallBlind", "bigBlind", "smallBet", "bigBet", "maxSeats", "ante"}

func gametypeArgs(siteID int64, gt storage.Gametype) []any {
	return []any{siteID, gt.Type, gt.Base, gt.Category, gt.LimitType, gt.Currency,
		gt.SmallBlind, gt.BigBlind, gt.SmallBet, gt.BigBet, gt.MaxSeats, gt.Ante}
}

func (c *conn) EnsureGametype(ctx context.Context, siteID int64, gt storage.Gametype) (int64, error) {
	cols := append([]string{"siteId"}, gametypeCols...)
	args := gametypeArgs(siteID, gt)
	return c.insertOrGet(ctx, "ensure gametype",
		fmt.Sprintf("INSERT INTO Gametypes (%s) VALUES %s ON CONFLICT DO NOTHING RETURNING id",
			strings.Join(cols, ", "), placeholders(len(cols))), args,
		"SELECT id FROM Gametypes WHERE "+equalsAll(cols), args)
}

func (c *conn) EnsurePlayer(ctx context.Context, siteID int64, name string, hero bool) (int64, error) {
	id, err := c.insertOrGet(ctx, "ensure player",
		"INSERT INTO Players (siteId, name, hero) VALUES (?, ?, ?) ON CONFLICT DO NOTHING RETURNING id",
		[]any{siteID, name, hero},
		"SELECT id FROM Players WHERE siteId = ? AND name = ?", []any{siteID, name})
	if err != nil || !hero {
		return id, err
	}
	if _, err := c.exec(ctx, "promote hero",
		c.rebind("UPDATE Players SET hero = ? WHERE id = ? AND hero = ?"), true, id, false); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *conn) EnsureWeek(ctx context.Context, start time.Time) (int64, error) {
	return c.insertOrGet(ctx, "ensure week",
		"INSERT INTO WeeksCache (weekStart) VALUES (?) ON CONFLICT DO NOTHING RETURNING id", []any{ts(start)},
		"SELECT id FROM WeeksCache WHERE weekStart = ?", []any{ts(start)})
}

func (c *conn) EnsureMonth(ctx context.Context, start time.Time) (int64, error) {
	return c.insertOrGet(ctx, "ensure month",
		"INSERT INTO MonthsCache (monthStart) VALUES (?) ON CONFLICT DO NOTHING RETURNING id", []any{ts(start)},
		"SELECT id FROM MonthsCache WHERE monthStart = ?", []any{ts(start)})
}

var tourneyTypeCols = []string{
	"currency", "buyIn", "fee", "category", "limitType", "maxSeats", "sng", "knockout", "koBounty",
	"rebuy", "rebuyCost", "addOn", "addOnCost", "speed", "shootout", "matrix", "fast", "stack",
	"step", "stepNo", "chance", "chanceCount", "multiEntry", "reEntry", "homeGame", "newToGame",
	"fifty50", "time", "timeAmt", "satellite", "doubleOrNothing", "cashOut", "onDemand", "flighted",
	"guarantee", "guaranteeAmt",
}

// tourneyTypeFields returns pointers to the attributes of tt in tourneyTypeCols order.
func tourneyTypeFields(tt *storage.TourneyType) []any {
	return []any{
		&tt.Currency, &tt.BuyIn, &tt.Fee, &tt.Category, &tt.LimitType, &tt.MaxSeats, &tt.Sng,
		&tt.Knockout, &tt.KoBounty, &tt.Rebuy, &tt.RebuyCost, &tt.AddOn, &tt.AddOnCost, &tt.Speed,
		&tt.Shootout, &tt.Matrix, &tt.Fast, &tt.Stack, &tt.Step, &tt.StepNo, &tt.Chance,
		&tt.ChanceCount, &tt.MultiEntry, &tt.ReEntry, &tt.HomeGame, &tt.NewToGame, &tt.Fifty50,
		&tt.Time, &tt.TimeAmt, &tt.Satellite, &tt.DoubleOrNothing, &tt.CashOut, &tt.OnDemand,
		&tt.Flighted, &tt.Guarantee, &tt.GuaranteeAmt,
	}
}

func tourneyTypeValues(tt storage.TourneyType) []any {
	fields := tourneyTypeFields(&tt)
	vals := make([]any, len(fields))
	for i, f := range fields {
		switch p := f.(type) {
		case *string:
			vals[i] = *p
		case *int64:
			vals[i] = *p
		case *int:
			vals[i] = *p
		case *bool:
			vals[i] = *p
		}
	}
	return vals
}

func (c *conn) EnsureTourneyType(ctx context.Context, siteID int64, tt storage.TourneyType, fingerprint string) (int64, error) {
	cols := append([]string{"siteId", "fingerprint"}, tourneyTypeCols...)
	args := append([]any{siteID, fingerprint}, tourneyTypeValues(tt)...)
	return c.insertOrGet(ctx, "ensure tourney type",
		fmt.Sprintf("INSERT INTO TourneyTypes (%s) VALUES %s ON CONFLICT DO NOTHING RETURNING id",
			strings.Join(cols, ", "), placeholders(len(cols))), args,
		"SELECT id FROM TourneyTypes WHERE siteId = ? AND fingerprint = ?", []any{siteID, fingerprint})
}

var tourneyInfoCols = []string{"tourneyName", "entries", "prizepool", "startTime", "endTime",
	"totalRebuyCount", "totalAddOnCount", "added", "addedCurrency", "comment"}

func (c *conn) TourneyByNo(ctx context.Context, siteID int64, siteTourneyNo string) (storage.TourneyRow, bool, error) {
	var (
		row       storage.TourneyRow
		sessionID sql.NullInt64
		info      = &row.Info
	)
	ttCols := make([]string, len(tourneyTypeCols))
	for i, col := range tourneyTypeCols {
		ttCols[i] = "tt." + col
	}
	infoCols := make([]string, len(tourneyInfoCols))
	for i, col := range tourneyInfoCols {
		infoCols[i] = "t." + col
	}
	q := c.rebind(fmt.Sprintf(
		"SELECT t.id, t.tourneyTypeId, t.sessionId, %s, %s FROM Tourneys t JOIN TourneyTypes tt ON tt.id = t.tourneyTypeId "+
			"WHERE t.siteId = ? AND t.siteTourneyNo = ?",
		strings.Join(infoCols, ", "), strings.Join(ttCols, ", ")))

	dest := []any{&row.ID, &row.TourneyTypeID, &sessionID,
		&info.Name, &info.Entries, &info.Prizepool, nullTime{&info.StartTime}, nullTime{&info.EndTime},
		&info.TotalRebuyCount, &info.TotalAddOnCount, &info.Added, &info.AddedCurrency, &info.Comment}
	dest = append(dest, tourneyTypeFields(&row.Type)...)

	err := c.ext.QueryRowxContext(ctx, q, siteID, siteTourneyNo).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.TourneyRow{}, false, nil
	}
	if err != nil {
		return storage.TourneyRow{}, false, fperrors.Storage("load tourney", err)
	}
	row.SessionID = sessionID.Int64
	return row, true, nil
}

func (c *conn) EnsureTourney(ctx context.Context, siteID int64, siteTourneyNo string, tourneyTypeID int64) (int64, error) {
	return c.insertOrGet(ctx, "ensure tourney",
		"INSERT INTO Tourneys (siteId, siteTourneyNo, tourneyTypeId) VALUES (?, ?, ?) ON CONFLICT DO NOTHING RETURNING id",
		[]any{siteID, siteTourneyNo, tourneyTypeID},
		"SELECT id FROM Tourneys WHERE siteId = ? AND siteTourneyNo = ?", []any{siteID, siteTourneyNo})
}

func (c *conn) SetTourneyType(ctx context.Context, tourneyID, tourneyTypeID int64) error {
	_, err := c.exec(ctx, "set tourney type",
		c.rebind("UPDATE Tourneys SET tourneyTypeId = ? WHERE id = ?"), tourneyTypeID, tourneyID)
	return err
}

// MergeTourneyInfo writes the attributes the summary knows and keeps the
// persisted value for every attribute it does not.
func (c *conn) MergeTourneyInfo(ctx context.Context, tourneyID int64, info storage.TourneyInfo) error {
	sets := make([]string, len(tourneyInfoCols))
	for i, col := range tourneyInfoCols {
		sets[i] = fmt.Sprintf("%s = COALESCE(?, %s)", col, col)
	}
	var start, end any
	if info.StartTime != nil {
		start = ts(*info.StartTime)
	}
	if info.EndTime != nil {
		end = ts(*info.EndTime)
	}
	q := c.rebind(fmt.Sprintf("UPDATE Tourneys SET %s WHERE id = ?", strings.Join(sets, ", ")))
	_, err := c.exec(ctx, "merge tourney info", q,
		deref(info.Name), deref(info.Entries), deref(info.Prizepool), start, end,
		deref(info.TotalRebuyCount), deref(info.TotalAddOnCount), deref(info.Added),
		deref(info.AddedCurrency), deref(info.Comment), tourneyID)
	return err
}

func (c *conn) EnsureTourneysPlayer(ctx context.Context, tourneyID, playerID int64, entryID int) (int64, error) {
	return c.insertOrGet(ctx, "ensure tourneys player",
		"INSERT INTO TourneysPlayers (tourneyId, playerId, entryId) VALUES (?, ?, ?) ON CONFLICT DO NOTHING RETURNING id",
		[]any{tourneyID, playerID, entryID},
		"SELECT id FROM TourneysPlayers WHERE tourneyId = ? AND playerId = ? AND entryId = ?",
		[]any{tourneyID, playerID, entryID})
}

var resultCols = []string{"rank", "winnings", "winningsCurrency", "rebuyCount", "addOnCount", "koCount"}

func resultArgs(r storage.TourneyResult) []any {
	return []any{deref(r.Rank), deref(r.Winnings), deref(r.WinningsCurrency),
		deref(r.RebuyCount), deref(r.AddOnCount), deref(r.KoCount)}
}

// deref binds an optional value as NULL when absent.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// TourneysPlayers returns the persisted entries of a tourney keyed by
// (playerId, entryId).
func (c *conn) TourneysPlayers(ctx context.Context, tourneyID int64) (map[[2]int64]storage.TourneysPlayerRow, error) {
	q := c.rebind(fmt.Sprintf("SELECT id, playerId, entryId, %s FROM TourneysPlayers WHERE tourneyId = ?",
		strings.Join(resultCols, ", ")))
	rows, err := c.ext.QueryxContext(ctx, q, tourneyID)
	if err != nil {
		return nil, fperrors.Storage("load tourneys players", err)
	}
	defer rows.Close()

	out := make(map[[2]int64]storage.TourneysPlayerRow)
	for rows.Next() {
		r := storage.TourneysPlayerRow{TourneyID: tourneyID}
		res := &r.Result
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.EntryID,
			&res.Rank, &res.Winnings, &res.WinningsCurrency, &res.RebuyCount, &res.AddOnCount, &res.KoCount); err != nil {
			return nil, fperrors.Storage("scan tourneys player", err)
		}
		res.EntryID = r.EntryID
		out[[2]int64{r.PlayerID, int64(r.EntryID)}] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fperrors.Storage("load tourneys players", err)
	}
	return out, nil
}

// UpdateTourneysPlayerResult overwrites the result columns of one entry.
func (c *conn) UpdateTourneysPlayerResult(ctx context.Context, id int64, r storage.TourneyResult) error {
	sets := make([]string, len(resultCols))
	for i, col := range resultCols {
		sets[i] = col + " = ?"
	}
	q := c.rebind(fmt.Sprintf("UPDATE TourneysPlayers SET %s WHERE id = ?", strings.Join(sets, ", ")))
	_, err := c.exec(ctx, "update tourneys player", q, append(resultArgs(r), id)...)
	return err
}

// InsertTourneysPlayers inserts new entries in multi-row batches.
func (c *conn) InsertTourneysPlayers(ctx context.Context, rows []storage.TourneysPlayerRow) error {
	cols := append([]string{"tourneyId", "playerId", "entryId"}, resultCols...)
	head := fmt.Sprintf("INSERT INTO TourneysPlayers (%s) VALUES ", strings.Join(cols, ", "))
	row := placeholders(len(cols))
	return eachChunk(len(rows), chunkSize/len(cols)+1, func(lo, hi int) error {
		args := make([]any, 0, (hi-lo)*len(cols))
		for _, r := range rows[lo:hi] {
			args = append(args, r.TourneyID, r.PlayerID, r.EntryID)
			args = append(args, resultArgs(r.Result)...)
		}
		_, err := c.exec(ctx, "insert tourneys players", c.multiRowInsert(head, row, hi-lo), args...)
		return err
	})
}

func equalsAll(cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + " = ?"
	}
	return strings.Join(parts, " AND ")
}
