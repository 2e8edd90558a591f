package sqlstore

import (
	"fmt"
	"strings"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/jmoiron/sqlx"
)

// keyedSpec describes a cache table whose rows are identified by a key tuple
// (HudCache, CardsCache, PositionsCache).
type keyedSpec struct {
	kind    cache.Kind
	table   string
	buckets bool
	// keyCols lists the key columns in the order of RowKey.Args.
	keyCols []string
	// hudScope keeps gametypeId on tourney rows.
	hudScope bool
}

var keyedSpecs = map[cache.Kind]keyedSpec{
	cache.KindHud: {
		kind:     cache.KindHud,
		table:    "HudCache",
		keyCols:  []string{"playerId", "activeSeats", "position", "styleKey"},
		hudScope: true,
	},
	cache.KindCards: {
		kind:    cache.KindCards,
		table:   "CardsCache",
		buckets: true,
		keyCols: []string{"playerId", "streetId", "boardId", "hiLo", "startCards", "rankId"},
	},
	cache.KindPositions: {
		kind:    cache.KindPositions,
		table:   "PositionsCache",
		buckets: true,
		keyCols: []string{"playerId", "activeSeats", "position"},
	},
}

func specFor(k cache.Kind) (keyedSpec, error) {
	s, ok := keyedSpecs[k]
	if !ok {
		return keyedSpec{}, fmt.Errorf("%s is not a keyed cache", k)
	}
	return s, nil
}

// columns returns the full insert column list: dimensions then counters.
func (s keyedSpec) columns() []string {
	var cols []string
	if s.buckets {
		cols = append(cols, "weekId", "monthId")
	}
	cols = append(cols, "gametypeId", "tourneyTypeId")
	cols = append(cols, s.keyCols...)
	return append(cols, stats.Keys[:]...)
}

func (s keyedSpec) selectID(mode cache.Mode) string {
	var where []string
	if s.buckets {
		where = append(where, "weekId = ?", "monthId = ?")
	}
	switch {
	case mode == cache.ModeRing:
		where = append(where, "gametypeId = ?", "tourneyTypeId IS NULL")
	case s.hudScope:
		where = append(where, "gametypeId = ?", "tourneyTypeId = ?")
	default:
		where = append(where, "gametypeId IS NULL", "tourneyTypeId = ?")
	}
	for _, c := range s.keyCols {
		where = append(where, c+" = ?")
	}
	return fmt.Sprintf("SELECT id FROM %s WHERE %s", s.table, strings.Join(where, " AND "))
}

// selectArgs binds a key to the placeholders of selectID.
func (s keyedSpec) selectArgs(k cache.RowKey) []any {
	var args []any
	if b, ok := k.Bucket(); ok && s.buckets {
		args = append(args, b.WeekID, b.MonthID)
	}
	sc := k.CacheScope()
	switch {
	case sc.Mode() == cache.ModeRing:
		args = append(args, sc.Gametype())
	case s.hudScope:
		args = append(args, sc.Gametype(), sc.TourneyType())
	default:
		args = append(args, sc.TourneyType())
	}
	return append(args, k.Args()...)
}

// insertArgs binds a key and its counters to the columns of columns().
func (s keyedSpec) insertArgs(k cache.RowKey, v *stats.Vector) []any {
	args := make([]any, 0, len(s.keyCols)+4+stats.NumKeys)
	if b, ok := k.Bucket(); ok && s.buckets {
		args = append(args, b.WeekID, b.MonthID)
	}
	sc := k.CacheScope()
	if sc.Mode() == cache.ModeRing {
		args = append(args, sc.Gametype(), nil)
	} else if s.hudScope {
		args = append(args, sc.Gametype(), sc.TourneyType())
	} else {
		args = append(args, nil, sc.TourneyType())
	}
	args = append(args, k.Args()...)
	for _, x := range v {
		args = append(args, x)
	}
	return args
}

// addCounters renders "a = a + ?, b = b + ?, ..." over every counter.
func addCounters() string {
	parts := make([]string, stats.NumKeys)
	for i, k := range stats.Keys {
		parts[i] = fmt.Sprintf("%s = %s + ?", k, k)
	}
	return strings.Join(parts, ", ")
}

// sumCounters renders the aggregate list over HandsPlayers; hands is a row count.
func sumCounters(alias string) string {
	parts := make([]string, stats.NumKeys)
	for i, k := range stats.Keys {
		if i == stats.HandsIndex {
			parts[i] = "COUNT(*)"
			continue
		}
		parts[i] = fmt.Sprintf("SUM(%s.%s)", alias, k)
	}
	return strings.Join(parts, ", ")
}

func counterArgs(v *stats.Vector) []any {
	args := make([]any, stats.NumKeys)
	for i, x := range v {
		args[i] = x
	}
	return args
}

func counterDest(v *stats.Vector) []any {
	dest := make([]any, stats.NumKeys)
	for i := range v {
		dest[i] = &v[i]
	}
	return dest
}

type keyedQueries struct {
	spec       keyedSpec
	selectID   [2]string
	update     string
	insertHead string
	row        string
	width      int
}

type queries struct {
	keyed map[cache.Kind]*keyedQueries

	cashInsert string
	cashUpdate string
	tourUpdate string
	tourInsert string

	handsPlayersInsertHead string
	handsPlayersRow        string
	handsPlayersWidth      int
}

func buildQueries(d Dialect) *queries {
	rb := func(q string) string { return sqlxRebind(d, q) }
	q := &queries{keyed: make(map[cache.Kind]*keyedQueries, len(keyedSpecs))}

	for kind, spec := range keyedSpecs {
		cols := spec.columns()
		q.keyed[kind] = &keyedQueries{
			spec: spec,
			selectID: [2]string{
				cache.ModeRing:    rb(spec.selectID(cache.ModeRing)),
				cache.ModeTourney: rb(spec.selectID(cache.ModeTourney)),
			},
			update:     rb(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", spec.table, addCounters())),
			insertHead: fmt.Sprintf("INSERT INTO %s (%s) VALUES ", spec.table, strings.Join(cols, ", ")),
			row:        placeholders(len(cols)),
			width:      len(cols),
		}
	}

	cashCols := append([]string{"sessionId", "startTime", "endTime", "gametypeId", "playerId"}, stats.Keys[:]...)
	q.cashInsert = rb(fmt.Sprintf("INSERT INTO CashCache (%s) VALUES %s",
		strings.Join(cashCols, ", "), placeholders(len(cashCols))))
	q.cashUpdate = rb(fmt.Sprintf(
		"UPDATE CashCache SET startTime = ?, endTime = ?, sessionId = COALESCE(sessionId, ?), %s WHERE id = ?",
		addCounters()))

	tourCols := append([]string{"sessionId", "startTime", "endTime", "tourneyId", "playerId"}, stats.Keys[:]...)
	q.tourInsert = rb(fmt.Sprintf("INSERT INTO TourCache (%s) VALUES %s",
		strings.Join(tourCols, ", "), placeholders(len(tourCols))))
	q.tourUpdate = rb(fmt.Sprintf(
		"UPDATE TourCache SET startTime = CASE WHEN startTime > ? THEN ? ELSE startTime END, "+
			"endTime = CASE WHEN endTime < ? THEN ? ELSE endTime END, "+
			"sessionId = COALESCE(sessionId, ?), %s WHERE tourneyId = ? AND playerId = ?",
		addCounters()))

	hpCols := append([]string{"handId", "playerId", "seatNo", "position", "startCards", "tourneysPlayersId"},
		stats.Keys[1:]...)
	q.handsPlayersInsertHead = fmt.Sprintf("INSERT INTO HandsPlayers (%s) VALUES ", strings.Join(hpCols, ", "))
	q.handsPlayersRow = placeholders(len(hpCols))
	q.handsPlayersWidth = len(hpCols)

	return q
}

func sqlxRebind(d Dialect, query string) string {
	return sqlx.Rebind(d.bindType(), query)
}

// multiRowInsert assembles "head (..), (..), ..." for n rows and rebinds it.
func (c *conn) multiRowInsert(head, row string, n int) string {
	var b strings.Builder
	b.Grow(len(head) + n*(len(row)+2))
	b.WriteString(head)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	return c.rebind(b.String())
}

// hudPositionExpr maps HandsPlayers.position like cache.HudPosition.
const hudPositionExpr = "CASE hp.position WHEN 'B' THEN 'B' WHEN 'S' THEN 'S' WHEN '0' THEN 'D' WHEN '1' THEN 'C' " +
	"WHEN '2' THEN 'M' WHEN '3' THEN 'M' WHEN '4' THEN 'M' ELSE 'E' END"

// styleKeyExpr computes cache.StyleKey in SQL; it takes day_start hours as its
// only parameter.
func styleKeyExpr(d Dialect) string {
	if d == SQLite {
		return "'d' || substr(strftime('%Y%m%d', h.startTime, '-' || ? || ' hours'), 3, 6)"
	}
	return "'d' || to_char(h.startTime - CAST(? AS INTEGER) * INTERVAL '1 hour', 'YYMMDD')"
}

// aggregateQuery builds the grouped rebuild query of one page for a kind and
// selection. Arguments are returned in placeholder order, with the page bounds
// supplied by the caller through from and to.
func aggregateQuery(d Dialect, kind cache.Kind, sel cache.Selection, fast bool, dayStart int, from, to int64) (string, []any, error) {
	var (
		keyExprs []string
		joins    string
		where    = []string{"hp.handId > ?", "hp.handId <= ?"}
		head     []any
		args     = []any{from, to}
	)

	switch kind {
	case cache.KindHud:
		if fast {
			keyExprs = []string{"h.gametypeId", "t.tourneyTypeId", "hp.playerId",
				"0", fmt.Sprintf("'%s'", cache.FastPosition), fmt.Sprintf("'%s'", cache.FastStyleKey)}
		} else {
			keyExprs = []string{"h.gametypeId", "t.tourneyTypeId", "hp.playerId",
				"h.seats", hudPositionExpr, styleKeyExpr(d)}
			head = append(head, dayStart)
		}
		joins = "LEFT JOIN Tourneys t ON t.id = h.tourneyId"
	case cache.KindCards:
		keyExprs = []string{"s.weekId", "s.monthId",
			"CASE WHEN t.tourneyTypeId IS NULL THEN h.gametypeId END", "t.tourneyTypeId", "hp.playerId",
			"st.streetId", "st.boardId", "st.hiLo",
			fmt.Sprintf("CASE WHEN st.streetId > 0 THEN %d ELSE hp.startCards END", cache.StreetStartCards),
			"st.rankId"}
		joins = "JOIN SessionsCache s ON s.id = h.sessionId " +
			"JOIN HandsStove st ON st.handId = hp.handId AND st.playerId = hp.playerId " +
			"LEFT JOIN Tourneys t ON t.id = h.tourneyId"
		where = append(where, "h.heroSeat = hp.seatNo")
	case cache.KindPositions:
		keyExprs = []string{"s.weekId", "s.monthId",
			"CASE WHEN t.tourneyTypeId IS NULL THEN h.gametypeId END", "t.tourneyTypeId", "hp.playerId",
			"h.seats", fmt.Sprintf("CASE WHEN h.heroSeat = hp.seatNo THEN hp.position ELSE '%s' END", cache.NoPosition)}
		joins = "JOIN SessionsCache s ON s.id = h.sessionId LEFT JOIN Tourneys t ON t.id = h.tourneyId"
	default:
		return "", nil, fmt.Errorf("%s has no grouped rebuild", kind)
	}

	if sel.TourneyTypeID != 0 {
		where = append(where, "t.tourneyTypeId = ?")
		args = append(args, sel.TourneyTypeID)
	}
	if sel.HasBucket() {
		where = append(where, "s.weekId = ?", "s.monthId = ?")
		args = append(args, sel.Bucket.WeekID, sel.Bucket.MonthID)
	}

	groupBy := len(keyExprs)
	if kind == cache.KindHud && fast {
		groupBy = 3
	}
	ordinals := make([]string, groupBy)
	for i := range ordinals {
		ordinals[i] = fmt.Sprint(i + 1)
	}

	query := fmt.Sprintf("SELECT %s, %s FROM HandsPlayers hp JOIN Hands h ON h.id = hp.handId %s WHERE %s GROUP BY %s ORDER BY %s",
		strings.Join(keyExprs, ", "), sumCounters("hp"), joins,
		strings.Join(where, " AND "), strings.Join(ordinals, ", "), strings.Join(ordinals, ", "))
	return sqlxRebind(d, query), append(head, args...), nil
}
