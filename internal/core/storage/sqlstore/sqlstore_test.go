package sqlstore

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlite"
	"github.com/Fulvio75/fpdb/internal/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "fpdb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.RunMigrations(db.DB, migrations.DriverSQLite, true))
	return New(db, SQLite)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), Postgres), mock
}

func vec(t *testing.T, m map[string]int64) stats.Vector {
	t.Helper()
	v, err := stats.FromMap(m)
	require.NoError(t, err)
	return v
}

// seedHand stores a ring hand with two players, the first one the hero.
func seedHand(t *testing.T, s *Store, no string, start time.Time) storage.StoredHand {
	t.Helper()
	ctx := context.Background()
	var h storage.StoredHand
	err := s.InTx(ctx, func(tx *Tx) error {
		site, err := tx.EnsureSite(ctx, "Stars")
		require.NoError(t, err)
		gt, err := tx.EnsureGametype(ctx, site, storage.Gametype{Type: storage.GameRing, Base: "hold", Category: "holdem",
			LimitType: "nl", Currency: "USD", SmallBlind: 5, BigBlind: 10, MaxSeats: 6})
		require.NoError(t, err)
		hero, err := tx.EnsurePlayer(ctx, site, "hero", true)
		require.NoError(t, err)
		villain, err := tx.EnsurePlayer(ctx, site, "villain", false)
		require.NoError(t, err)

		h = storage.StoredHand{
			SiteHandNo: no, GametypeID: gt, TableName: "T1", StartTime: start, Seats: 2, HeroSeat: 1,
			Players: []storage.StoredPlayer{
				{PlayerID: hero, SeatNo: 1, Position: "B", StartCards: 12, Stats: vec(t, map[string]int64{"hands": 1, "street0VPI": 1})},
				{PlayerID: villain, SeatNo: 2, Position: "S", StartCards: 40, Stats: vec(t, map[string]int64{"hands": 1, "rake": 7})},
			},
			Stove: []storage.StoredStove{{PlayerID: hero, StreetID: 1, BoardID: 0, HiLo: "h", RankID: 3}},
		}
		return tx.InsertHand(ctx, &h)
	})
	require.NoError(t, err)
	return h
}

func TestEnsure_InsertOrGet(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	a, err := s.EnsureSite(ctx, "Stars")
	require.NoError(t, err)
	b, err := s.EnsureSite(ctx, "Stars")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	p1, err := s.EnsurePlayer(ctx, a, "hero", false)
	require.NoError(t, err)
	p2, err := s.EnsurePlayer(ctx, a, "hero", true)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	var hero bool
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT hero FROM Players WHERE id = ?", p1).Scan(&hero))
	assert.True(t, hero, "known hero promotes the persisted player")

	week := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	w1, err := s.EnsureWeek(ctx, week)
	require.NoError(t, err)
	w2, err := s.EnsureWeek(ctx, week.Add(time.Second/2))
	require.NoError(t, err)
	assert.Equal(t, w1, w2, "sub-second noise is truncated")
}

func TestInsertHand_DuplicateAndPage(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 4, 21, 15, 0, 0, time.UTC)

	h := seedHand(t, s, "1001", start)
	require.NotZero(t, h.ID)

	err := s.InTx(ctx, func(tx *Tx) error {
		dup := h
		dup.ID = 0
		return tx.InsertHand(ctx, &dup)
	})
	require.ErrorIs(t, err, storage.ErrDuplicate)

	lo, hi, err := s.HandIDBounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.ID, lo)
	assert.Equal(t, h.ID, hi)

	page, err := s.HandsPage(ctx, 0, hi)
	require.NoError(t, err)
	require.Len(t, page, 1)
	got := page[0]
	assert.Equal(t, "1001", got.SiteHandNo)
	assert.True(t, got.StartTime.Equal(start))
	require.Len(t, got.Players, 2)
	assert.Equal(t, int64(1), got.Players[0].Stats.Get("hands"))
	assert.Equal(t, int64(1), got.Players[0].Stats.Get("street0VPI"))
	assert.Equal(t, int64(7), got.Players[1].Stats.Get("rake"))
	require.Len(t, got.Stove, 1)
	assert.Equal(t, 3, got.Stove[0].RankID)
}

func TestCacheRows_FindAddInsert(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	ring := cache.HudKey{Scope: cache.RingScope{GametypeID: 3}, PlayerID: 9, ActiveSeats: 6, Position: "D", StyleKey: "d240304"}
	tour := cache.HudKey{Scope: cache.TourneyScope{GametypeID: 3, TourneyTypeID: 4}, PlayerID: 9, ActiveSeats: 6, Position: "D", StyleKey: "d240304"}
	v := vec(t, map[string]int64{"hands": 1, "street0VPI": 1})

	_, found, err := s.FindCacheRow(ctx, ring)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.InsertCacheRows(ctx, cache.KindHud, []cache.Line{{Key: ring, Stats: v}, {Key: tour, Stats: v}}))

	id, found, err := s.FindCacheRow(ctx, ring)
	require.NoError(t, err)
	require.True(t, found)
	tourID, found, err := s.FindCacheRow(ctx, tour)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, id, tourID, "ring and tourney rows never share a key")

	require.NoError(t, s.AddToCacheRow(ctx, cache.KindHud, id, &v))

	totals, err := s.HudTotals(ctx, storage.HudQuery{GametypeID: 3, PlayerIDs: []int64{9}, MinSeats: 0, MaxSeats: 10, StyleKeyAfter: "0000000"})
	require.NoError(t, err)
	got := totals[9]
	assert.Equal(t, int64(2), got.Get("hands"))
	assert.Equal(t, int64(2), got.Get("street0VPI"))

	n, err := s.ClearCache(ctx, cache.KindHud, cache.SelectTourneyType(4))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, found, err = s.FindCacheRow(ctx, tour)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCardsRows_TourneyScopeStoresNoGametype(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	key := cache.CardsKey{Buckets: cache.BucketPair{WeekID: 1, MonthID: 2}, Scope: cache.TourneyScope{TourneyTypeID: 5},
		PlayerID: 7, StreetID: 0, HiLo: "h", StartCards: 14, RankID: 1}
	v := vec(t, map[string]int64{"hands": 1})
	require.NoError(t, s.InsertCacheRows(ctx, cache.KindCards, []cache.Line{{Key: key, Stats: v}}))

	var gt *int64
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT gametypeId FROM CardsCache").Scan(&gt))
	assert.Nil(t, gt)

	_, found, err := s.FindCacheRow(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAggregatePage_HudMatchesGoStyleKey(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	// 03:30 UTC with a 5 hour day start belongs to the previous day.
	start := time.Date(2024, 3, 5, 3, 30, 0, 0, time.UTC)
	h := seedHand(t, s, "2001", start)

	lines, err := s.AggregatePage(ctx, cache.KindHud, cache.SelectAll(), false, 5, 0, h.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		k := l.Key.(cache.HudKey)
		assert.Equal(t, cache.StyleKey(start, 5), k.StyleKey)
		assert.Equal(t, "d240304", k.StyleKey)
		assert.Equal(t, cache.RingScope{GametypeID: h.GametypeID}, k.Scope)
		assert.Equal(t, int64(1), l.Stats.Get("hands"))
	}
	assert.Equal(t, "B", lines[0].Key.(cache.HudKey).Position)

	fast, err := s.AggregatePage(ctx, cache.KindHud, cache.SelectAll(), true, 5, 0, h.ID)
	require.NoError(t, err)
	require.Len(t, fast, 2)
	k := fast[0].Key.(cache.HudKey)
	assert.Equal(t, cache.FastStyleKey, k.StyleKey)
	assert.Equal(t, cache.FastPosition, k.Position)
	assert.Equal(t, 0, k.ActiveSeats)
}

func TestSessions_OverlapRepointDelete(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	h := seedHand(t, s, "3001", t0)

	a, err := s.InsertSession(ctx, storage.SessionRow{WeekID: 1, MonthID: 1, Start: t0, End: t0.Add(time.Hour)})
	require.NoError(t, err)
	b, err := s.InsertSession(ctx, storage.SessionRow{WeekID: 1, MonthID: 1, Start: t0.Add(2 * time.Hour), End: t0.Add(3 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, s.AssignSession(ctx, b, []int64{h.ID}))

	got, err := s.OverlappingSessions(ctx, t0.Add(30*time.Minute), t0.Add(150*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.True(t, got[0].Start.Equal(t0))

	require.NoError(t, s.RepointSessions(ctx, a, []int64{b}))
	require.NoError(t, s.DeleteSessions(ctx, []int64{b}))

	sid, err := s.HandSession(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, a, sid)

	all, err := s.AllSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestCashAndTourLines(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	v := vec(t, map[string]int64{"hands": 2, "totalProfit": 150})
	key := cache.CashKey{GametypeID: 1, PlayerID: 2}

	require.NoError(t, s.InsertCashRow(ctx, key, 0, t0, t0.Add(10*time.Minute), &v))
	rows, err := s.OverlappingCashRows(ctx, key, t0.Add(15*time.Minute), t0.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.OverlappingCashRows(ctx, key, t0.Add(5*time.Minute), t0.Add(20*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, s.UpdateCashRow(ctx, rows[0].ID, t0, t0.Add(20*time.Minute), 5, &v))

	rows, err = s.OverlappingCashRows(ctx, key, t0, t0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].Stats.Get("hands"))
	assert.Equal(t, int64(300), rows[0].Stats.Get("totalProfit"))
	assert.Equal(t, int64(5), rows[0].SessionID)
	assert.True(t, rows[0].End.Equal(t0.Add(20*time.Minute)))

	tk := cache.TourKey{TourneyID: 8, PlayerID: 2}
	require.NoError(t, s.AddTourLine(ctx, tk, 0, t0.Add(time.Hour), t0.Add(2*time.Hour), &v))
	require.NoError(t, s.AddTourLine(ctx, tk, 3, t0, t0.Add(90*time.Minute), &v))

	var (
		hands int64
		sid   int64
	)
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT hands, sessionId FROM TourCache WHERE tourneyId = 8 AND playerId = 2").Scan(&hands, &sid))
	assert.Equal(t, int64(4), hands)
	assert.Equal(t, int64(3), sid)
}

func TestInsertLock(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	ok, err := s.TryAcquireLock(ctx, "a", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryAcquireLock(ctx, "b", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ReleaseLock(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ReleaseLock(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryAcquireLock(ctx, "b", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFindCacheRow_PostgresQueryShape(t *testing.T) {
	s, mock := newMockStore(t)
	key := cache.PositionsKey{Buckets: cache.BucketPair{WeekID: 1, MonthID: 2}, Scope: cache.TourneyScope{TourneyTypeID: 4},
		PlayerID: 9, ActiveSeats: 6, Position: "N"}

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id FROM PositionsCache WHERE weekId = $1 AND monthId = $2 AND gametypeId IS NULL AND tourneyTypeId = $3 "+
			"AND playerId = $4 AND activeSeats = $5 AND position = $6")).
		WithArgs(int64(1), int64(2), int64(4), int64(9), 6, "N").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	id, found, err := s.FindCacheRow(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(77), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearCache_RejectsForeignDimension(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.ClearCache(context.Background(), cache.KindHud, cache.SelectBucket(cache.BucketPair{WeekID: 1, MonthID: 1}))
	require.Error(t, err)
}

func TestDbTime_ParsesDriverText(t *testing.T) {
	var got time.Time
	require.NoError(t, scanTime(&got).Scan("2024-03-04 21:15:00+00:00"))
	assert.Equal(t, time.Date(2024, 3, 4, 21, 15, 0, 0, time.UTC), got)
	require.NoError(t, scanTime(&got).Scan([]byte("2024-03-04 21:15:00")))
	assert.Equal(t, time.Date(2024, 3, 4, 21, 15, 0, 0, time.UTC), got)
	require.Error(t, scanTime(&got).Scan(42))
}
