package aggregation

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockImporter(t *testing.T) (*Importer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := sqlstore.New(sqlx.NewDb(db, "sqlmock"), sqlstore.Postgres)
	return NewImporter(store, Options{CallHud: true}), mock
}

func vpiHand() *stats.Vector {
	var v stats.Vector
	v[stats.HandsIndex] = 1
	_ = v.Set("street0VPI", 1)
	return &v
}

func updateArgs(v stats.Vector, id int64) []driver.Value {
	args := make([]driver.Value, 0, stats.NumKeys+1)
	for _, x := range v {
		args = append(args, x)
	}
	return append(args, id)
}

func TestFlushKeyed_PreSummedKeyIsOneSelectAndOneUpdate(t *testing.T) {
	imp, mock := newMockImporter(t)
	key := cache.HudKey{Scope: cache.RingScope{GametypeID: 3}, PlayerID: 9, ActiveSeats: 6, Position: "B", StyleKey: "d240301"}
	imp.hud.Accumulate(key, vpiHand())
	imp.hud.Accumulate(key, vpiHand())

	var want stats.Vector
	want[stats.HandsIndex] = 2
	require.NoError(t, want.Set("street0VPI", 2))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM HudCache WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectExec(`UPDATE HudCache SET`).
		WithArgs(updateArgs(want, 41)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, imp.flushKeyed(context.Background(), cache.KindHud, imp.hud.Lines(nil)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushKeyed_MissingKeyIsInserted(t *testing.T) {
	imp, mock := newMockImporter(t)
	imp.hud.Accumulate(cache.HudKey{Scope: cache.TourneyScope{GametypeID: 3, TourneyTypeID: 7}, PlayerID: 9,
		ActiveSeats: 6, Position: "B", StyleKey: "d240301"}, vpiHand())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM HudCache WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO HudCache \(`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, imp.flushKeyed(context.Background(), cache.KindHud, imp.hud.Lines(nil)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushKeyed_FailedUpdateRollsBack(t *testing.T) {
	imp, mock := newMockImporter(t)
	imp.hud.Accumulate(cache.HudKey{Scope: cache.RingScope{GametypeID: 3}, PlayerID: 9, Position: "B", StyleKey: "d240301"}, vpiHand())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM HudCache WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectExec(`UPDATE HudCache SET`).WillReturnError(driver.ErrBadConn)
	mock.ExpectRollback()

	require.Error(t, imp.flushKeyed(context.Background(), cache.KindHud, imp.hud.Lines(nil)))
	require.NoError(t, mock.ExpectationsWereMet())
}
