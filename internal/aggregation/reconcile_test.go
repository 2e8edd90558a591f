package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tourSnapshot = "SELECT p.name, c.startTime, c.endTime, c.hands, c.rake " +
	"FROM TourCache c JOIN Players p ON p.id = c.playerId ORDER BY 1, 2"

func importBatches(t *testing.T, s *sqlstore.Store, batches ...[]storage.HandRecord) {
	t.Helper()
	for _, batch := range batches {
		_, err := NewImporter(s, testOptions()).Import(context.Background(), batch)
		require.NoError(t, err)
	}
}

func bucketOf(t *testing.T, s *sqlstore.Store) cache.BucketPair {
	t.Helper()
	require.Equal(t, int64(1), count(t, s, "SELECT COUNT(*) FROM SessionsCache"))
	return cache.BucketPair{
		WeekID:  count(t, s, "SELECT weekId FROM SessionsCache"),
		MonthID: count(t, s, "SELECT monthId FROM SessionsCache"),
	}
}

func TestImport_BridgingHandMergesStoredSessions(t *testing.T) {
	ctx := context.Background()
	tt := storage.TourneyType{BuyIn: 1000, Fee: 100}
	first := ringHand("1", t0)
	second := tourneyHand("t1", t0.Add(60*time.Minute), tt)
	bridge := ringHand("2", t0.Add(30*time.Minute))

	s := newStore(t)
	importBatches(t, s, []storage.HandRecord{first}, []storage.HandRecord{second})
	require.Equal(t, int64(2), count(t, s, "SELECT COUNT(*) FROM SessionsCache"))
	survivor := count(t, s, "SELECT MIN(id) FROM SessionsCache")

	importBatches(t, s, []storage.HandRecord{bridge})

	assert.Equal(t, int64(1), count(t, s, "SELECT COUNT(*) FROM SessionsCache"))
	assert.Equal(t, survivor, count(t, s, "SELECT id FROM SessionsCache"), "earliest session survives")
	assert.Equal(t, int64(3), count(t, s, "SELECT COUNT(*) FROM Hands WHERE sessionId = ?", survivor))
	assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM CashCache WHERE sessionId IS NULL OR sessionId <> ?", survivor))
	assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM TourCache WHERE sessionId IS NULL OR sessionId <> ?", survivor))
	assert.Equal(t, int64(1), count(t, s, "SELECT COUNT(*) FROM Tourneys WHERE sessionId = ?", survivor))
	assert.Equal(t, int64(2), count(t, s, "SELECT COUNT(*) FROM CashCache"), "one line per player")

	single := newStore(t)
	importBatches(t, single, []storage.HandRecord{first, second, bridge})

	merged := snapshots(t, s)
	merged["tour"] = snapshot(t, s, tourSnapshot)
	want := snapshots(t, single)
	want["tour"] = snapshot(t, single, tourSnapshot)
	assert.Equal(t, want, merged)

	require.NoError(t, NewRebuilder(s, testOptions()).RebuildAll(ctx))
	rebuilt := snapshots(t, s)
	rebuilt["tour"] = snapshot(t, s, tourSnapshot)
	assert.Equal(t, want, rebuilt)
}

func TestCollector_TourneyTypeSupersessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	plain := storage.TourneyType{BuyIn: 1000, Fee: 100, MaxSeats: 9}
	ko := plain
	ko.Knockout = true
	ko.KoBounty = 250

	s := newStore(t)
	importBatches(t, s, []storage.HandRecord{tourneyHand("t1", t0, plain)})
	oldID := count(t, s, "SELECT tourneyTypeId FROM Tourneys")
	importBatches(t, s, []storage.HandRecord{tourneyHand("t2", t0.Add(time.Minute), ko)})
	newID := count(t, s, "SELECT tourneyTypeId FROM Tourneys")
	require.NotEqual(t, oldID, newID)

	const hudRows = "SELECT p.name, c.activeSeats, c.position, c.styleKey, c.hands, c.street0VPI, c.rake, c.totalProfit " +
		"FROM HudCache c JOIN Players p ON p.id = c.playerId WHERE c.tourneyTypeId = (SELECT tourneyTypeId FROM Tourneys) ORDER BY 1, 2, 3, 4"

	direct := newStore(t)
	importBatches(t, direct, []storage.HandRecord{
		tourneyHand("t1", t0, ko),
		tourneyHand("t2", t0.Add(time.Minute), ko),
	})
	want := snapshot(t, direct, hudRows)
	require.NotEmpty(t, want)

	c := NewCollector(s, testOptions())
	for i := 0; i < 2; i++ {
		require.NoError(t, c.ReconcileSupersededTourneyTypes(ctx, []int64{oldID}, []int64{newID}))

		assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM HudCache WHERE tourneyTypeId = ?", oldID))
		assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM PositionsCache WHERE tourneyTypeId = ?", oldID))
		assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM TourneyTypes WHERE id = ?", oldID))
		assert.Equal(t, want, snapshot(t, s, hudRows))
		assert.Equal(t, snapshot(t, direct, positionsSnapshot), snapshot(t, s, positionsSnapshot))
		assert.Equal(t, snapshot(t, direct, cardsSnapshot), snapshot(t, s, cardsSnapshot))
	}
}

func TestImport_SessionExtendedAcrossWeekBoundary(t *testing.T) {
	ctx := context.Background()
	monday := time.Date(2024, 3, 4, 0, 10, 0, 0, time.UTC)
	sunday := monday.Add(-20 * time.Minute)

	s := newStore(t)
	importBatches(t, s, []storage.HandRecord{ringHand("1", monday)})
	old := bucketOf(t, s)
	importBatches(t, s, []storage.HandRecord{ringHand("2", sunday)})
	current := bucketOf(t, s)

	require.NotEqual(t, old.WeekID, current.WeekID, "the session now starts in the previous week")
	assert.Equal(t, old.MonthID, current.MonthID)
	assert.Equal(t, int64(1), count(t, s, "SELECT COUNT(*) FROM WeeksCache"), "the old week is orphaned and dropped")
	assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM PositionsCache WHERE weekId <> ?", current.WeekID))
	assert.Zero(t, count(t, s, "SELECT COUNT(*) FROM CardsCache WHERE weekId <> ?", current.WeekID))
	assert.Equal(t, int64(2), count(t, s, "SELECT hands FROM PositionsCache WHERE position = 'B'"))

	single := newStore(t)
	importBatches(t, single, []storage.HandRecord{ringHand("1", monday), ringHand("2", sunday)})
	want := snapshots(t, single)
	assert.Equal(t, want, snapshots(t, s))

	c := NewCollector(s, testOptions())
	for i := 0; i < 2; i++ {
		require.NoError(t, c.ReconcileSupersededBuckets(ctx, []cache.BucketPair{old}, []cache.BucketPair{current}))
		assert.Equal(t, want, snapshots(t, s))
		assert.Equal(t, int64(1), count(t, s, "SELECT COUNT(*) FROM WeeksCache"))
	}
}
