package aggregation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestImportSummary_MergesResults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tt := storage.TourneyType{BuyIn: 1000, Fee: 100, MaxSeats: 9}

	imp := NewImporter(s, testOptions())
	_, err := imp.Import(ctx, []storage.HandRecord{tourneyHand("t1", t0, tt)})
	require.NoError(t, err)

	summary := storage.TourneySummary{
		Site: "PokerStars", SiteTourneyNo: "T-1", Type: tt,
		Info: storage.TourneyInfo{Name: ptr("Sunday Million"), Entries: ptr(180)},
		Players: []storage.TourneyResult{
			{Name: "hero", Rank: ptr(1), Winnings: ptr(int64(50000))},
			{Name: "villain", Rank: ptr(2)},
			{Name: "newcomer", Rank: ptr(3)},
		},
	}
	report, err := imp.ImportSummary(ctx, summary)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, int64(3), count(t, s, "SELECT COUNT(*) FROM TourneysPlayers"))
	assert.Equal(t, int64(180), count(t, s, "SELECT entries FROM Tourneys WHERE id = ?", report.TourneyID))

	// A later summary without winnings keeps the stored amount.
	summary.Info = storage.TourneyInfo{Prizepool: ptr(int64(90000))}
	summary.Players = []storage.TourneyResult{{Name: "hero", KoCount: ptr(4)}}
	report, err = imp.ImportSummary(ctx, summary)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Inserted)

	hero := "SELECT %s FROM TourneysPlayers WHERE playerId = (SELECT id FROM Players WHERE name = 'hero')"
	assert.Equal(t, int64(50000), count(t, s, fmt.Sprintf(hero, "winnings")))
	assert.Equal(t, int64(4), count(t, s, fmt.Sprintf(hero, "koCount")))
	assert.Equal(t, int64(1), count(t, s, fmt.Sprintf(hero, "rank")))
	assert.Equal(t, int64(180), count(t, s, "SELECT entries FROM Tourneys WHERE id = ?", report.TourneyID))
	assert.Equal(t, int64(90000), count(t, s, "SELECT prizepool FROM Tourneys WHERE id = ?", report.TourneyID))
}

func TestImportSummary_RefinesTourneyType(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	plain := storage.TourneyType{BuyIn: 1000, Fee: 100, MaxSeats: 9}

	imp := NewImporter(s, testOptions())
	_, err := imp.Import(ctx, []storage.HandRecord{tourneyHand("t1", t0, plain), tourneyHand("t2", t0.Add(time.Minute), plain)})
	require.NoError(t, err)
	before := count(t, s, "SELECT tourneyTypeId FROM Tourneys")

	refined := plain
	refined.Speed = "Turbo"
	report, err := imp.ImportSummary(ctx, storage.TourneySummary{Site: "PokerStars", SiteTourneyNo: "T-1", Type: refined})
	require.NoError(t, err)
	assert.NotEqual(t, before, report.TourneyTypeID)
	assert.Equal(t, int64(1), count(t, s, "SELECT COUNT(*) FROM TourneyTypes"))
	assert.Equal(t, int64(2), count(t, s, "SELECT hands FROM HudCache WHERE position = 'B' AND tourneyTypeId = ?", report.TourneyTypeID))
}

func TestImportSummary_RequiresTourneyNumber(t *testing.T) {
	_, err := NewImporter(newStore(t), testOptions()).ImportSummary(context.Background(), storage.TourneySummary{Site: "PokerStars"})
	require.Error(t, err)
}
