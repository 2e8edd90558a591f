package dimension

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_EnsureCallsCreatorOnce(t *testing.T) {
	m := NewMemo()
	ctx := WithMemo(context.Background(), m)
	calls := 0
	create := func(context.Context) (int64, error) {
		calls++
		return 11, nil
	}

	for i := 0; i < 3; i++ {
		id, err := MemoFrom(ctx).Ensure(ctx, KindSite, "PokerStars", create)
		require.NoError(t, err)
		assert.Equal(t, int64(11), id)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Len())
}

func TestMemo_FailuresAreNotMemoized(t *testing.T) {
	m := NewMemo()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := m.Ensure(ctx, KindWeek, int64(1), func(context.Context) (int64, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	id, err := m.Ensure(ctx, KindWeek, int64(1), func(context.Context) (int64, error) { return 4, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestMemo_NilMemoAlwaysCreates(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, MemoFrom(ctx))
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := MemoFrom(ctx).Ensure(ctx, KindSite, "x", func(context.Context) (int64, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestMemo_ForgetKindAndReset(t *testing.T) {
	m := NewMemo()
	ctx := context.Background()
	one := func(context.Context) (int64, error) { return 1, nil }
	_, _ = m.Ensure(ctx, KindSite, "a", one)
	_, _ = m.Ensure(ctx, KindTourneyType, "b", one)
	_, _ = m.Ensure(ctx, KindTourneyType, "c", one)

	m.ForgetKind(KindTourneyType)
	assert.Equal(t, 1, m.Len())
	m.Reset()
	assert.Equal(t, 0, m.Len())
}

func TestTracker_Excludes(t *testing.T) {
	tr := NewTracker()
	tr.SupersedeTourneyType(7, 42)
	tr.MoveBucket(cache.BucketPair{WeekID: 1, MonthID: 1}, cache.BucketPair{WeekID: 2, MonthID: 1})

	assert.True(t, tr.Pending())
	assert.True(t, tr.Excludes(cache.HudKey{Scope: cache.TourneyScope{GametypeID: 1, TourneyTypeID: 7}}))
	assert.True(t, tr.Excludes(cache.HudKey{Scope: cache.TourneyScope{GametypeID: 1, TourneyTypeID: 42}}))
	assert.False(t, tr.Excludes(cache.HudKey{Scope: cache.TourneyScope{GametypeID: 1, TourneyTypeID: 8}}))
	assert.False(t, tr.Excludes(cache.HudKey{Scope: cache.RingScope{GametypeID: 7}}))
	assert.True(t, tr.Excludes(cache.PositionsKey{Buckets: cache.BucketPair{WeekID: 2, MonthID: 1}, Scope: cache.RingScope{GametypeID: 1}}))
	assert.False(t, tr.Excludes(cache.PositionsKey{Buckets: cache.BucketPair{WeekID: 3, MonthID: 1}, Scope: cache.RingScope{GametypeID: 1}}))

	old, current := tr.TourneyTypes()
	assert.Equal(t, []int64{7}, old)
	assert.Equal(t, []int64{42}, current)

	run := NewTracker()
	run.Merge(tr)
	assert.True(t, run.Excludes(cache.HudKey{Scope: cache.TourneyScope{GametypeID: 1, TourneyTypeID: 42}}))
	oldPairs, _ := run.Buckets()
	assert.Equal(t, []cache.BucketPair{{WeekID: 1, MonthID: 1}}, oldPairs)

	tr.Reset()
	assert.False(t, tr.Pending())
	assert.True(t, run.Pending())
}

func TestReconcileTourneyType(t *testing.T) {
	base := storage.TourneyType{BuyIn: 1000, Fee: 100, Category: "holdem", LimitType: "nl", MaxSeats: 9}

	t.Run("candidate adds knowledge", func(t *testing.T) {
		cand := base
		cand.Knockout = true
		cand.KoBounty = 250
		cand.Speed = "Turbo"
		merged, dirty, err := ReconcileTourneyType(cand, 7, base)
		require.NoError(t, err)
		assert.True(t, dirty)
		assert.Equal(t, "Turbo", merged.Speed)
		assert.Equal(t, DefaultCurrency, merged.Currency)
	})

	t.Run("candidate adopts persisted values", func(t *testing.T) {
		pers := base
		pers.Currency = "USD"
		pers.Rebuy = true
		cand := base
		cand.BuyIn = 0
		merged, dirty, err := ReconcileTourneyType(cand, 7, pers)
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, "USD", merged.Currency)
		assert.True(t, merged.Rebuy)
		assert.Equal(t, int64(1000), merged.BuyIn)
	})

	t.Run("smaller seat count wins", func(t *testing.T) {
		cand := base
		cand.MaxSeats = 6
		_, dirty, err := ReconcileTourneyType(cand, 7, base)
		require.NoError(t, err)
		assert.True(t, dirty)

		merged, dirty, err := ReconcileTourneyType(base, 7, cand)
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, 6, merged.MaxSeats)
	})

	t.Run("progressive bounty multiple", func(t *testing.T) {
		pers := base
		pers.KoBounty = 500
		cand := base
		cand.KoBounty = 1500
		merged, dirty, err := ReconcileTourneyType(cand, 7, pers)
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, int64(500), merged.KoBounty)
	})

	t.Run("conflicting concrete values", func(t *testing.T) {
		pers := base
		pers.Currency = "USD"
		cand := base
		cand.Currency = "EUR"
		_, _, err := ReconcileTourneyType(cand, 7, pers)
		require.Error(t, err)
		assert.True(t, fperrors.IsConsistency(err))
		var ce *fperrors.ConsistencyError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, int64(7), ce.ID)
	})
}

func TestFingerprint_IgnoresExplicitDefaults(t *testing.T) {
	a := storage.TourneyType{BuyIn: 10}
	b := storage.TourneyType{BuyIn: 10, Currency: DefaultCurrency, Stack: DefaultStack, Speed: DefaultSpeed}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	b.Fast = true
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
}

type fakeStore struct {
	nextID    int64
	calls     map[string]int
	types     map[string]int64
	typeAttrs map[int64]storage.TourneyType
	tourneys  map[string]*storage.TourneyRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:    100,
		calls:     make(map[string]int),
		types:     make(map[string]int64),
		typeAttrs: make(map[int64]storage.TourneyType),
		tourneys:  make(map[string]*storage.TourneyRow),
	}
}

func (f *fakeStore) id(op string) int64 {
	f.calls[op]++
	f.nextID++
	return f.nextID
}

func (f *fakeStore) EnsureSite(context.Context, string) (int64, error) { return f.id("site"), nil }

func (f *fakeStore) EnsureGametype(context.Context, int64, storage.Gametype) (int64, error) {
	return f.id("gametype"), nil
}

func (f *fakeStore) EnsurePlayer(context.Context, int64, string, bool) (int64, error) {
	return f.id("player"), nil
}

func (f *fakeStore) EnsureWeek(context.Context, time.Time) (int64, error) { return f.id("week"), nil }

func (f *fakeStore) EnsureMonth(context.Context, time.Time) (int64, error) { return f.id("month"), nil }

func (f *fakeStore) EnsureTourneyType(_ context.Context, _ int64, tt storage.TourneyType, fp string) (int64, error) {
	f.calls["tourneyType"]++
	if id, ok := f.types[fp]; ok {
		return id, nil
	}
	f.nextID++
	f.types[fp] = f.nextID
	f.typeAttrs[f.nextID] = tt
	return f.nextID, nil
}

func (f *fakeStore) TourneyByNo(_ context.Context, _ int64, no string) (storage.TourneyRow, bool, error) {
	row, ok := f.tourneys[no]
	if !ok {
		return storage.TourneyRow{}, false, nil
	}
	out := *row
	out.Type = f.typeAttrs[row.TourneyTypeID]
	return out, true, nil
}

func (f *fakeStore) EnsureTourney(_ context.Context, _ int64, no string, ttID int64) (int64, error) {
	if row, ok := f.tourneys[no]; ok {
		return row.ID, nil
	}
	id := f.id("tourney")
	f.tourneys[no] = &storage.TourneyRow{ID: id, TourneyTypeID: ttID}
	return id, nil
}

func (f *fakeStore) SetTourneyType(_ context.Context, tourneyID, ttID int64) error {
	f.calls["setTourneyType"]++
	for _, row := range f.tourneys {
		if row.ID == tourneyID {
			row.TourneyTypeID = ttID
		}
	}
	return nil
}

func (f *fakeStore) EnsureTourneysPlayer(context.Context, int64, int64, int) (int64, error) {
	return f.id("tourneysPlayer"), nil
}

func TestResolver_MemoizesPerRun(t *testing.T) {
	store := newFakeStore()
	ctx := WithMemo(context.Background(), NewMemo())
	r := NewResolver(store, nil)

	a, err := r.Site(ctx, "PokerStars")
	require.NoError(t, err)
	b, err := r.Site(ctx, "PokerStars")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, store.calls["site"])

	_, err = r.Player(ctx, a, "hero", false)
	require.NoError(t, err)
	_, err = r.Player(ctx, a, "hero", true)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls["player"], "hero promotion is a separate lookup")
}

func TestResolver_TourneyPromotionIsTracked(t *testing.T) {
	store := newFakeStore()
	ctx := WithMemo(context.Background(), NewMemo())
	tracker := NewTracker()
	r := NewResolver(store, tracker)

	plain := storage.TourneyType{BuyIn: 1000, Fee: 100}
	tid, oldTT, err := r.Tourney(ctx, 1, "T-1", plain)
	require.NoError(t, err)

	refined := plain
	refined.Knockout = true
	refined.KoBounty = 200
	tid2, newTT, err := r.Tourney(ctx, 1, "T-1", refined)
	require.NoError(t, err)

	assert.Equal(t, tid, tid2)
	assert.NotEqual(t, oldTT, newTT)
	assert.Equal(t, 1, store.calls["setTourneyType"])
	old, current := tracker.TourneyTypes()
	assert.Equal(t, []int64{oldTT}, old)
	assert.Equal(t, []int64{newTT}, current)

	// A later hand carrying the older, less specific attributes resolves to the refined type.
	_, again, err := r.Tourney(ctx, 1, "T-1", plain)
	require.NoError(t, err)
	assert.Equal(t, newTT, again)
}
