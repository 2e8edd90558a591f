package cache

import (
	"testing"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(t *testing.T, m map[string]int64) *stats.Vector {
	t.Helper()
	v, err := stats.FromMap(m)
	require.NoError(t, err)
	return &v
}

func TestBuffer_PreSumsRepeatedKeys(t *testing.T) {
	b := NewBuffer[HudKey]()
	k := HudKey{Scope: RingScope{GametypeID: 1}, PlayerID: 9, ActiveSeats: 6, Position: "D", StyleKey: "d240301"}

	b.Accumulate(k, vec(t, map[string]int64{"hands": 1, "street0VPI": 1}))
	b.Accumulate(k, vec(t, map[string]int64{"hands": 1, "street0VPI": 1}))

	require.Equal(t, 1, b.Len())
	got, ok := b.Get(k)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Get("hands"))
	assert.Equal(t, int64(2), got.Get("street0VPI"))
}

func TestBuffer_RingAndTourneyScopesAreDistinct(t *testing.T) {
	b := NewBuffer[HudKey]()
	ring := HudKey{Scope: RingScope{GametypeID: 1}, PlayerID: 9, StyleKey: "d240301"}
	tour := HudKey{Scope: TourneyScope{GametypeID: 1, TourneyTypeID: 7}, PlayerID: 9, StyleKey: "d240301"}

	b.Accumulate(ring, vec(t, map[string]int64{"hands": 1}))
	b.Accumulate(tour, vec(t, map[string]int64{"hands": 1}))
	require.Equal(t, 2, b.Len())

	lines := b.Lines(func(k HudKey) bool { return k.Scope.TourneyType() == 7 })
	require.Len(t, lines, 1)
	assert.Equal(t, ModeRing, lines[0].Key.CacheScope().Mode())

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_LinesAreOrderedDeterministically(t *testing.T) {
	a := NewBuffer[PositionsKey]()
	c := NewBuffer[PositionsKey]()
	keys := []PositionsKey{
		{Buckets: BucketPair{1, 1}, Scope: RingScope{GametypeID: 2}, PlayerID: 3, ActiveSeats: 6, Position: "0"},
		{Buckets: BucketPair{1, 1}, Scope: RingScope{GametypeID: 2}, PlayerID: 1, ActiveSeats: 6, Position: NoPosition},
		{Buckets: BucketPair{2, 1}, Scope: TourneyScope{TourneyTypeID: 4}, PlayerID: 1, ActiveSeats: 9, Position: "B"},
	}
	one := vec(t, map[string]int64{"hands": 1})
	for i := range keys {
		a.Accumulate(keys[i], one)
		c.Accumulate(keys[len(keys)-1-i], one)
	}
	assert.Equal(t, a.Lines(nil), c.Lines(nil))
}

func TestHudPosition(t *testing.T) {
	tests := map[string]string{"B": "B", "S": "S", "0": "D", "1": "C", "2": "M", "4": "M", "5": "E", "9": "E", "": "E"}
	for in, want := range tests {
		assert.Equal(t, want, HudPosition(in), "position %q", in)
	}
}

func TestStyleKey_AppliesDayStart(t *testing.T) {
	late := time.Date(2024, 3, 2, 3, 30, 0, 0, time.UTC)
	assert.Equal(t, "d240302", StyleKey(late, 0))
	assert.Equal(t, "d240301", StyleKey(late, 5))

	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "d240301", StyleKeyDaysAgo(now, 30, 0))
	assert.True(t, "d240302" > StyleKeyDaysAgo(now, 30, 0))
	assert.True(t, FastStyleKey < "d000101")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("hudcache")
	require.NoError(t, err)
	assert.Equal(t, KindHud, k)
	assert.True(t, KindCards.HasBucketDimension())
	assert.False(t, KindCash.HasTourneyDimension())

	_, err = ParseKind("nope")
	require.Error(t, err)
}
