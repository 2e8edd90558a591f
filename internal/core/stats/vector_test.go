package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys_OrderAndUniqueness(t *testing.T) {
	require.Equal(t, "hands", Keys[0])
	require.Equal(t, "played", Keys[1])
	require.Equal(t, "street4Raises", Keys[NumKeys-1])

	seen := make(map[string]bool, NumKeys)
	for _, k := range Keys {
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}

	i, ok := Index("totalProfit")
	require.True(t, ok)
	assert.Equal(t, "totalProfit", Keys[i])
}

func TestVector_AddIsCommutative(t *testing.T) {
	a, err := FromMap(map[string]int64{"hands": 1, "street0VPI": 1, "totalProfit": -250})
	require.NoError(t, err)
	b, err := FromMap(map[string]int64{"hands": 1, "street0VPIChance": 1, "totalProfit": 400})
	require.NoError(t, err)

	ab := Sum(&a, &b)
	ba := Sum(&b, &a)
	assert.Equal(t, ab, ba)
	assert.Equal(t, int64(2), ab.Get("hands"))
	assert.Equal(t, int64(150), ab.Get("totalProfit"))
}

func TestFromMap_RejectsUnknownCounter(t *testing.T) {
	_, err := FromMap(map[string]int64{"vpipp": 1})
	require.Error(t, err)

	var v Vector
	require.Error(t, v.Set("nope", 1))
	require.NoError(t, v.Set("wonAtSD", 3))
	assert.Equal(t, int64(3), v.Map()["wonAtSD"])
	assert.False(t, v.IsZero())
}

func TestRatioAndMoney(t *testing.T) {
	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"vpip", Ratio(1, 3), "33.3"},
		{"no chance", Ratio(0, 0), "0"},
		{"cents", MinorToMajor(-1250), "-12.5"},
		{"bb per 100", BBPer100(450, 90), "5"},
		{"no hands", BBPer100(450, 0), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(tt.got), "got %s", tt.got)
		})
	}
}
