package stats

import "fmt"

// Keys is the canonical ordered list of counters carried by every hand-player
// record and every cache row. Column lists in SQL are generated from it, so the
// order here is the storage order everywhere.
var Keys = [...]string{
	"hands",
	"played",
	"street0VPIChance",
	"street0VPI",
	"street0AggrChance",
	"street0Aggr",
	"street0CalledRaiseChance",
	"street0CalledRaiseDone",
	"street0_3BChance",
	"street0_3BDone",
	"street0_4BChance",
	"street0_4BDone",
	"street0_C4BChance",
	"street0_C4BDone",
	"street0_FoldTo3BChance",
	"street0_FoldTo3BDone",
	"street0_FoldTo4BChance",
	"street0_FoldTo4BDone",
	"street0_SqueezeChance",
	"street0_SqueezeDone",
	"raiseToStealChance",
	"raiseToStealDone",
	"success_Steal",
	"street1Seen",
	"street2Seen",
	"street3Seen",
	"street4Seen",
	"sawShowdown",
	"street1Aggr",
	"street2Aggr",
	"street3Aggr",
	"street4Aggr",
	"otherRaisedStreet0",
	"otherRaisedStreet1",
	"otherRaisedStreet2",
	"otherRaisedStreet3",
	"otherRaisedStreet4",
	"foldToOtherRaisedStreet0",
	"foldToOtherRaisedStreet1",
	"foldToOtherRaisedStreet2",
	"foldToOtherRaisedStreet3",
	"foldToOtherRaisedStreet4",
	"wonWhenSeenStreet1",
	"wonWhenSeenStreet2",
	"wonWhenSeenStreet3",
	"wonWhenSeenStreet4",
	"wonAtSD",
	"raiseFirstInChance",
	"raisedFirstIn",
	"foldBbToStealChance",
	"foldedBbToSteal",
	"foldSbToStealChance",
	"foldedSbToSteal",
	"street1CBChance",
	"street1CBDone",
	"street2CBChance",
	"street2CBDone",
	"street3CBChance",
	"street3CBDone",
	"street4CBChance",
	"street4CBDone",
	"foldToStreet1CBChance",
	"foldToStreet1CBDone",
	"foldToStreet2CBChance",
	"foldToStreet2CBDone",
	"foldToStreet3CBChance",
	"foldToStreet3CBDone",
	"foldToStreet4CBChance",
	"foldToStreet4CBDone",
	"totalProfit",
	"rake",
	"rakeDealt",
	"rakeContributed",
	"rakeWeighted",
	"showdownWinnings",
	"nonShowdownWinnings",
	"allInEV",
	"BBwon",
	"vsHero",
	"street1CheckCallRaiseChance",
	"street1CheckCallDone",
	"street1CheckRaiseDone",
	"street2CheckCallRaiseChance",
	"street2CheckCallDone",
	"street2CheckRaiseDone",
	"street3CheckCallRaiseChance",
	"street3CheckCallDone",
	"street3CheckRaiseDone",
	"street4CheckCallRaiseChance",
	"street4CheckCallDone",
	"street4CheckRaiseDone",
	"street0Calls",
	"street1Calls",
	"street2Calls",
	"street3Calls",
	"street4Calls",
	"street0Bets",
	"street1Bets",
	"street2Bets",
	"street3Bets",
	"street4Bets",
	"street0Raises",
	"street1Raises",
	"street2Raises",
	"street3Raises",
	"street4Raises",
}

// NumKeys is the length of every Vector.
const NumKeys = len(Keys)

// HandsIndex is the position of the "hands" counter. Hand-player records
// always carry hands=1; the persisted per-hand table derives it with COUNT.
const HandsIndex = 0

var keyIndex = func() map[string]int {
	m := make(map[string]int, NumKeys)
	for i, k := range Keys {
		m[k] = i
	}
	return m
}()

// Index returns the position of a counter name in Keys.
func Index(name string) (int, bool) {
	i, ok := keyIndex[name]
	return i, ok
}

// Vector is one StatVector: the counters for a hand-player record, or the
// running totals of a cache row.
type Vector [NumKeys]int64

// Add accumulates other into v element-wise.
func (v *Vector) Add(other *Vector) {
	for i := range v {
		v[i] += other[i]
	}
}

// Get returns the named counter, or 0 for an unknown name.
func (v *Vector) Get(name string) int64 {
	if i, ok := keyIndex[name]; ok {
		return v[i]
	}
	return 0
}

// Set assigns a named counter.
func (v *Vector) Set(name string, value int64) error {
	i, ok := keyIndex[name]
	if !ok {
		return fmt.Errorf("unknown stat counter %q", name)
	}
	v[i] = value
	return nil
}

// IsZero reports whether every counter is zero.
func (v *Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Map returns the counters keyed by name.
func (v *Vector) Map() map[string]int64 {
	m := make(map[string]int64, NumKeys)
	for i, k := range Keys {
		m[k] = v[i]
	}
	return m
}

// FromMap builds a Vector from named counters. Unknown names are rejected so a
// producer with a drifted key set fails loudly instead of losing counters.
func FromMap(m map[string]int64) (Vector, error) {
	var v Vector
	for name, value := range m {
		i, ok := keyIndex[name]
		if !ok {
			return Vector{}, fmt.Errorf("unknown stat counter %q", name)
		}
		v[i] = value
	}
	return v, nil
}

// Sum adds all vectors into a fresh one.
func Sum(vs ...*Vector) Vector {
	var out Vector
	for _, v := range vs {
		out.Add(v)
	}
	return out
}
