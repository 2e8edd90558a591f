package dimension

import (
	"sort"

	"github.com/Fulvio75/fpdb/internal/core/cache"
)

// Tracker records dimension ids superseded during a run. Cache lines touching a
// tracked id are left to the garbage collector, which rebuilds them from the
// hand records.
type Tracker struct {
	oldTypes map[int64]struct{}
	newTypes map[int64]struct{}
	oldPairs map[cache.BucketPair]struct{}
	newPairs map[cache.BucketPair]struct{}
}

func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// SupersedeTourneyType retires old in favor of current.
func (t *Tracker) SupersedeTourneyType(old, current int64) {
	t.oldTypes[old] = struct{}{}
	t.newTypes[current] = struct{}{}
}

// MoveBucket records a session leaving the old week/month pair for current.
func (t *Tracker) MoveBucket(old, current cache.BucketPair) {
	t.oldPairs[old] = struct{}{}
	t.newPairs[current] = struct{}{}
}

// TracksTourneyType reports whether id is in the superseded or current set.
func (t *Tracker) TracksTourneyType(id int64) bool {
	_, o := t.oldTypes[id]
	_, n := t.newTypes[id]
	return o || n
}

// TracksBucket reports whether p is in the old or new pair set.
func (t *Tracker) TracksBucket(p cache.BucketPair) bool {
	_, o := t.oldPairs[p]
	_, n := t.newPairs[p]
	return o || n
}

// Excludes reports whether a cache line must be deferred to garbage collection.
func (t *Tracker) Excludes(k cache.RowKey) bool {
	if k.Kind().HasTourneyDimension() {
		if s := k.CacheScope(); s.Mode() == cache.ModeTourney && t.TracksTourneyType(s.TourneyType()) {
			return true
		}
	}
	if p, ok := k.Bucket(); ok && t.TracksBucket(p) {
		return true
	}
	return false
}

// TourneyTypes returns the superseded and current ids, sorted.
func (t *Tracker) TourneyTypes() (old, current []int64) {
	return sortedIDs(t.oldTypes), sortedIDs(t.newTypes)
}

// Buckets returns the old and new week/month pairs, sorted.
func (t *Tracker) Buckets() (old, current []cache.BucketPair) {
	return sortedPairs(t.oldPairs), sortedPairs(t.newPairs)
}

// Pending reports whether anything awaits garbage collection.
func (t *Tracker) Pending() bool {
	return len(t.oldTypes) > 0 || len(t.oldPairs) > 0
}

// Merge folds the ids tracked by o into t. Transactions track into a scratch
// tracker that is merged only once they commit.
func (t *Tracker) Merge(o *Tracker) {
	for id := range o.oldTypes {
		t.oldTypes[id] = struct{}{}
	}
	for id := range o.newTypes {
		t.newTypes[id] = struct{}{}
	}
	for p := range o.oldPairs {
		t.oldPairs[p] = struct{}{}
	}
	for p := range o.newPairs {
		t.newPairs[p] = struct{}{}
	}
}

func (t *Tracker) Reset() {
	t.oldTypes = make(map[int64]struct{})
	t.newTypes = make(map[int64]struct{})
	t.oldPairs = make(map[cache.BucketPair]struct{})
	t.newPairs = make(map[cache.BucketPair]struct{})
}

func sortedIDs(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedPairs(m map[cache.BucketPair]struct{}) []cache.BucketPair {
	out := make([]cache.BucketPair, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekID != out[j].WeekID {
			return out[i].WeekID < out[j].WeekID
		}
		return out[i].MonthID < out[j].MonthID
	})
	return out
}
