package cache

import "fmt"

// Selection narrows a clear or a rebuild to part of a cache table: everything,
// one tourney type, or one week/month pair.
type Selection struct {
	TourneyTypeID int64
	Bucket        BucketPair
}

func SelectAll() Selection { return Selection{} }

func SelectTourneyType(id int64) Selection { return Selection{TourneyTypeID: id} }

func SelectBucket(p BucketPair) Selection { return Selection{Bucket: p} }

func (s Selection) IsAll() bool {
	return s.TourneyTypeID == 0 && s.Bucket == (BucketPair{})
}

func (s Selection) HasBucket() bool { return s.Bucket != (BucketPair{}) }

// Validate rejects a selection the kind cannot honour.
func (s Selection) Validate(k Kind) error {
	if s.TourneyTypeID != 0 && !k.HasTourneyDimension() {
		return fmt.Errorf("%s has no tourney type dimension", k)
	}
	if s.HasBucket() && !k.HasBucketDimension() {
		return fmt.Errorf("%s has no week/month dimension", k)
	}
	return nil
}

func (s Selection) String() string {
	switch {
	case s.TourneyTypeID != 0:
		return fmt.Sprintf("tourneyType=%d", s.TourneyTypeID)
	case s.HasBucket():
		return fmt.Sprintf("week=%d,month=%d", s.Bucket.WeekID, s.Bucket.MonthID)
	}
	return "all"
}
