package cache

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the rolling cache tables.
type Kind int

const (
	KindHud Kind = iota
	KindCash
	KindTour
	KindCards
	KindPositions
)

var kindNames = map[Kind]string{
	KindHud:       "HudCache",
	KindCash:      "CashCache",
	KindTour:      "TourCache",
	KindCards:     "CardsCache",
	KindPositions: "PositionsCache",
}

// String returns the table name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a table name (case-insensitive) to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown cache kind %q", s)
}

// HasTourneyDimension reports whether rows of the kind carry a tourney type id.
func (k Kind) HasTourneyDimension() bool {
	return k == KindHud || k == KindCards || k == KindPositions
}

// HasBucketDimension reports whether rows of the kind carry week/month ids.
func (k Kind) HasBucketDimension() bool {
	return k == KindCards || k == KindPositions
}

// Mode is the game dimension of a cache row.
type Mode int

const (
	ModeRing Mode = iota
	ModeTourney
)

func (m Mode) String() string {
	if m == ModeTourney {
		return "tour"
	}
	return "ring"
}

// Scope identifies the game dimension of a cache row. It is either a
// RingScope or a TourneyScope.
type Scope interface {
	Mode() Mode
	Gametype() int64
	// TourneyType returns the tourney type id, or 0 for ring scopes.
	TourneyType() int64
}

// RingScope keys cash-game rows by game type.
type RingScope struct {
	GametypeID int64
}

func (RingScope) Mode() Mode { return ModeRing }

func (s RingScope) Gametype() int64 { return s.GametypeID }

func (RingScope) TourneyType() int64 { return 0 }

func (s RingScope) String() string { return fmt.Sprintf("ring(gt=%d)", s.GametypeID) }

// TourneyScope keys tournament rows by tourney type. HudCache keeps the game
// type alongside; Cards and Positions caches store only the tourney type.
type TourneyScope struct {
	GametypeID    int64
	TourneyTypeID int64
}

func (TourneyScope) Mode() Mode { return ModeTourney }

func (s TourneyScope) Gametype() int64 { return s.GametypeID }

func (s TourneyScope) TourneyType() int64 { return s.TourneyTypeID }

func (s TourneyScope) String() string {
	return fmt.Sprintf("tour(gt=%d,tt=%d)", s.GametypeID, s.TourneyTypeID)
}

// ScopeFor builds the scope of a hand: tourney when tourneyTypeID is set.
func ScopeFor(gametypeID, tourneyTypeID int64) Scope {
	if tourneyTypeID != 0 {
		return TourneyScope{GametypeID: gametypeID, TourneyTypeID: tourneyTypeID}
	}
	return RingScope{GametypeID: gametypeID}
}

// RowKey is the composite dimension tuple of one cache row.
type RowKey interface {
	Kind() Kind
	CacheScope() Scope
	// Bucket returns the week/month pair for kinds keyed by it.
	Bucket() (BucketPair, bool)
	// Args returns the non-scope, non-bucket key column values in column order.
	Args() []any
}

// Key constrains buffer keys to comparable row keys.
type Key interface {
	comparable
	RowKey
}

// BucketPair is a (week id, month id) pair.
type BucketPair struct {
	WeekID  int64
	MonthID int64
}

// HudKey keys HudCache rows.
type HudKey struct {
	Scope       Scope
	PlayerID    int64
	ActiveSeats int
	Position    string
	StyleKey    string
}

func (HudKey) Kind() Kind { return KindHud }

func (k HudKey) CacheScope() Scope { return k.Scope }

func (HudKey) Bucket() (BucketPair, bool) { return BucketPair{}, false }

func (k HudKey) Args() []any {
	return []any{k.PlayerID, k.ActiveSeats, k.Position, k.StyleKey}
}

// CardsKey keys CardsCache rows.
type CardsKey struct {
	Buckets    BucketPair
	Scope      Scope
	PlayerID   int64
	StreetID   int
	BoardID    int
	HiLo       string
	StartCards int
	RankID     int
}

func (CardsKey) Kind() Kind { return KindCards }

func (k CardsKey) CacheScope() Scope { return k.Scope }

func (k CardsKey) Bucket() (BucketPair, bool) { return k.Buckets, true }

func (k CardsKey) Args() []any {
	return []any{k.PlayerID, k.StreetID, k.BoardID, k.HiLo, k.StartCards, k.RankID}
}

// PositionsKey keys PositionsCache rows.
type PositionsKey struct {
	Buckets     BucketPair
	Scope       Scope
	PlayerID    int64
	ActiveSeats int
	Position    string
}

func (PositionsKey) Kind() Kind { return KindPositions }

func (k PositionsKey) CacheScope() Scope { return k.Scope }

func (k PositionsKey) Bucket() (BucketPair, bool) { return k.Buckets, true }

func (k PositionsKey) Args() []any {
	return []any{k.PlayerID, k.ActiveSeats, k.Position}
}

// CashKey identifies one player's cash lines at one game type.
type CashKey struct {
	GametypeID int64
	PlayerID   int64
}

// TourKey identifies one player's line in one tourney.
type TourKey struct {
	TourneyID int64
	PlayerID  int64
}

const (
	// FastStyleKey replaces the day bucket when the reduced HudCache tuple is used.
	FastStyleKey = "A000000"
	// FastPosition replaces the position when the reduced HudCache tuple is used.
	FastPosition = "A"
	// StreetStartCards is the start-cards value stored for post-flop CardsCache rows.
	StreetStartCards = 170
	// NoPosition marks PositionsCache rows of non-hero players.
	NoPosition = "N"
)

// HudPosition maps a hand-player position code onto the HudCache bucket:
// blinds stay, button is D, cutoff C, 2-4 M and everything earlier E.
func HudPosition(pos string) string {
	switch pos {
	case "B", "S":
		return pos
	case "0":
		return "D"
	case "1":
		return "C"
	case "2", "3", "4":
		return "M"
	default:
		return "E"
	}
}

// StyleKey returns the day bucket ("d" + YYMMDD) of a hand start time after
// shifting it back by dayStart hours, so late-night play lands on the day the
// session began.
func StyleKey(start time.Time, dayStart int) string {
	return start.UTC().Add(-time.Duration(dayStart) * time.Hour).Format("d060102")
}

// StyleKeyDaysAgo is the exclusive lower bound used by "last N days" reads.
func StyleKeyDaysAgo(now time.Time, days, dayStart int) string {
	return StyleKey(now.AddDate(0, 0, -days), dayStart)
}
