package storage

import (
	"errors"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/stats"
)

// ErrDuplicate is returned when a hand with the same (siteHandNo, gametypeId) is already stored.
var ErrDuplicate = errors.New("hand already stored")

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("record not found")

// Game kinds carried by Gametype.Type.
const (
	GameRing    = "ring"
	GameTourney = "tour"
)

// Gametype is the natural key of a Gametypes row, scoped to a site.
type Gametype struct {
	Type       string `json:"type" yaml:"type"`
	Base       string `json:"base" yaml:"base"`
	Category   string `json:"category" yaml:"category"`
	LimitType  string `json:"limitType" yaml:"limitType"`
	Currency   string `json:"currency" yaml:"currency"`
	SmallBlind int64  `json:"smallBlind" yaml:"smallBlind"`
	BigBlind   int64  `json:"bigBlind" yaml:"bigBlind"`
	SmallBet   int64  `json:"smallBet" yaml:"smallBet"`
	BigBet     int64  `json:"bigBet" yaml:"bigBet"`
	MaxSeats   int    `json:"maxSeats" yaml:"maxSeats"`
	Ante       int64  `json:"ante" yaml:"ante"`
}

// TourneyType is the set of attributes that defines a tournament structure.
// Zero values are "unknown"; Currency, Stack and Speed carry the named defaults
// NA, Regular and Normal once normalized.
type TourneyType struct {
	Currency        string `json:"currency" yaml:"currency" db:"currency"`
	BuyIn           int64  `json:"buyIn" yaml:"buyIn" db:"buyIn"`
	Fee             int64  `json:"fee" yaml:"fee" db:"fee"`
	Category        string `json:"category" yaml:"category" db:"category"`
	LimitType       string `json:"limitType" yaml:"limitType" db:"limitType"`
	MaxSeats        int    `json:"maxSeats" yaml:"maxSeats" db:"maxSeats"`
	Sng             bool   `json:"sng" yaml:"sng" db:"sng"`
	Knockout        bool   `json:"knockout" yaml:"knockout" db:"knockout"`
	KoBounty        int64  `json:"koBounty" yaml:"koBounty" db:"koBounty"`
	Rebuy           bool   `json:"rebuy" yaml:"rebuy" db:"rebuy"`
	RebuyCost       int64  `json:"rebuyCost" yaml:"rebuyCost" db:"rebuyCost"`
	AddOn           bool   `json:"addOn" yaml:"addOn" db:"addOn"`
	AddOnCost       int64  `json:"addOnCost" yaml:"addOnCost" db:"addOnCost"`
	Speed           string `json:"speed" yaml:"speed" db:"speed"`
	Shootout        bool   `json:"shootout" yaml:"shootout" db:"shootout"`
	Matrix          bool   `json:"matrix" yaml:"matrix" db:"matrix"`
	Fast            bool   `json:"fast" yaml:"fast" db:"fast"`
	Stack           string `json:"stack" yaml:"stack" db:"stack"`
	Step            bool   `json:"step" yaml:"step" db:"step"`
	StepNo          int    `json:"stepNo" yaml:"stepNo" db:"stepNo"`
	Chance          bool   `json:"chance" yaml:"chance" db:"chance"`
	ChanceCount     int    `json:"chanceCount" yaml:"chanceCount" db:"chanceCount"`
	MultiEntry      bool   `json:"multiEntry" yaml:"multiEntry" db:"multiEntry"`
	ReEntry         bool   `json:"reEntry" yaml:"reEntry" db:"reEntry"`
	HomeGame        bool   `json:"homeGame" yaml:"homeGame" db:"homeGame"`
	NewToGame       bool   `json:"newToGame" yaml:"newToGame" db:"newToGame"`
	Fifty50         bool   `json:"fifty50" yaml:"fifty50" db:"fifty50"`
	Time            bool   `json:"time" yaml:"time" db:"time"`
	TimeAmt         int    `json:"timeAmt" yaml:"timeAmt" db:"timeAmt"`
	Satellite       bool   `json:"satellite" yaml:"satellite" db:"satellite"`
	DoubleOrNothing bool   `json:"doubleOrNothing" yaml:"doubleOrNothing" db:"doubleOrNothing"`
	CashOut         bool   `json:"cashOut" yaml:"cashOut" db:"cashOut"`
	OnDemand        bool   `json:"onDemand" yaml:"onDemand" db:"onDemand"`
	Flighted        bool   `json:"flighted" yaml:"flighted" db:"flighted"`
	Guarantee       bool   `json:"guarantee" yaml:"guarantee" db:"guarantee"`
	GuaranteeAmt    int64  `json:"guaranteeAmt" yaml:"guaranteeAmt" db:"guaranteeAmt"`
}

// TourneyRef links a tournament hand to its tourney.
type TourneyRef struct {
	SiteTourneyNo string      `json:"siteTourneyNo" yaml:"siteTourneyNo"`
	Type          TourneyType `json:"type" yaml:"type"`
}

// PlayerRecord is one player's participation in a parsed hand.
type PlayerRecord struct {
	Name       string           `json:"name" yaml:"name"`
	SeatNo     int              `json:"seatNo" yaml:"seatNo"`
	Position   string           `json:"position" yaml:"position"`
	StartCards int              `json:"startCards" yaml:"startCards"`
	EntryID    int              `json:"entryId" yaml:"entryId"`
	Stats      map[string]int64 `json:"stats" yaml:"stats"`
}

// StoveRecord is one hand-strength evaluation of a player on a street.
type StoveRecord struct {
	Player   string `json:"player" yaml:"player"`
	StreetID int    `json:"streetId" yaml:"streetId"`
	BoardID  int    `json:"boardId" yaml:"boardId"`
	HiLo     string `json:"hiLo" yaml:"hiLo"`
	RankID   int    `json:"rankId" yaml:"rankId"`
}

// HandRecord is a parsed hand as delivered by the hand-history parser.
type HandRecord struct {
	Site       string         `json:"site" yaml:"site"`
	SiteHandNo string         `json:"siteHandNo" yaml:"siteHandNo"`
	TableName  string         `json:"tableName" yaml:"tableName"`
	StartTime  time.Time      `json:"startTime" yaml:"startTime"`
	Gametype   Gametype       `json:"gametype" yaml:"gametype"`
	Tourney    *TourneyRef    `json:"tourney,omitempty" yaml:"tourney,omitempty"`
	Players    []PlayerRecord `json:"players" yaml:"players"`
	Stove      []StoveRecord  `json:"stove,omitempty" yaml:"stove,omitempty"`
}

// StoredPlayer is a hand player with resolved dimension ids.
type StoredPlayer struct {
	PlayerID          int64
	SeatNo            int
	Position          string
	StartCards        int
	TourneysPlayersID int64
	Stats             stats.Vector
}

// StoredStove is a stove row with resolved ids.
type StoredStove struct {
	PlayerID int64
	StreetID int
	BoardID  int
	HiLo     string
	RankID   int
}

// StoredHand is a hand ready to be written: every dimension is resolved.
// TourneyID and TourneyTypeID are zero for ring hands; HeroSeat is zero when
// no hero took part.
type StoredHand struct {
	ID            int64
	SiteHandNo    string
	GametypeID    int64
	TourneyID     int64
	TourneyTypeID int64
	TableName     string
	StartTime     time.Time
	Seats         int
	HeroSeat      int
	Players       []StoredPlayer
	Stove         []StoredStove
}

// HeroPlayer returns the player sitting in the hero seat.
func (h *StoredHand) HeroPlayer() (StoredPlayer, bool) {
	if h.HeroSeat == 0 {
		return StoredPlayer{}, false
	}
	for _, p := range h.Players {
		if p.SeatNo == h.HeroSeat {
			return p, true
		}
	}
	return StoredPlayer{}, false
}

// PlayerIDs returns the player ids in seat order of the record.
func (h *StoredHand) PlayerIDs() []int64 {
	ids := make([]int64, len(h.Players))
	for i, p := range h.Players {
		ids[i] = p.PlayerID
	}
	return ids
}

// TourneyRow is a persisted Tourneys row with its current tourney type.
type TourneyRow struct {
	ID            int64
	TourneyTypeID int64
	Type          TourneyType
	SessionID     int64
	Info          TourneyInfo
}

// TourneyInfo holds the summary-level attributes of a tourney. Nil means unknown.
type TourneyInfo struct {
	Name            *string    `json:"name,omitempty" yaml:"name,omitempty"`
	Entries         *int       `json:"entries,omitempty" yaml:"entries,omitempty"`
	Prizepool       *int64     `json:"prizepool,omitempty" yaml:"prizepool,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	TotalRebuyCount *int       `json:"totalRebuyCount,omitempty" yaml:"totalRebuyCount,omitempty"`
	TotalAddOnCount *int       `json:"totalAddOnCount,omitempty" yaml:"totalAddOnCount,omitempty"`
	Added           *int64     `json:"added,omitempty" yaml:"added,omitempty"`
	AddedCurrency   *string    `json:"addedCurrency,omitempty" yaml:"addedCurrency,omitempty"`
	Comment         *string    `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// TourneyResult is one entry's finishing line in a tourney summary.
type TourneyResult struct {
	Name             string  `json:"name" yaml:"name"`
	EntryID          int     `json:"entryId" yaml:"entryId"`
	Rank             *int    `json:"rank,omitempty" yaml:"rank,omitempty"`
	Winnings         *int64  `json:"winnings,omitempty" yaml:"winnings,omitempty"`
	WinningsCurrency *string `json:"winningsCurrency,omitempty" yaml:"winningsCurrency,omitempty"`
	RebuyCount       *int    `json:"rebuyCount,omitempty" yaml:"rebuyCount,omitempty"`
	AddOnCount       *int    `json:"addOnCount,omitempty" yaml:"addOnCount,omitempty"`
	KoCount          *int    `json:"koCount,omitempty" yaml:"koCount,omitempty"`
}

// TourneySummary is a parsed tournament summary.
type TourneySummary struct {
	Site          string          `json:"site" yaml:"site"`
	SiteTourneyNo string          `json:"siteTourneyNo" yaml:"siteTourneyNo"`
	Gametype      Gametype        `json:"gametype" yaml:"gametype"`
	Type          TourneyType     `json:"type" yaml:"type"`
	Info          TourneyInfo     `json:"info" yaml:"info"`
	Players       []TourneyResult `json:"players" yaml:"players"`
}

// TourneysPlayerRow is a persisted TourneysPlayers row.
type TourneysPlayerRow struct {
	ID        int64
	TourneyID int64
	PlayerID  int64
	EntryID   int
	Result    TourneyResult
}

// SessionRow is a persisted SessionsCache row.
type SessionRow struct {
	ID      int64
	WeekID  int64
	MonthID int64
	Start   time.Time
	End     time.Time
}

// CashRow is a persisted CashCache line.
type CashRow struct {
	ID        int64
	SessionID int64
	Start     time.Time
	End       time.Time
	Stats     stats.Vector
}

// HandSpan is the slice of a stored hand needed to replay sessions.
type HandSpan struct {
	ID         int64
	GametypeID int64
	TourneyID  int64
	StartTime  time.Time
	HeroSeat   int
	Players    []StoredPlayer
}

// FileRecord is the bookkeeping row of one imported input file.
type FileRecord struct {
	Path       string
	Stored     int
	Duplicates int
	Errors     int
	Started    time.Time
	Finished   time.Time
}

// HudSeat is one player at the table of a HUD hand.
type HudSeat struct {
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	SeatNo   int    `json:"seatNo"`
	Hero     bool   `json:"hero"`
}

// HudHand is the context a HUD read needs about the hand on screen.
type HudHand struct {
	ID            int64
	GametypeID    int64
	TourneyTypeID int64
	SessionID     int64
	StartTime     time.Time
	Seats         int
	HeroSeat      int
	Players       []HudSeat
}

// HudQuery selects HudCache rows for a set of players.
type HudQuery struct {
	GametypeID    int64
	TourneyTypeID int64
	PlayerIDs     []int64
	MinSeats      int
	MaxSeats      int
	// StyleKeyAfter is the exclusive lower bound on styleKey.
	StyleKeyAfter string
}

// LiveQuery selects the stored hands of a live session: either the hands
// assigned to SessionID, or, when it is zero, hands in [From, To].
type LiveQuery struct {
	GametypeID int64
	PlayerIDs  []int64
	SessionID  int64
	From       time.Time
	To         time.Time
}
