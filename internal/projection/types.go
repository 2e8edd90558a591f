package projection

import (
	"time"

	"github.com/Fulvio75/fpdb/internal/core/config"
	"github.com/shopspring/decimal"
)

// Stat ranges.
const (
	RangeAll     = "A"
	RangeDays    = "T"
	RangeSession = "S"
)

// Seat filter styles.
const (
	SeatsAll    = "A"
	SeatsCustom = "C"
	SeatsExact  = "E"
)

// Side selects which hands a group of players is summed over.
type Side struct {
	Range string `json:"range" form:"range"`
	Days  int    `json:"days" form:"days"`
}

// Params tunes a HUD read. Hero and villains each have their own Side; the
// seat filter applies to both.
type Params struct {
	Hero       Side          `json:"hero"`
	Villains   Side          `json:"villains"`
	SeatsStyle string        `json:"seatsStyle"`
	SeatsMin   int           `json:"seatsMin"`
	SeatsMax   int           `json:"seatsMax"`
	DayStart   int           `json:"dayStart"`
	Session    time.Duration `json:"sessionTimeout"`

	// FastHud mirrors import.fast_store_hud_cache. Reduced HudCache rows
	// carry activeSeats 0, so no seat filter can apply to them.
	FastHud bool `json:"-"`
}

// ParamsFromConfig builds the default read parameters.
func ParamsFromConfig(hud config.HudConfig, imp config.ImportConfig) Params {
	return Params{
		Hero:       Side{Range: hud.HeroStatRange, Days: hud.HeroDays},
		Villains:   Side{Range: hud.StatRange, Days: hud.Days},
		SeatsStyle: hud.SeatsStyle,
		SeatsMin:   hud.SeatsMin,
		SeatsMax:   hud.SeatsMax,
		DayStart:   imp.DayStart,
		Session:    imp.SessionThreshold(),
		FastHud:    imp.FastStoreHudCache,
	}
}

// seats returns the activeSeats bounds for a table of the given size.
func (p Params) seats(tableSize int) (int, int) {
	if p.FastHud {
		return 0, 10
	}
	switch p.SeatsStyle {
	case SeatsCustom:
		return p.SeatsMin, p.SeatsMax
	case SeatsExact:
		return tableSize, tableSize
	default:
		return 0, 10
	}
}

// PlayerStats is one player's HUD line.
type PlayerStats struct {
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	SeatNo   int    `json:"seatNo"`
	Hero     bool   `json:"hero"`
	Range    string `json:"range"`

	Hands  int64           `json:"hands"`
	VPIP   decimal.Decimal `json:"vpip"`
	PFR    decimal.Decimal `json:"pfr"`
	Steal  decimal.Decimal `json:"steal"`
	CBet   decimal.Decimal `json:"cbet"`
	WTSD   decimal.Decimal `json:"wtsd"`
	WSD    decimal.Decimal `json:"wsd"`
	Profit decimal.Decimal `json:"profit"`
	BB100  decimal.Decimal `json:"bb100"`

	Counters map[string]int64 `json:"counters,omitempty"`
}

// HudResponse is the body of a HUD read.
type HudResponse struct {
	HandID  int64         `json:"handId"`
	Players []PlayerStats `json:"players"`
}
