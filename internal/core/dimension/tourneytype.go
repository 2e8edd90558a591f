package dimension

import (
	"crypto/sha256"
	"fmt"
	"strings"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// Named defaults of the string attributes.
const (
	DefaultCurrency = "NA"
	DefaultStack    = "Regular"
	DefaultSpeed    = "Normal"
)

type attribute struct {
	name      string
	value     func(*storage.TourneyType) any
	isDefault func(*storage.TourneyType) bool
	adopt     func(dst, src *storage.TourneyType)
}

func boolAttr(name string, f func(*storage.TourneyType) *bool) attribute {
	return attribute{
		name:      name,
		value:     func(t *storage.TourneyType) any { return *f(t) },
		isDefault: func(t *storage.TourneyType) bool { return !*f(t) },
		adopt:     func(dst, src *storage.TourneyType) { *f(dst) = *f(src) },
	}
}

func numAttr[T int | int64](name string, f func(*storage.TourneyType) *T) attribute {
	return attribute{
		name:      name,
		value:     func(t *storage.TourneyType) any { return *f(t) },
		isDefault: func(t *storage.TourneyType) bool { return *f(t) == 0 },
		adopt:     func(dst, src *storage.TourneyType) { *f(dst) = *f(src) },
	}
}

func strAttr(name, def string, f func(*storage.TourneyType) *string) attribute {
	return attribute{
		name:      name,
		value:     func(t *storage.TourneyType) any { return *f(t) },
		isDefault: func(t *storage.TourneyType) bool { return *f(t) == "" || *f(t) == def },
		adopt:     func(dst, src *storage.TourneyType) { *f(dst) = *f(src) },
	}
}

// attributes lists every compared attribute in canonical order. Category and
// limit type come from the game type and are part of the identity.
var attributes = []attribute{
	strAttr("currency", DefaultCurrency, func(t *storage.TourneyType) *string { return &t.Currency }),
	numAttr("buyIn", func(t *storage.TourneyType) *int64 { return &t.BuyIn }),
	numAttr("fee", func(t *storage.TourneyType) *int64 { return &t.Fee }),
	strAttr("category", "", func(t *storage.TourneyType) *string { return &t.Category }),
	strAttr("limitType", "", func(t *storage.TourneyType) *string { return &t.LimitType }),
	numAttr("maxSeats", func(t *storage.TourneyType) *int { return &t.MaxSeats }),
	boolAttr("sng", func(t *storage.TourneyType) *bool { return &t.Sng }),
	boolAttr("knockout", func(t *storage.TourneyType) *bool { return &t.Knockout }),
	numAttr("koBounty", func(t *storage.TourneyType) *int64 { return &t.KoBounty }),
	boolAttr("rebuy", func(t *storage.TourneyType) *bool { return &t.Rebuy }),
	numAttr("rebuyCost", func(t *storage.TourneyType) *int64 { return &t.RebuyCost }),
	boolAttr("addOn", func(t *storage.TourneyType) *bool { return &t.AddOn }),
	numAttr("addOnCost", func(t *storage.TourneyType) *int64 { return &t.AddOnCost }),
	strAttr("speed", DefaultSpeed, func(t *storage.TourneyType) *string { return &t.Speed }),
	boolAttr("shootout", func(t *storage.TourneyType) *bool { return &t.Shootout }),
	boolAttr("matrix", func(t *storage.TourneyType) *bool { return &t.Matrix }),
	boolAttr("fast", func(t *storage.TourneyType) *bool { return &t.Fast }),
	strAttr("stack", DefaultStack, func(t *storage.TourneyType) *string { return &t.Stack }),
	boolAttr("step", func(t *storage.TourneyType) *bool { return &t.Step }),
	numAttr("stepNo", func(t *storage.TourneyType) *int { return &t.StepNo }),
	boolAttr("chance", func(t *storage.TourneyType) *bool { return &t.Chance }),
	numAttr("chanceCount", func(t *storage.TourneyType) *int { return &t.ChanceCount }),
	boolAttr("multiEntry", func(t *storage.TourneyType) *bool { return &t.MultiEntry }),
	boolAttr("reEntry", func(t *storage.TourneyType) *bool { return &t.ReEntry }),
	boolAttr("homeGame", func(t *storage.TourneyType) *bool { return &t.HomeGame }),
	boolAttr("newToGame", func(t *storage.TourneyType) *bool { return &t.NewToGame }),
	boolAttr("fifty50", func(t *storage.TourneyType) *bool { return &t.Fifty50 }),
	boolAttr("time", func(t *storage.TourneyType) *bool { return &t.Time }),
	numAttr("timeAmt", func(t *storage.TourneyType) *int { return &t.TimeAmt }),
	boolAttr("satellite", func(t *storage.TourneyType) *bool { return &t.Satellite }),
	boolAttr("doubleOrNothing", func(t *storage.TourneyType) *bool { return &t.DoubleOrNothing }),
	boolAttr("cashOut", func(t *storage.TourneyType) *bool { return &t.CashOut }),
	boolAttr("onDemand", func(t *storage.TourneyType) *bool { return &t.OnDemand }),
	boolAttr("flighted", func(t *storage.TourneyType) *bool { return &t.Flighted }),
	boolAttr("guarantee", func(t *storage.TourneyType) *bool { return &t.Guarantee }),
	numAttr("guaranteeAmt", func(t *storage.TourneyType) *int64 { return &t.GuaranteeAmt }),
}

// Normalize fills the named string defaults.
func Normalize(tt storage.TourneyType) storage.TourneyType {
	if tt.Currency == "" {
		tt.Currency = DefaultCurrency
	}
	if tt.Stack == "" {
		tt.Stack = DefaultStack
	}
	if tt.Speed == "" {
		tt.Speed = DefaultSpeed
	}
	return tt
}

// Fingerprint is the SHA-256 of the canonical attribute encoding of tt after
// normalization. Two types with the same fingerprint are the same row.
func Fingerprint(tt storage.TourneyType) string {
	tt = Normalize(tt)
	var b strings.Builder
	for _, a := range attributes {
		fmt.Fprintf(&b, "%s=%v\n", a.name, a.value(&tt))
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

// ReconcileTourneyType merges a candidate with the persisted type of the same
// tourney. Attributes only the persisted row knows are adopted by the
// candidate. When the candidate knows something the persisted row does not,
// dirty is true and the merged type must replace the persisted one. Two
// concrete values that disagree yield a ConsistencyError, except for
// maxSeats and koBounty where the smaller compatible value wins.
func ReconcileTourneyType(candidate storage.TourneyType, persistedID int64, persisted storage.TourneyType) (storage.TourneyType, bool, error) {
	merged := Normalize(candidate)
	pers := Normalize(persisted)
	dirty := false

	for _, a := range attributes {
		cv, pv := a.value(&merged), a.value(&pers)
		if cv == pv {
			continue
		}
		cd, pd := a.isDefault(&merged), a.isDefault(&pers)
		switch {
		case pd && !cd:
			dirty = true
			continue
		case cd && !pd:
			a.adopt(&merged, &pers)
			continue
		}

		switch a.name {
		case "maxSeats":
			if merged.MaxSeats < pers.MaxSeats {
				dirty = true
			} else {
				merged.MaxSeats = pers.MaxSeats
			}
			continue
		case "koBounty":
			small, large := merged.KoBounty, pers.KoBounty
			if small > large {
				small, large = large, small
			}
			if large%small == 0 {
				if merged.KoBounty == small {
					dirty = true
				} else {
					merged.KoBounty = small
				}
				continue
			}
		}

		return storage.TourneyType{}, false, &fperrors.ConsistencyError{
			Dimension: "TourneyType",
			ID:        persistedID,
			Reason:    fmt.Sprintf("%s: persisted %v, candidate %v", a.name, pv, cv),
		}
	}
	return merged, dirty, nil
}
