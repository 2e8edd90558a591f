package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrInvalidParams marks request validation errors that should return HTTP 400.
var ErrInvalidParams = errors.New("invalid hud parameters")

// allTimeStyleKey sorts below every styleKey, day buckets and the fast key alike.
const allTimeStyleKey = "0000000"

// Store is the read surface the HUD needs.
type Store interface {
	HudHand(ctx context.Context, handID int64) (storage.HudHand, error)
	HudTotals(ctx context.Context, q storage.HudQuery) (map[int64]stats.Vector, error)
	LiveTotals(ctx context.Context, q storage.LiveQuery) (map[int64]stats.Vector, error)
}

type cacheKey struct {
	handID int64
	params Params
}

// Service serves HUD statistics from HudCache, or from the stored hands of
// the live session for the session range.
type Service struct {
	store    Store
	defaults Params
	cache    *expirable.LRU[cacheKey, []PlayerStats]
	nowFn    func() time.Time
}

// NewService creates the HUD read service. A zero ttl disables response caching.
func NewService(store Store, defaults Params, cacheSize int, ttl time.Duration) *Service {
	if store == nil {
		panic("projection: store must not be nil")
	}
	s := &Service{
		store:    store,
		defaults: defaults,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	if ttl > 0 {
		s.cache = expirable.NewLRU[cacheKey, []PlayerStats](cacheSize, nil, ttl)
	}
	return s
}

// Defaults returns the parameters used when a request leaves them out.
func (s *Service) Defaults() Params { return s.defaults }

// Purge drops every cached response.
func (s *Service) Purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// HudStats returns one line per player seated at the hand.
func (s *Service) HudStats(ctx context.Context, handID int64, p Params) ([]PlayerStats, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	key := cacheKey{handID: handID, params: p}
	if s.cache != nil {
		if out, ok := s.cache.Get(key); ok {
			return out, nil
		}
	}

	hand, err := s.store.HudHand(ctx, handID)
	if err != nil {
		return nil, fmt.Errorf("load hand %d: %w", handID, err)
	}

	var heroIDs, villainIDs []int64
	for _, seat := range hand.Players {
		if seat.Hero {
			heroIDs = append(heroIDs, seat.PlayerID)
		} else {
			villainIDs = append(villainIDs, seat.PlayerID)
		}
	}

	totals := make(map[int64]stats.Vector, len(hand.Players))
	for _, side := range []struct {
		side Side
		ids  []int64
	}{{p.Hero, heroIDs}, {p.Villains, villainIDs}} {
		got, err := s.sideTotals(ctx, hand, p, side.side, side.ids)
		if err != nil {
			return nil, fmt.Errorf("hud stats for hand %d: %w", handID, err)
		}
		for pid, v := range got {
			totals[pid] = v
		}
	}

	out := make([]PlayerStats, 0, len(hand.Players))
	for _, seat := range hand.Players {
		side := p.Villains
		if seat.Hero {
			side = p.Hero
		}
		v := totals[seat.PlayerID]
		out = append(out, playerStats(seat, side.Range, &v))
	}

	if s.cache != nil {
		s.cache.Add(key, out)
	}
	slog.Debug("[HUD] Stats computed", "hand_id", handID, "players", len(out))
	return out, nil
}

func (s *Service) sideTotals(ctx context.Context, hand storage.HudHand, p Params, side Side, ids []int64) (map[int64]stats.Vector, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if side.Range == RangeSession {
		q := storage.LiveQuery{GametypeID: hand.GametypeID, PlayerIDs: ids, SessionID: hand.SessionID}
		if q.SessionID == 0 {
			q.From, q.To = hand.StartTime.Add(-p.Session), hand.StartTime
		}
		return s.store.LiveTotals(ctx, q)
	}

	minSeats, maxSeats := p.seats(hand.Seats)
	q := storage.HudQuery{
		GametypeID:    hand.GametypeID,
		TourneyTypeID: hand.TourneyTypeID,
		PlayerIDs:     ids,
		MinSeats:      minSeats,
		MaxSeats:      maxSeats,
		StyleKeyAfter: allTimeStyleKey,
	}
	if side.Range == RangeDays {
		q.StyleKeyAfter = cache.StyleKeyDaysAgo(s.nowFn(), side.Days, p.DayStart)
	}
	return s.store.HudTotals(ctx, q)
}

func playerStats(seat storage.HudSeat, statRange string, v *stats.Vector) PlayerStats {
	hands := v.Get("hands")
	return PlayerStats{
		PlayerID: seat.PlayerID,
		Name:     seat.Name,
		SeatNo:   seat.SeatNo,
		Hero:     seat.Hero,
		Range:    statRange,
		Hands:    hands,
		VPIP:     stats.Ratio(v.Get("street0VPI"), hands),
		PFR:      stats.Ratio(v.Get("street0Aggr"), hands),
		Steal:    stats.Ratio(v.Get("raiseToStealDone"), v.Get("raiseToStealChance")),
		CBet:     stats.Ratio(v.Get("street1CBDone"), v.Get("street1CBChance")),
		WTSD:     stats.Ratio(v.Get("sawShowdown"), v.Get("street1Seen")),
		WSD:      stats.Ratio(v.Get("wonAtSD"), v.Get("sawShowdown")),
		Profit:   stats.MinorToMajor(v.Get("totalProfit")),
		BB100:    stats.BBPer100(v.Get("BBwon"), hands),
		Counters: v.Map(),
	}
}

func validate(p Params) error {
	for _, side := range []Side{p.Hero, p.Villains} {
		switch side.Range {
		case RangeAll, RangeSession:
		case RangeDays:
			if side.Days < 0 {
				return invalidParamsf("days must be >= 0, got %d", side.Days)
			}
		default:
			return invalidParamsf("unknown stat range %q (must be A, T or S)", side.Range)
		}
	}
	switch p.SeatsStyle {
	case SeatsAll, SeatsExact:
	case SeatsCustom:
		if p.SeatsMin > p.SeatsMax {
			return invalidParamsf("seats min %d greater than max %d", p.SeatsMin, p.SeatsMax)
		}
	default:
		return invalidParamsf("unknown seats style %q (must be A, C or E)", p.SeatsStyle)
	}
	return nil
}

func invalidParamsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
