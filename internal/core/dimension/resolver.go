package dimension

import (
	"context"
	"fmt"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// Store is the persisted side of dimension resolution. Every Ensure method is
// an atomic insert-or-get on the natural key.
type Store interface {
	EnsureSite(ctx context.Context, name string) (int64, error)
	EnsureGametype(ctx context.Context, siteID int64, gt storage.Gametype) (int64, error)
	// EnsurePlayer promotes an existing row to hero when hero is true.
	EnsurePlayer(ctx context.Context, siteID int64, name string, hero bool) (int64, error)
	EnsureWeek(ctx context.Context, start time.Time) (int64, error)
	EnsureMonth(ctx context.Context, start time.Time) (int64, error)
	EnsureTourneyType(ctx context.Context, siteID int64, tt storage.TourneyType, fingerprint string) (int64, error)
	TourneyByNo(ctx context.Context, siteID int64, siteTourneyNo string) (storage.TourneyRow, bool, error)
	EnsureTourney(ctx context.Context, siteID int64, siteTourneyNo string, tourneyTypeID int64) (int64, error)
	SetTourneyType(ctx context.Context, tourneyID, tourneyTypeID int64) error
	EnsureTourneysPlayer(ctx context.Context, tourneyID, playerID int64, entryID int) (int64, error)
}

// Resolver maps natural keys to dimension ids through the run memo carried by
// ctx. It is bound to one transaction; construct a new one per transaction.
type Resolver struct {
	store   Store
	tracker *Tracker
}

func NewResolver(store Store, tracker *Tracker) *Resolver {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Resolver{store: store, tracker: tracker}
}

type gametypeKey struct {
	siteID int64
	gt     storage.Gametype
}

type playerKey struct {
	siteID int64
	name   string
	hero   bool
}

type tourneyKey struct {
	siteID int64
	no     string
}

type tourneyTypeKey struct {
	siteID      int64
	no          string
	fingerprint string
}

type tourneysPlayerKey struct {
	tourneyID int64
	playerID  int64
	entryID   int
}

func (r *Resolver) Site(ctx context.Context, name string) (int64, error) {
	id, err := MemoFrom(ctx).Ensure(ctx, KindSite, name, func(ctx context.Context) (int64, error) {
		return r.store.EnsureSite(ctx, name)
	})
	if err != nil {
		return 0, fmt.Errorf("resolve site %q: %w", name, err)
	}
	return id, nil
}

func (r *Resolver) Gametype(ctx context.Context, siteID int64, gt storage.Gametype) (int64, error) {
	id, err := MemoFrom(ctx).Ensure(ctx, KindGametype, gametypeKey{siteID, gt}, func(ctx context.Context) (int64, error) {
		return r.store.EnsureGametype(ctx, siteID, gt)
	})
	if err != nil {
		return 0, fmt.Errorf("resolve gametype: %w", err)
	}
	return id, nil
}

// Player resolves a player. A hero lookup is memoized separately so that a
// player first seen as a villain is still promoted.
func (r *Resolver) Player(ctx context.Context, siteID int64, name string, hero bool) (int64, error) {
	id, err := MemoFrom(ctx).Ensure(ctx, KindPlayer, playerKey{siteID, name, hero}, func(ctx context.Context) (int64, error) {
		return r.store.EnsurePlayer(ctx, siteID, name, hero)
	})
	if err != nil {
		return 0, fmt.Errorf("resolve player %q: %w", name, err)
	}
	return id, nil
}

func (r *Resolver) Week(ctx context.Context, start time.Time) (int64, error) {
	id, err := MemoFrom(ctx).Ensure(ctx, KindWeek, start.Unix(), func(ctx context.Context) (int64, error) {
		return r.store.EnsureWeek(ctx, start)
	})
	if err != nil {
		return 0, fmt.Errorf("resolve week %s: %w", start.Format(time.DateOnly), err)
	}
	return id, nil
}

func (r *Resolver) Month(ctx context.Context, start time.Time) (int64, error) {
	id, err := MemoFrom(ctx).Ensure(ctx, KindMonth, start.Unix(), func(ctx context.Context) (int64, error) {
		return r.store.EnsureMonth(ctx, start)
	})
	if err != nil {
		return 0, fmt.Errorf("resolve month %s: %w", start.Format(time.DateOnly), err)
	}
	return id, nil
}

// Tourney resolves the tourney type and the tourney of a tournament hand or
// summary. When the candidate type refines the persisted one, the tourney is
// re-pointed to the refined type and the supersession is tracked.
func (r *Resolver) Tourney(ctx context.Context, siteID int64, siteTourneyNo string, candidate storage.TourneyType) (tourneyID, tourneyTypeID int64, err error) {
	memo := MemoFrom(ctx)
	ttKey := tourneyTypeKey{siteID, siteTourneyNo, Fingerprint(candidate)}
	tourneyTypeID, err = memo.Ensure(ctx, KindTourneyType, ttKey, func(ctx context.Context) (int64, error) {
		return r.tourneyType(ctx, siteID, siteTourneyNo, candidate)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("resolve tourney type of %q: %w", siteTourneyNo, err)
	}

	tourneyID, err = memo.Ensure(ctx, KindTourney, tourneyKey{siteID, siteTourneyNo}, func(ctx context.Context) (int64, error) {
		return r.store.EnsureTourney(ctx, siteID, siteTourneyNo, tourneyTypeID)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("resolve tourney %q: %w", siteTourneyNo, err)
	}
	return tourneyID, tourneyTypeID, nil
}

func (r *Resolver) tourneyType(ctx context.Context, siteID int64, siteTourneyNo string, candidate storage.TourneyType) (int64, error) {
	row, found, err := r.store.TourneyByNo(ctx, siteID, siteTourneyNo)
	if err != nil {
		return 0, err
	}
	if !found {
		tt := Normalize(candidate)
		return r.store.EnsureTourneyType(ctx, siteID, tt, Fingerprint(tt))
	}

	merged, dirty, err := ReconcileTourneyType(candidate, row.TourneyTypeID, row.Type)
	if err != nil {
		return 0, err
	}
	if !dirty {
		return row.TourneyTypeID, nil
	}

	newID, err := r.store.EnsureTourneyType(ctx, siteID, merged, Fingerprint(merged))
	if err != nil {
		return 0, err
	}
	if newID != row.TourneyTypeID {
		if err := r.store.SetTourneyType(ctx, row.ID, newID); err != nil {
			return 0, err
		}
		r.tracker.SupersedeTourneyType(row.TourneyTypeID, newID)
		// Candidates memoized against the retired type must be reconciled again.
		MemoFrom(ctx).ForgetKind(KindTourneyType)
	}
	return newID, nil
}

func (r *Resolver) TourneysPlayer(ctx context.Context, tourneyID, playerID int64, entryID int) (int64, error) {
	key := tourneysPlayerKey{tourneyID, playerID, entryID}
	id, err := MemoFrom(ctx).Ensure(ctx, KindTourneysPlayer, key, func(ctx context.Context) (int64, error) {
		return r.store.EnsureTourneysPlayer(ctx, tourneyID, playerID, entryID)
	})
	if err != nil {
		return 0, fmt.Errorf("resolve tourneys player: %w", err)
	}
	return id, nil
}
