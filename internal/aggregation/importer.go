package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/dimension"
	"github.com/Fulvio75/fpdb/internal/core/lock"
	"github.com/Fulvio75/fpdb/internal/core/session"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
	"github.com/google/uuid"
)

// ErrCachesStale reports hands that were stored but whose cache deltas were
// not written. Importing them again skips them as duplicates, so only a
// rebuild brings the caches back in line.
var ErrCachesStale = errors.New("caches are behind the stored hands, run -mode rebuild")

// Report summarizes one import batch.
type Report struct {
	RunID      string        `json:"runId"`
	Stored     int           `json:"stored"`
	Duplicates int           `json:"duplicates"`
	Errors     int           `json:"errors"`
	Failures   []HandFailure `json:"failures,omitempty"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`

	// CachesStale is set when the batch's hands were stored but the cache
	// flush failed.
	CachesStale bool `json:"cachesStale,omitempty"`
}

// HandFailure names a hand that could not be stored.
type HandFailure struct {
	SiteHandNo string `json:"siteHandNo"`
	Error      string `json:"error"`
}

// cashLine is the payload of one CashCache window.
type cashLine struct {
	Stats     stats.Vector
	SessionID int64
}

func mergeCash(dst *cashLine, src cashLine) {
	dst.Stats.Add(&src.Stats)
	if dst.SessionID == 0 {
		dst.SessionID = src.SessionID
	}
}

type tourLine struct {
	Start     time.Time
	End       time.Time
	Stats     stats.Vector
	SessionID int64
}

// sessionRef is where a hand landed after session reconciliation.
type sessionRef struct {
	SessionID int64
	Buckets   cache.BucketPair
}

// Importer stores hand records and maintains the rolling caches. Every Import
// or ImportSummary call is one run with its own memo; calls are serialized.
type Importer struct {
	mu        sync.Mutex
	store     *sqlstore.Store
	opts      Options
	memo      *dimension.Memo
	tracker   *dimension.Tracker
	collector *Collector
	lock      *lock.Lock
	lockWait  bool
	runID     string

	// skipBucketCaches leaves Cards and Positions to a grouped rebuild.
	skipBucketCaches bool

	heroes    map[int64]bool
	windower  *session.Windower
	hud       *cache.Buffer[cache.HudKey]
	cards     *cache.Buffer[cache.CardsKey]
	positions *cache.Buffer[cache.PositionsKey]
	cash      map[cache.CashKey]*session.Windows[cashLine]
	tour      map[cache.TourKey]*tourLine
	pending   []storage.StoredHand
}

func NewImporter(store *sqlstore.Store, opts Options) *Importer {
	opts = opts.normalized()
	imp := &Importer{
		store:   store,
		opts:    opts,
		memo:    dimension.NewMemo(),
		tracker: dimension.NewTracker(),
		heroes:  make(map[int64]bool),
	}
	imp.collector = NewCollector(store, opts)
	imp.resetBuffers()
	return imp
}

// WithLock makes Import and ImportSummary hold the advisory insert lock.
func (imp *Importer) WithLock(l *lock.Lock, wait bool) *Importer {
	imp.lock, imp.lockWait = l, wait
	return imp
}

func (imp *Importer) resetBuffers() {
	imp.windower = session.NewWindower(imp.opts.SessionThreshold)
	imp.hud = cache.NewBuffer[cache.HudKey]()
	imp.cards = cache.NewBuffer[cache.CardsKey]()
	imp.positions = cache.NewBuffer[cache.PositionsKey]()
	imp.cash = make(map[cache.CashKey]*session.Windows[cashLine])
	imp.tour = make(map[cache.TourKey]*tourLine)
	imp.pending = nil
}

func (imp *Importer) beginRun() {
	imp.runID = uuid.NewString()
	imp.memo.Reset()
}

func (imp *Importer) withLock(ctx context.Context, fn func(context.Context) error) error {
	if imp.lock == nil {
		return fn(ctx)
	}
	return imp.lock.With(ctx, imp.lockWait, fn)
}

// Import stores records, each in its own transaction, and flushes the caches.
// A record that fails is reported and skipped; duplicates are counted.
func (imp *Importer) Import(ctx context.Context, records []storage.HandRecord) (Report, error) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.beginRun()

	report := Report{RunID: imp.runID, Started: time.Now().UTC()}
	err := imp.withLock(ctx, func(ctx context.Context) error {
		ctx = dimension.WithMemo(ctx, imp.memo)
		for i := range records {
			if err := ctx.Err(); err != nil {
				break
			}
			rec := &records[i]
			h, dup, err := imp.storeHand(ctx, rec)
			switch {
			case err != nil:
				report.Errors++
				report.Failures = append(report.Failures, HandFailure{SiteHandNo: rec.SiteHandNo, Error: err.Error()})
				slog.Warn("[Importer] Hand not stored", "site_hand_no", rec.SiteHandNo, "error", err)
				continue
			case dup:
				report.Duplicates++
				slog.Debug("[Importer] Duplicate hand skipped", "site_hand_no", rec.SiteHandNo)
				continue
			}
			report.Stored++
			imp.accumulate(h)
		}
		err := imp.flush(ctx)
		if err != nil && report.Stored > 0 {
			report.CachesStale = true
			slog.Error("[Importer] Cache flush failed after hands were stored, rebuild required",
				"run_id", imp.runID, "stored", report.Stored, "error", err)
			return fmt.Errorf("%w: %w", ErrCachesStale, err)
		}
		return err
	})
	report.Finished = time.Now().UTC()

	slog.Info("[Importer] Batch imported",
		"run_id", imp.runID,
		"stored", report.Stored,
		"duplicates", report.Duplicates,
		"errors", report.Errors,
	)
	if err != nil {
		return report, fmt.Errorf("import batch: %w", err)
	}
	return report, nil
}

// storeHand resolves the dimensions of rec and writes the hand in one
// transaction. A duplicate hand commits its dimension rows and reports dup.
func (imp *Importer) storeHand(ctx context.Context, rec *storage.HandRecord) (storage.StoredHand, bool, error) {
	var (
		h       storage.StoredHand
		dup     bool
		scratch = dimension.NewTracker()
	)
	err := imp.store.InTx(ctx, func(tx *sqlstore.Tx) error {
		var err error
		h, err = imp.resolveHand(ctx, dimension.NewResolver(tx, scratch), rec)
		if err != nil {
			return err
		}
		if err := tx.InsertHand(ctx, &h); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				dup = true
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		// Ids memoized inside the rolled back transaction no longer exist.
		imp.memo.Reset()
		return h, false, err
	}
	imp.tracker.Merge(scratch)
	return h, dup, nil
}

func (imp *Importer) resolveHand(ctx context.Context, res *dimension.Resolver, rec *storage.HandRecord) (storage.StoredHand, error) {
	if rec.SiteHandNo == "" {
		return storage.StoredHand{}, errors.New("missing site hand number")
	}
	if len(rec.Players) == 0 {
		return storage.StoredHand{}, errors.New("hand has no players")
	}

	siteID, err := res.Site(ctx, rec.Site)
	if err != nil {
		return storage.StoredHand{}, err
	}
	gtID, err := res.Gametype(ctx, siteID, rec.Gametype)
	if err != nil {
		return storage.StoredHand{}, err
	}

	h := storage.StoredHand{
		SiteHandNo: rec.SiteHandNo,
		GametypeID: gtID,
		TableName:  rec.TableName,
		StartTime:  rec.StartTime.UTC().Truncate(time.Second),
		Seats:      len(rec.Players),
	}
	if rec.Tourney != nil {
		h.TourneyID, h.TourneyTypeID, err = res.Tourney(ctx, siteID, rec.Tourney.SiteTourneyNo, rec.Tourney.Type)
		if err != nil {
			return storage.StoredHand{}, err
		}
	}

	heroName, hasHero := imp.opts.hero(rec.Site)
	ids := make(map[string]int64, len(rec.Players))
	for _, p := range rec.Players {
		isHero := hasHero && p.Name == heroName
		pid, err := res.Player(ctx, siteID, p.Name, isHero)
		if err != nil {
			return storage.StoredHand{}, err
		}
		vec, err := stats.FromMap(p.Stats)
		if err != nil {
			return storage.StoredHand{}, fmt.Errorf("player %q: %w", p.Name, err)
		}
		vec[stats.HandsIndex] = 1

		sp := storage.StoredPlayer{
			PlayerID:   pid,
			SeatNo:     p.SeatNo,
			Position:   p.Position,
			StartCards: p.StartCards,
			Stats:      vec,
		}
		if h.TourneyID != 0 {
			sp.TourneysPlayersID, err = res.TourneysPlayer(ctx, h.TourneyID, pid, p.EntryID)
			if err != nil {
				return storage.StoredHand{}, err
			}
		}
		if isHero {
			h.HeroSeat = p.SeatNo
		}
		ids[p.Name] = pid
		h.Players = append(h.Players, sp)
	}

	for _, s := range rec.Stove {
		pid, ok := ids[s.Player]
		if !ok {
			return storage.StoredHand{}, fmt.Errorf("stove row for unknown player %q", s.Player)
		}
		h.Stove = append(h.Stove, storage.StoredStove{
			PlayerID: pid, StreetID: s.StreetID, BoardID: s.BoardID, HiLo: s.HiLo, RankID: s.RankID,
		})
	}
	return h, nil
}

// accumulate folds a stored hand into the run buffers. HudCache lines are
// keyed right away; the session-dependent caches wait for flush, when the
// hand's session is known.
func (imp *Importer) accumulate(h storage.StoredHand) {
	if imp.opts.CallHud {
		scope := cache.ScopeFor(h.GametypeID, h.TourneyTypeID)
		for i := range h.Players {
			p := &h.Players[i]
			imp.hud.Accumulate(imp.hudKey(scope, &h, p), &p.Stats)
		}
	}
	if !imp.opts.CacheSessions {
		return
	}
	if hp, ok := h.HeroPlayer(); ok {
		imp.heroes[hp.PlayerID] = true
	}
	imp.windower.Assign(h.ID, h.PlayerIDs(), h.StartTime, imp.heroes)
	imp.pending = append(imp.pending, h)
}

func (imp *Importer) hudKey(scope cache.Scope, h *storage.StoredHand, p *storage.StoredPlayer) cache.HudKey {
	if imp.opts.FastHud {
		return cache.HudKey{Scope: scope, PlayerID: p.PlayerID, Position: cache.FastPosition, StyleKey: cache.FastStyleKey}
	}
	return cache.HudKey{
		Scope:       scope,
		PlayerID:    p.PlayerID,
		ActiveSeats: h.Seats,
		Position:    cache.HudPosition(p.Position),
		StyleKey:    cache.StyleKey(h.StartTime, imp.opts.DayStart),
	}
}

// bucketScope is the scope of Cards and Positions rows, which carry no game
// type for tourney hands.
func bucketScope(h *storage.StoredHand) cache.Scope {
	if h.TourneyTypeID != 0 {
		return cache.TourneyScope{TourneyTypeID: h.TourneyTypeID}
	}
	return cache.RingScope{GametypeID: h.GametypeID}
}

// accumulateSessionCaches keys the pending hands into the Cards, Positions,
// Cash and Tour buffers once sessions are reconciled.
func (imp *Importer) accumulateSessionCaches(refs map[int64]sessionRef) {
	for i := range imp.pending {
		h := &imp.pending[i]
		ref, inSession := refs[h.ID]

		if inSession && !imp.skipBucketCaches {
			scope := bucketScope(h)
			for j := range h.Players {
				p := &h.Players[j]
				hero := h.HeroSeat != 0 && p.SeatNo == h.HeroSeat
				pos := cache.NoPosition
				if hero {
					pos = p.Position
				}
				imp.positions.Accumulate(cache.PositionsKey{
					Buckets: ref.Buckets, Scope: scope, PlayerID: p.PlayerID, ActiveSeats: h.Seats, Position: pos,
				}, &p.Stats)
				if !hero {
					continue
				}
				for _, s := range h.Stove {
					if s.PlayerID != p.PlayerID {
						continue
					}
					startCards := p.StartCards
					if s.StreetID > 0 {
						startCards = cache.StreetStartCards
					}
					imp.cards.Accumulate(cache.CardsKey{
						Buckets: ref.Buckets, Scope: scope, PlayerID: p.PlayerID,
						StreetID: s.StreetID, BoardID: s.BoardID, HiLo: s.HiLo, StartCards: startCards, RankID: s.RankID,
					}, &p.Stats)
				}
			}
		}

		for j := range h.Players {
			p := &h.Players[j]
			if h.TourneyID == 0 {
				key := cache.CashKey{GametypeID: h.GametypeID, PlayerID: p.PlayerID}
				w, ok := imp.cash[key]
				if !ok {
					w = session.NewWindows(imp.opts.SessionThreshold, mergeCash)
					imp.cash[key] = w
				}
				win := w.Assign(h.StartTime)
				win.Payload.Stats.Add(&p.Stats)
				if win.Payload.SessionID == 0 {
					win.Payload.SessionID = ref.SessionID
				}
				continue
			}
			key := cache.TourKey{TourneyID: h.TourneyID, PlayerID: p.PlayerID}
			line, ok := imp.tour[key]
			if !ok {
				line = &tourLine{Start: h.StartTime, End: h.StartTime}
				imp.tour[key] = line
			}
			if h.StartTime.Before(line.Start) {
				line.Start = h.StartTime
			}
			if h.StartTime.After(line.End) {
				line.End = h.StartTime
			}
			line.Stats.Add(&p.Stats)
			if line.SessionID == 0 {
				line.SessionID = ref.SessionID
			}
		}
	}
	imp.pending = nil
}
