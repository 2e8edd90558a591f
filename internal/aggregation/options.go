package aggregation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	"github.com/Fulvio75/fpdb/internal/core/config"
)

const (
	defaultPageSize     = 5000
	defaultFlushWorkers = 4
)

// Options carries the import and rebuild settings of one run.
type Options struct {
	SessionThreshold time.Duration
	DayStart         int // hours
	Location         *time.Location
	FastHud          bool
	CacheSessions    bool
	CallHud          bool
	FlushWorkers     int
	PageSize         int
	// Heroes maps a lowercased site name to the hero's screen name.
	Heroes map[string]string
}

// OptionsFromConfig maps the import and rebuild config sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	loc, err := cfg.Import.Location()
	if err != nil {
		return Options{}, fmt.Errorf("load timezone %q: %w", cfg.Import.Timezone, err)
	}
	heroes := make(map[string]string, len(cfg.Import.Heroes))
	for site, name := range cfg.Import.Heroes {
		heroes[strings.ToLower(site)] = name
	}
	return Options{
		SessionThreshold: cfg.Import.SessionThreshold(),
		DayStart:         cfg.Import.DayStart,
		Location:         loc,
		FastHud:          cfg.Import.FastStoreHudCache,
		CacheSessions:    cfg.Import.CacheSessions,
		CallHud:          cfg.Import.CallFpdbHud,
		FlushWorkers:     cfg.Import.FlushWorkers,
		PageSize:         cfg.Rebuild.PageSize,
		Heroes:           heroes,
	}.normalized(), nil
}

func (o Options) normalized() Options {
	n := o
	if n.Location == nil {
		n.Location = time.UTC
	}
	if n.FlushWorkers <= 0 {
		n.FlushWorkers = defaultFlushWorkers
	}
	if n.PageSize <= 0 {
		n.PageSize = defaultPageSize
	}
	if n.Heroes == nil {
		n.Heroes = map[string]string{}
	}
	return n
}

// hero returns the hero screen name of a site.
func (o Options) hero(site string) (string, bool) {
	name, ok := o.Heroes[strings.ToLower(site)]
	return name, ok
}

// enabled reports whether a cache kind is maintained under these options.
func (o Options) enabled(k cache.Kind) bool {
	if k == cache.KindHud {
		return o.CallHud
	}
	return o.CacheSessions
}

// keyedKinds returns the enabled kinds with a grouped rebuild, filtered by keep.
func (o Options) keyedKinds(keep func(cache.Kind) bool) []cache.Kind {
	var out []cache.Kind
	for _, k := range []cache.Kind{cache.KindHud, cache.KindCards, cache.KindPositions} {
		if o.enabled(k) && keep(k) {
			out = append(out, k)
		}
	}
	return out
}
