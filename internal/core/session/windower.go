package session

import (
	"time"
)

// Session is an in-memory, not yet persisted block of hero play.
type Session struct {
	Start   time.Time
	End     time.Time
	HandIDs []int64
}

// Assignment describes the window a hand landed in.
type Assignment struct {
	Start time.Time
	End   time.Time
}

// Windower groups a hero's hands into sessions. It is owned by one import or
// rebuild run.
type Windower struct {
	windows *Windows[[]int64]
}

func NewWindower(threshold time.Duration) *Windower {
	return &Windower{
		windows: NewWindows(threshold, func(dst *[]int64, src []int64) {
			*dst = append(*dst, src...)
		}),
	}
}

// Assign places a hand. Hands without a hero participant belong to no session
// and are ignored (ok=false).
func (w *Windower) Assign(handID int64, playerIDs []int64, start time.Time, heroes map[int64]bool) (Assignment, bool) {
	if !hasHero(playerIDs, heroes) {
		return Assignment{}, false
	}
	win := w.windows.Assign(start.UTC())
	win.Payload = append(win.Payload, handID)
	return Assignment{Start: win.Start, End: win.End}, true
}

// Sessions returns the current windows ordered by start.
func (w *Windower) Sessions() []Session {
	all := w.windows.All()
	out := make([]Session, 0, len(all))
	for _, win := range all {
		ids := make([]int64, len(win.Payload))
		copy(ids, win.Payload)
		out = append(out, Session{Start: win.Start, End: win.End, HandIDs: ids})
	}
	return out
}

func (w *Windower) Len() int { return w.windows.Len() }

func hasHero(playerIDs []int64, heroes map[int64]bool) bool {
	for _, id := range playerIDs {
		if heroes[id] {
			return true
		}
	}
	return false
}
