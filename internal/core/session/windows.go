package session

import (
	"sort"
	"time"
)

// Window is one time interval with an attached payload.
type Window[T any] struct {
	Start   time.Time
	End     time.Time
	Payload T
}

// Windows groups timestamps into intervals separated by more than a threshold.
// A timestamp t joins every window S with t-threshold <= S.End and
// t+threshold >= S.Start; when it bridges several windows they collapse into
// the one that starts earliest.
type Windows[T any] struct {
	threshold time.Duration
	merge     func(dst *T, src T)
	items     []*Window[T]
}

// NewWindows returns an empty window set. merge folds the payload of a
// swallowed window into the survivor.
func NewWindows[T any](threshold time.Duration, merge func(dst *T, src T)) *Windows[T] {
	return &Windows[T]{threshold: threshold, merge: merge}
}

// Assign places t and returns the window that now covers it, creating one when
// no window is within the threshold.
func (w *Windows[T]) Assign(t time.Time) *Window[T] {
	lower := t.Add(-w.threshold)
	upper := t.Add(w.threshold)

	var candidates []int
	for i, s := range w.items {
		if !lower.After(s.End) && !upper.Before(s.Start) {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 0:
		win := &Window[T]{Start: t, End: t}
		w.items = append(w.items, win)
		return win
	case 1:
		win := w.items[candidates[0]]
		extend(win, t)
		return win
	}

	survivor := candidates[0]
	for _, i := range candidates[1:] {
		if w.items[i].Start.Before(w.items[survivor].Start) {
			survivor = i
		}
	}
	win := w.items[survivor]
	extend(win, t)

	kept := w.items[:0]
	for i, s := range w.items {
		if i != survivor && contains(candidates, i) {
			if s.Start.Before(win.Start) {
				win.Start = s.Start
			}
			if s.End.After(win.End) {
				win.End = s.End
			}
			if w.merge != nil {
				w.merge(&win.Payload, s.Payload)
			}
			continue
		}
		kept = append(kept, s)
	}
	w.items = kept
	return win
}

// All returns the windows ordered by start time.
func (w *Windows[T]) All() []*Window[T] {
	out := make([]*Window[T], len(w.items))
	copy(out, w.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (w *Windows[T]) Len() int { return len(w.items) }

func extend[T any](win *Window[T], t time.Time) {
	if t.Before(win.Start) {
		win.Start = t
	}
	if t.After(win.End) {
		win.End = t
	}
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
