package dimension

import (
	"context"
	"sync"
)

// Kind names a dimension table in the memo.
type Kind string

const (
	KindSite           Kind = "site"
	KindGametype       Kind = "gametype"
	KindPlayer         Kind = "player"
	KindWeek           Kind = "week"
	KindMonth          Kind = "month"
	KindTourneyType    Kind = "tourneyType"
	KindTourney        Kind = "tourney"
	KindTourneysPlayer Kind = "tourneysPlayer"
)

type memoKey struct {
	kind Kind
	key  any
}

// Memo caches resolved dimension ids for one import or rebuild run. Natural
// keys must be comparable values.
type Memo struct {
	mu  sync.Mutex
	ids map[memoKey]int64
}

func NewMemo() *Memo {
	return &Memo{ids: make(map[memoKey]int64)}
}

// Ensure returns the memoized id for (kind, key), calling create on a miss.
// A failed create is not remembered. A nil Memo always calls create.
func (m *Memo) Ensure(ctx context.Context, kind Kind, key any, create func(context.Context) (int64, error)) (int64, error) {
	if m == nil {
		return create(ctx)
	}
	k := memoKey{kind: kind, key: key}

	m.mu.Lock()
	id, ok := m.ids[k]
	m.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := create(ctx)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.ids[k] = id
	m.mu.Unlock()
	return id, nil
}

// ForgetKind drops every memoized id of one kind.
func (m *Memo) ForgetKind(kind Kind) {
	if m == nil {
		return
	}
	m.mu.Lock()
	for k := range m.ids {
		if k.kind == kind {
			delete(m.ids, k)
		}
	}
	m.mu.Unlock()
}

// Reset drops every memoized id. Used after a rolled back transaction, whose
// inserted rows no longer exist.
func (m *Memo) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.ids = make(map[memoKey]int64)
	m.mu.Unlock()
}

func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

type memoCtxKey struct{}

// WithMemo attaches m to ctx for the duration of a run.
func WithMemo(ctx context.Context, m *Memo) context.Context {
	return context.WithValue(ctx, memoCtxKey{}, m)
}

// MemoFrom returns the run memo in ctx, or nil when none is attached.
func MemoFrom(ctx context.Context) *Memo {
	m, _ := ctx.Value(memoCtxKey{}).(*Memo)
	return m
}
