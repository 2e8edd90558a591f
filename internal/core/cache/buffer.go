package cache

import (
	"fmt"
	"sort"

	"github.com/Fulvio75/fpdb/internal/core/stats"
)

// Line is one pre-summed cache row delta ready to flush.
type Line struct {
	Key   RowKey
	Stats stats.Vector
}

// Buffer accumulates StatVectors per composite key. Repeated keys are summed in
// memory so a flush issues one delta per key. A Buffer belongs to one run and is
// not safe for concurrent use.
type Buffer[K Key] struct {
	lines map[K]*stats.Vector
}

func NewBuffer[K Key]() *Buffer[K] {
	return &Buffer[K]{lines: make(map[K]*stats.Vector)}
}

// Accumulate adds v to the line for key.
func (b *Buffer[K]) Accumulate(key K, v *stats.Vector) {
	line, ok := b.lines[key]
	if !ok {
		line = new(stats.Vector)
		b.lines[key] = line
	}
	line.Add(v)
}

func (b *Buffer[K]) Len() int { return len(b.lines) }

// Get returns the accumulated line for key.
func (b *Buffer[K]) Get(key K) (stats.Vector, bool) {
	line, ok := b.lines[key]
	if !ok {
		return stats.Vector{}, false
	}
	return *line, true
}

// Lines returns the buffered lines in a stable order, skipping keys for which
// exclude returns true. A nil exclude keeps every line.
func (b *Buffer[K]) Lines(exclude func(K) bool) []Line {
	out := make([]Line, 0, len(b.lines))
	for k, v := range b.lines {
		if exclude != nil && exclude(k) {
			continue
		}
		out = append(out, Line{Key: k, Stats: *v})
	}
	SortLines(out)
	return out
}

// Reset drops every buffered line.
func (b *Buffer[K]) Reset() {
	b.lines = make(map[K]*stats.Vector)
}

// SortLines orders lines by their printed key so statement order is deterministic.
func SortLines(lines []Line) {
	names := make(map[RowKey]string, len(lines))
	for _, l := range lines {
		names[l.Key] = fmt.Sprintf("%v", l.Key)
	}
	sort.Slice(lines, func(i, j int) bool {
		return names[lines[i].Key] < names[lines[j].Key]
	})
}
