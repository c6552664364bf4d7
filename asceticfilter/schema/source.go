package schema

import (
	"sync"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/signals"
)

// SnapshotReplaced lists the collections whose version differs between
// the previous and the new snapshot, including added and removed ones.
type SnapshotReplaced struct {
	Previous *Snapshot
	Current  *Snapshot
	Changed  []string
}

// Source holds the current snapshot. Readers always see a complete
// snapshot; Replace notifies Changed after the swap.
type Source struct {
	mu       sync.RWMutex
	current  *Snapshot
	replaced *signals.Signal[SnapshotReplaced]
}

func emptySnapshot() *Snapshot {
	return &Snapshot{collections: map[string]Collection{}}
}

func NewSource(initial *Snapshot) *Source {
	if initial == nil {
		initial = emptySnapshot()
	}
	return &Source{
		current:  initial,
		replaced: signals.NewSignal[SnapshotReplaced](),
	}
}

func (s *Source) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Source) Changed() *signals.Signal[SnapshotReplaced] {
	return s.replaced
}

// Replace swaps in next. A nil snapshot stands for one with no collections.
func (s *Source) Replace(next *Snapshot) {
	if next == nil {
		next = emptySnapshot()
	}
	s.mu.Lock()
	previous := s.current
	s.current = next
	s.mu.Unlock()

	changed := diffVersions(previous, next)
	if len(changed) == 0 {
		return
	}
	s.replaced.Notify(SnapshotReplaced{Previous: previous, Current: next, Changed: changed})
}

func diffVersions(previous, next *Snapshot) []string {
	var changed []string
	for _, name := range next.Collections() {
		old, ok := previous.collections[name]
		if !ok || old.version != next.collections[name].version {
			changed = append(changed, name)
		}
	}
	for _, name := range previous.Collections() {
		if _, ok := next.collections[name]; !ok {
			changed = append(changed, name)
		}
	}
	return changed
}
