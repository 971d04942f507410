// Package channel holds the set of channels the bot wants to be in.
package channel

import (
	"slices"
	"strings"
	"sync"
)

// Watcher receives the full membership of a [Set] whenever it changes.
// SetChannels is called with the set locked, so it must only record the new
// state and return promptly. It must not call back into the set.
type Watcher interface {
	SetChannels(names []string)
}

// Set is the shared set of wanted channels.
type Set struct {
	mu sync.Mutex
	m  map[string]struct{}
	w  Watcher
}

// NewSet creates an empty channel set which reports changes to w.
// w may be nil.
func NewSet(w Watcher) *Set {
	return &Set{m: make(map[string]struct{}), w: w}
}

// Name normalizes a channel name: lowercase with no leading '#'.
func Name(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}

// Add adds a channel. It reports false if the channel was already present,
// in which case the set is unchanged and the watcher is not notified.
func (s *Set) Add(name string) bool {
	name = Name(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[name]; ok {
		return false
	}
	s.m[name] = struct{}{}
	s.pushLocked()
	return true
}

// Remove removes a channel. It reports false if the channel was not present.
func (s *Set) Remove(name string) bool {
	name = Name(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[name]; !ok {
		return false
	}
	delete(s.m, name)
	s.pushLocked()
	return true
}

// Reset replaces the set's contents.
func (s *Set) Reset(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.m)
	for _, v := range names {
		s.m[Name(v)] = struct{}{}
	}
	s.pushLocked()
}

// Has reports whether a channel is in the set.
func (s *Set) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[Name(name)]
	return ok
}

// All returns the sorted members of the set.
func (s *Set) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Len returns the number of channels in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Set) sortedLocked() []string {
	r := make([]string, 0, len(s.m))
	for k := range s.m {
		r = append(r, k)
	}
	slices.Sort(r)
	return r
}

func (s *Set) pushLocked() {
	if s.w == nil {
		return
	}
	s.w.SetChannels(s.sortedLocked())
}
