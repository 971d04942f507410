// Package cooldown tracks per-identity, per-command cooldowns.
package cooldown

import (
	"sync"
	"time"

	"github.com/bleusakura/borrowbot/syncmap"
)

// Key identifies a cooldown: one command for one identity.
type Key struct {
	ID      int64
	Command string
}

// Tracker is the shared set of active cooldowns.
// Its methods are safe to call concurrently.
type Tracker struct {
	active *syncmap.Map[Key, *entry]
}

type entry struct {
	mu sync.Mutex
	t  *time.Timer
}

func (e *entry) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.t != nil {
		e.t.Stop()
	}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{active: syncmap.New[Key, *entry]()}
}

// Active reports whether the identity is on cooldown for the command.
func (c *Tracker) Active(id int64, command string) bool {
	_, ok := c.active.Load(Key{id, command})
	return ok
}

// Start puts the identity on cooldown for the command for d.
// The entry is visible to Active before Start returns.
// Starting a cooldown which is already active restarts it.
// Non-positive durations do nothing.
func (c *Tracker) Start(id int64, command string, d time.Duration) {
	if d <= 0 {
		return
	}
	k := Key{id, command}
	e := new(entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := c.active.Swap(k, e); ok {
		old.stop()
	}
	e.t = time.AfterFunc(d, func() {
		// Only remove our own entry. A restart may have replaced it.
		c.active.DeleteIf(k, func(v *entry) bool { return v == e })
	})
}

// Reserve claims the cooldown for the identity and command unless one is
// already active or reserved. It reports whether the caller may proceed.
// Concurrent calls for the same key admit at most one caller. A reservation
// does not expire; the caller follows it with Start once the command
// completes. With a non-positive duration, it only checks.
func (c *Tracker) Reserve(id int64, command string, d time.Duration) bool {
	k := Key{id, command}
	if d <= 0 {
		_, ok := c.active.Load(k)
		return !ok
	}
	_, loaded := c.active.LoadOrStore(k, new(entry))
	return !loaded
}

// Len returns the number of active cooldowns.
func (c *Tracker) Len() int {
	return c.active.Len()
}
