package channel_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bleusakura/borrowbot/channel"
)

type spyWatcher struct {
	pushes [][]string
}

func (w *spyWatcher) SetChannels(names []string) {
	w.pushes = append(w.pushes, names)
}

func TestAddRemove(t *testing.T) {
	w := new(spyWatcher)
	s := channel.NewSet(w)
	if !s.Add("#Bocchi") {
		t.Errorf("first add reported existing")
	}
	if s.Add("bocchi") {
		t.Errorf("second add reported new")
	}
	if !s.Add("ryo") {
		t.Errorf("add of other channel reported existing")
	}
	if !s.Has("BOCCHI") {
		t.Errorf("normalized name not found")
	}
	if s.Remove("nijika") {
		t.Errorf("removed absent channel")
	}
	if !s.Remove("bocchi") {
		t.Errorf("didn't remove present channel")
	}
	want := [][]string{
		{"bocchi"},
		{"bocchi", "ryo"},
		{"ryo"},
	}
	if diff := cmp.Diff(want, w.pushes); diff != "" {
		t.Errorf("wrong watcher pushes (-want/+got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ryo"}, s.All()); diff != "" {
		t.Errorf("wrong members (-want/+got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	w := new(spyWatcher)
	s := channel.NewSet(w)
	s.Add("kita")
	s.Reset([]string{"#ryo", "bocchi"})
	want := []string{"bocchi", "ryo"}
	if diff := cmp.Diff(want, s.All()); diff != "" {
		t.Errorf("wrong members (-want/+got):\n%s", diff)
	}
	if len(w.pushes) != 2 {
		t.Errorf("wrong number of pushes: want 2, got %d", len(w.pushes))
	}
}

func TestNilWatcher(t *testing.T) {
	s := channel.NewSet(nil)
	s.Add("bocchi")
	s.Remove("bocchi")
	if s.Len() != 0 {
		t.Errorf("set not empty")
	}
}

// lockedWatcher records the size of the latest push.
type lockedWatcher struct {
	mu   sync.Mutex
	last int
}

func (w *lockedWatcher) SetChannels(names []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = len(names)
}

func TestConcurrentAdd(t *testing.T) {
	w := new(lockedWatcher)
	s := channel.NewSet(w)
	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("bocchi") {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if added != 1 {
		t.Errorf("concurrent adds of one channel succeeded %d times", added)
	}
	if w.last != 1 {
		t.Errorf("last push had %d channels", w.last)
	}
}
