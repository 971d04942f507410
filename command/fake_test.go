package command_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/command"
	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store"
	"github.com/bleusakura/borrowbot/twitch"
)

// memStore is an in-memory store.Store.
type memStore struct {
	mu      sync.Mutex
	ids     map[int64]store.Identity
	joined  map[string]bool
	writes  int
	cmds    []store.Command
	lines   []store.Line
	private map[int64]bool
	fail    error
}

var _ store.Store = (*memStore)(nil)

func newMemStore(ids ...store.Identity) *memStore {
	s := &memStore{
		ids:     make(map[int64]store.Identity),
		joined:  make(map[string]bool),
		private: make(map[int64]bool),
	}
	for _, id := range ids {
		s.ids[id.ID] = id
	}
	return s
}

func (s *memStore) Identity(ctx context.Context, id int64) (store.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ids[id]
	if !ok {
		return store.Identity{}, store.ErrNoIdentity
	}
	return r, nil
}

func (s *memStore) IdentityOrCreate(ctx context.Context, id int64, login string) (store.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ids[id]
	if !ok {
		r = store.Identity{ID: id, Level: perm.User}
	}
	r.Login = strings.ToLower(login)
	s.ids[id] = r
	return r, nil
}

func (s *memStore) SetPermissions(ctx context.Context, login string, level perm.Level) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	var n int64
	for k, v := range s.ids {
		if v.Login == strings.ToLower(login) {
			v.Level = level
			s.ids[k] = v
			n++
		}
	}
	return n, nil
}

func (s *memStore) Channels(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r []string
	for k, v := range s.joined {
		if v {
			r = append(r, k)
		}
	}
	slices.Sort(r)
	return r, nil
}

func (s *memStore) SetJoined(ctx context.Context, login string, joined bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes++
	s.joined[login] = joined
	return nil
}

func (s *memStore) Commands(ctx context.Context) ([]store.Command, error) {
	return s.cmds, nil
}

func (s *memStore) SeedCommands(ctx context.Context, cmds []store.Command) error {
	s.cmds = append(s.cmds, cmds...)
	return nil
}

func (s *memStore) Record(ctx context.Context, line store.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *memStore) LastMessage(ctx context.Context, channel, login string) (store.Line, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range slices.Backward(s.lines) {
		if l.Channel == channel && l.Login == login && !s.private[l.Sender] {
			return l, true, nil
		}
	}
	return store.Line{}, false, nil
}

func (s *memStore) RandomMessage(ctx context.Context, channel, login string) (store.Line, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c []store.Line
	for _, l := range s.lines {
		if l.Channel == channel && (login == "" || l.Login == login) && !s.private[l.Sender] {
			c = append(c, l)
		}
	}
	if len(c) == 0 {
		return store.Line{}, false, nil
	}
	return c[rand.IntN(len(c))], true, nil
}

func (s *memStore) SetPrivate(ctx context.Context, id int64, private bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.private[id] = private
	return nil
}

func (s *memStore) Private(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.private[id], nil
}

func (s *memStore) Close() error { return nil }

// fakeLookup resolves users from a fixed table.
type fakeLookup struct {
	users map[string]*twitch.User
	err   error
}

func (l *fakeLookup) UserByLogin(ctx context.Context, login string) (*twitch.User, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.users[strings.ToLower(login)], nil
}

var errUnreachable = errors.New("unreachable")

// spyAnnouncer records announcements.
type spyAnnouncer struct {
	mu   sync.Mutex
	msgs []message.Sent
}

func (a *spyAnnouncer) Enqueue(msg message.Sent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

func (a *spyAnnouncer) sent() []message.Sent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.msgs)
}

// spyWatcher records channel set pushes.
type spyWatcher struct {
	pushes [][]string
}

func (w *spyWatcher) SetChannels(names []string) {
	w.pushes = append(w.pushes, names)
}

type testRobot struct {
	*command.Robot
	store    *memStore
	lookup   *fakeLookup
	announce *spyAnnouncer
	watcher  *spyWatcher
}

func newRobot(funcs map[string]command.Func, ids ...store.Identity) *testRobot {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newMemStore(ids...)
	l := &fakeLookup{users: map[string]*twitch.User{
		"newchan": {ID: 1000, Login: "newchan", DisplayName: "NewChan"},
		"bocchi":  {ID: 1, Login: "bocchi", DisplayName: "Bocchi"},
	}}
	a := new(spyAnnouncer)
	w := new(spyWatcher)
	if funcs == nil {
		funcs = command.Builtins
	}
	return &testRobot{
		Robot: &command.Robot{
			Log:      log,
			Store:    s,
			Lookup:   l,
			Channels: channel.NewSet(w),
			Announce: a,
			Registry: command.NewRegistry(ctx, log, command.Defaults, funcs),
			Start:    time.Unix(0, 0),
			Prefix:   "!",
			Owner:    "bocchi",
			Contact:  "/w bocchi",
		},
		store:    s,
		lookup:   l,
		announce: a,
		watcher:  w,
	}
}

func invocation(id store.Identity, name string, args ...string) *command.Invocation {
	return &command.Invocation{
		Message: &message.Received{
			ID:     "msg",
			To:     "kessoku",
			Sender: id.ID,
			Login:  id.Login,
			Text:   strings.Join(append([]string{"!" + name}, args...), " "),
		},
		Identity: id,
		Name:     name,
		Args:     args,
	}
}

var (
	super = store.Identity{ID: 1, Login: "bocchi", Level: perm.Superuser}
	mod   = store.Identity{ID: 2, Login: "nijika", Level: perm.Moderator}
	user  = store.Identity{ID: 3, Login: "ryo", Level: perm.User}
)
