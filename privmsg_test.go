package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bleusakura/borrowbot/command"
	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/outbound"
	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store/sqlstore"
	"github.com/bleusakura/borrowbot/twitch"
)

var dbcount atomic.Uint64

type fakeLookup map[string]*twitch.User

func (l fakeLookup) UserByLogin(ctx context.Context, login string) (*twitch.User, error) {
	return l[login], nil
}

func testRobot(t *testing.T) *Robot {
	t.Helper()
	ctx := context.Background()
	k := dbcount.Add(1)
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:privmsg-%d.db?mode=memory&cache=shared", k), sqlitex.PoolOptions{Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenMemory | sqlite.OpenSharedCache | sqlite.OpenURI})
	if err != nil {
		t.Fatal(err)
	}
	st, err := sqlstore.Open(ctx, pool)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SeedCommands(ctx, command.Defaults); err != nil {
		t.Fatal(err)
	}
	if err := st.SetJoined(ctx, "kessoku", true); err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		Prefix:     "!",
		Owner:      Owner{Name: "bocchi"},
		TMI:        TMICfg{Nick: "borrowbot"},
		Moderation: ModerationCfg{Disabled: true},
	}
	robo, err := New(ctx, &cfg, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := robo.Load(ctx); err != nil {
		t.Fatal(err)
	}
	robo.cmd.Lookup = fakeLookup{"newchan": {ID: 1000, Login: "newchan"}}
	if _, err := st.IdentityOrCreate(ctx, 1, "bocchi"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.SetPermissions(ctx, "bocchi", perm.Superuser); err != nil {
		t.Fatal(err)
	}
	return robo
}

func chat(id int64, login, to, text string) *message.Received {
	return &message.Received{
		ID:        fmt.Sprintf("%s-%d-%s", to, id, text),
		To:        to,
		Sender:    id,
		Login:     login,
		Text:      text,
		Timestamp: 1,
	}
}

func drain(q *outbound.Queue) []message.Sent {
	var r []message.Sent
	for {
		m, ok := q.Pop()
		if !ok {
			return r
		}
		r = append(r, m)
	}
}

func TestHandleRecords(t *testing.T) {
	ctx := context.Background()
	robo := testRobot(t)
	robo.handle(ctx, chat(3, "ryo", "kessoku", "money please"))
	robo.handle(ctx, chat(3, "ryo", "starry", "not here"))
	line, ok, err := robo.store.LastMessage(ctx, "kessoku", "ryo")
	if err != nil || !ok {
		t.Fatalf("message not recorded: %v %t", err, ok)
	}
	if line.Text != "money please" {
		t.Errorf("wrong recorded text: %q", line.Text)
	}
	if _, ok, _ := robo.store.LastMessage(ctx, "starry", "ryo"); ok {
		t.Errorf("recorded message from channel not joined")
	}
	if id, err := robo.store.Identity(ctx, 3); err != nil || id.Login != "ryo" || id.Level != perm.User {
		t.Errorf("identity not created: %+v %v", id, err)
	}
	if got := drain(&robo.queue); len(got) != 0 {
		t.Errorf("plain messages queued replies: %v", got)
	}
}

func TestHandlePrivate(t *testing.T) {
	ctx := context.Background()
	robo := testRobot(t)
	robo.handle(ctx, chat(3, "ryo", "kessoku", "!optout"))
	robo.handle(ctx, chat(3, "ryo", "kessoku", "secret"))
	if _, ok, _ := robo.store.LastMessage(ctx, "kessoku", "ryo"); ok {
		t.Errorf("recorded message from private user")
	}
	got := drain(&robo.queue)
	if len(got) != 1 || !strings.HasPrefix(got[0].Text, "@ryo, Sure, I won't log") {
		t.Errorf("wrong replies: %v", got)
	}
}

func TestHandleCommands(t *testing.T) {
	ctx := context.Background()
	robo := testRobot(t)
	robo.handle(ctx, chat(3, "ryo", "kessoku", "!help ping"))
	robo.handle(ctx, chat(3, "ryo", "kessoku", "!help ping"))
	robo.handle(ctx, chat(3, "ryo", "kessoku", "!say hi"))
	robo.handle(ctx, chat(3, "ryo", "kessoku", "!nothing"))
	want := []message.Sent{
		{To: "kessoku", Text: "@ryo, ping: Reports how long I've been running."},
		{To: "kessoku", Text: "@ryo, You need moderator permissions to use say!" + outbound.Marker},
	}
	if diff := cmp.Diff(want, drain(&robo.queue)); diff != "" {
		t.Errorf("wrong replies (-want +got):\n%s", diff)
	}
}

func TestHandleQuestionable(t *testing.T) {
	ctx := context.Background()
	robo := testRobot(t)
	robo.handle(ctx, chat(1, "bocchi", "kessoku", "!say hello"))
	robo.handle(ctx, chat(1, "bocchi", "kessoku", "!say hello"))
	want := []message.Sent{
		{To: "kessoku", Text: "@bocchi, " + outbound.NoticeUnavailable},
		{To: "kessoku", Text: "@bocchi, " + outbound.NoticeUnavailable + outbound.Marker},
	}
	if diff := cmp.Diff(want, drain(&robo.queue)); diff != "" {
		t.Errorf("wrong replies (-want +got):\n%s", diff)
	}
}

func TestHandleJoin(t *testing.T) {
	ctx := context.Background()
	robo := testRobot(t)
	robo.handle(ctx, chat(1, "bocchi", "kessoku", "!join newchan"))
	got := drain(&robo.queue)
	if len(got) != 2 {
		t.Fatalf("wrong number of messages: %v", got)
	}
	if got[0].To != "newchan" {
		t.Errorf("announcement went to %q", got[0].To)
	}
	if got[1].Text != "@bocchi, Joined newchan." {
		t.Errorf("wrong reply: %q", got[1].Text)
	}
	chans, err := robo.store.Channels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"kessoku", "newchan"}, chans); diff != "" {
		t.Errorf("wrong stored channels (-want +got):\n%s", diff)
	}
	robo.tmi.mu.Lock()
	want := robo.tmi.want
	robo.tmi.mu.Unlock()
	if diff := cmp.Diff([]string{"kessoku", "newchan"}, want); diff != "" {
		t.Errorf("wrong wanted channels (-want +got):\n%s", diff)
	}
	// Messages in the new channel are handled now.
	robo.handle(ctx, chat(3, "ryo", "newchan", "hi"))
	if _, ok, _ := robo.store.LastMessage(ctx, "newchan", "ryo"); !ok {
		t.Errorf("message in joined channel not recorded")
	}
}

func TestChannelDiff(t *testing.T) {
	cases := []struct {
		name string
		have []string
		want []string
		join []string
		part []string
	}{
		{"empty", nil, nil, nil, nil},
		{"join", nil, []string{"b", "a"}, []string{"a", "b"}, nil},
		{"part", []string{"a", "b"}, nil, nil, []string{"a", "b"}},
		{"both", []string{"a", "b"}, []string{"b", "c"}, []string{"c"}, []string{"a"}},
		{"same", []string{"a"}, []string{"a"}, nil, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			have := make(map[string]bool)
			for _, s := range c.have {
				have[s] = true
			}
			join, part := channelDiff(have, c.want)
			if diff := cmp.Diff(c.join, join); diff != "" {
				t.Errorf("wrong join (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(c.part, part); diff != "" {
				t.Errorf("wrong part (-want +got):\n%s", diff)
			}
		})
	}
}
