package pgstore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store"
	"github.com/bleusakura/borrowbot/store/pgstore"
)

// testStore opens a store on the database named by BORROWBOT_TEST_POSTGRES,
// skipping the test if it isn't set. All tables are emptied first.
func testStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("BORROWBOT_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("BORROWBOT_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	s, err := pgstore.Open(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := pgstore.Truncate(ctx, s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if _, err := s.Identity(ctx, 1); !errors.Is(err, store.ErrNoIdentity) {
		t.Errorf("wrong error for missing identity: want ErrNoIdentity, got %v", err)
	}
	id, err := s.IdentityOrCreate(ctx, 1, "Bocchi")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(store.Identity{ID: 1, Login: "bocchi"}, id); diff != "" {
		t.Errorf("wrong created identity (-want/+got):\n%s", diff)
	}
	n, err := s.SetPermissions(ctx, "bocchi", perm.Superuser)
	if err != nil || n != 1 {
		t.Errorf("wrong set permissions result: want 1, got %d %v", n, err)
	}
	id, err = s.Identity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if id.Level != perm.Superuser {
		t.Errorf("wrong level: want superuser, got %v", id.Level)
	}
}

func TestChannelsAndCommands(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	s.SetJoined(ctx, "ryo", true)
	s.SetJoined(ctx, "bocchi", true)
	s.SetJoined(ctx, "ryo", false)
	ch, err := s.Channels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"bocchi"}, ch); diff != "" {
		t.Errorf("wrong channels (-want/+got):\n%s", diff)
	}
	seed := []store.Command{{Name: "ping", Description: "pong", Cooldown: time.Second}}
	if err := s.SeedCommands(ctx, seed); err != nil {
		t.Fatal(err)
	}
	got, err := s.Commands(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(seed, got); diff != "" {
		t.Errorf("wrong commands (-want/+got):\n%s", diff)
	}
}

func TestHistoryPrivacy(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	lines := []store.Line{
		{ID: "1", Channel: "kessoku", Sender: 1, Login: "bocchi", Text: "first", Time: time.UnixMilli(1000)},
		{ID: "2", Channel: "kessoku", Sender: 1, Login: "bocchi", Text: "second", Time: time.UnixMilli(2000)},
	}
	for _, l := range lines {
		if err := s.Record(ctx, l); err != nil {
			t.Fatal(err)
		}
	}
	got, ok, err := s.LastMessage(ctx, "kessoku", "bocchi")
	if err != nil || !ok {
		t.Fatalf("couldn't get last message: %t %v", ok, err)
	}
	if diff := cmp.Diff(lines[1], got); diff != "" {
		t.Errorf("wrong last message (-want/+got):\n%s", diff)
	}
	if err := s.SetPrivate(ctx, 1, true); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.RandomMessage(ctx, "kessoku", ""); ok {
		t.Errorf("history kept after opting out")
	}
}
