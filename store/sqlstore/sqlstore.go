// Package sqlstore implements the bot's persistent state in SQLite.
package sqlstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store"
)

// Store is a [store.Store] backed by an SQLite database.
type Store struct {
	db *sqlitex.Pool
}

var _ store.Store = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

// Open returns a store within the given database, creating its tables if
// needed. The db must remain open for the lifetime of the store.
func Open(ctx context.Context, db *sqlitex.Pool) (*Store, error) {
	conn, err := db.Take(ctx)
	defer db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection from pool: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schemaSQL, nil); err != nil {
		return nil, fmt.Errorf("couldn't create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecommendedPrep is an [sqlitex.ConnPrepareFunc] that sets options
// recommended for a store.
func RecommendedPrep(conn *sqlite.Conn) error {
	// These need to be run per connection.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("couldn't run %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) take(ctx context.Context, what string) (*sqlite.Conn, error) {
	conn, err := s.db.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to %s: %w", what, err)
	}
	return conn, nil
}

// Identity implements [store.Identities].
func (s *Store) Identity(ctx context.Context, id int64) (store.Identity, error) {
	conn, err := s.take(ctx, "get identity")
	if err != nil {
		return store.Identity{}, err
	}
	defer s.db.Put(conn)
	return identity(conn, id)
}

func identity(conn *sqlite.Conn, id int64) (store.Identity, error) {
	var r store.Identity
	found := false
	opts := sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			r = store.Identity{
				ID:    stmt.ColumnInt64(0),
				Login: stmt.ColumnText(1),
				Level: perm.FromInt(stmt.ColumnInt64(2)),
			}
			return nil
		},
	}
	if err := sqlitex.Execute(conn, `SELECT id, login, level FROM identities WHERE id = ?`, &opts); err != nil {
		return store.Identity{}, fmt.Errorf("couldn't get identity %d: %w", id, err)
	}
	if !found {
		return store.Identity{}, fmt.Errorf("%w: %d", store.ErrNoIdentity, id)
	}
	return r, nil
}

// IdentityOrCreate implements [store.Identities].
func (s *Store) IdentityOrCreate(ctx context.Context, id int64, login string) (r store.Identity, err error) {
	conn, err := s.take(ctx, "create identity")
	if err != nil {
		return store.Identity{}, err
	}
	defer s.db.Put(conn)
	defer sqlitex.Transaction(conn)(&err)
	login = strings.ToLower(login)
	const upsert = `INSERT INTO identities (id, login, level) VALUES (?, ?, 0)
		ON CONFLICT (id) DO UPDATE SET login = excluded.login WHERE login != excluded.login`
	if err := sqlitex.Execute(conn, upsert, &sqlitex.ExecOptions{Args: []any{id, login}}); err != nil {
		return store.Identity{}, fmt.Errorf("couldn't upsert identity %d: %w", id, err)
	}
	return identity(conn, id)
}

// SetPermissions implements [store.Identities].
func (s *Store) SetPermissions(ctx context.Context, login string, level perm.Level) (int64, error) {
	conn, err := s.take(ctx, "set permissions")
	if err != nil {
		return 0, err
	}
	defer s.db.Put(conn)
	opts := sqlitex.ExecOptions{Args: []any{int64(level), strings.ToLower(login)}}
	if err := sqlitex.Execute(conn, `UPDATE identities SET level = ? WHERE login = ?`, &opts); err != nil {
		return 0, fmt.Errorf("couldn't set permissions for %s: %w", login, err)
	}
	return int64(conn.Changes()), nil
}

// Channels implements [store.Channels].
func (s *Store) Channels(ctx context.Context) ([]string, error) {
	conn, err := s.take(ctx, "list channels")
	if err != nil {
		return nil, err
	}
	defer s.db.Put(conn)
	var r []string
	opts := sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r = append(r, stmt.ColumnText(0))
			return nil
		},
	}
	if err := sqlitex.Execute(conn, `SELECT login FROM channels WHERE joined ORDER BY login`, &opts); err != nil {
		return nil, fmt.Errorf("couldn't list channels: %w", err)
	}
	return r, nil
}

// SetJoined implements [store.Channels].
func (s *Store) SetJoined(ctx context.Context, login string, joined bool) error {
	conn, err := s.take(ctx, "set channel")
	if err != nil {
		return err
	}
	defer s.db.Put(conn)
	const upsert = `INSERT INTO channels (login, joined) VALUES (?, ?)
		ON CONFLICT (login) DO UPDATE SET joined = excluded.joined`
	opts := sqlitex.ExecOptions{Args: []any{strings.ToLower(login), joined}}
	if err := sqlitex.Execute(conn, upsert, &opts); err != nil {
		return fmt.Errorf("couldn't set joined for %s: %w", login, err)
	}
	return nil
}

// Commands implements [store.Commands].
func (s *Store) Commands(ctx context.Context) ([]store.Command, error) {
	conn, err := s.take(ctx, "list commands")
	if err != nil {
		return nil, err
	}
	defer s.db.Put(conn)
	var r []store.Command
	opts := sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r = append(r, store.Command{
				Name:        stmt.ColumnText(0),
				Description: stmt.ColumnText(1),
				Level:       perm.FromInt(stmt.ColumnInt64(2)),
				Cooldown:    time.Duration(stmt.ColumnInt64(3)) * time.Millisecond,
			})
			return nil
		},
	}
	if err := sqlitex.Execute(conn, `SELECT name, description, level, cooldown FROM commands ORDER BY name`, &opts); err != nil {
		return nil, fmt.Errorf("couldn't list commands: %w", err)
	}
	return r, nil
}

// SeedCommands implements [store.Commands].
func (s *Store) SeedCommands(ctx context.Context, cmds []store.Command) (err error) {
	conn, err := s.take(ctx, "seed commands")
	if err != nil {
		return err
	}
	defer s.db.Put(conn)
	defer sqlitex.Transaction(conn)(&err)
	const insert = `INSERT INTO commands (name, description, level, cooldown) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`
	for _, c := range cmds {
		opts := sqlitex.ExecOptions{Args: []any{c.Name, c.Description, int64(c.Level), c.Cooldown.Milliseconds()}}
		if err := sqlitex.Execute(conn, insert, &opts); err != nil {
			return fmt.Errorf("couldn't seed command %s: %w", c.Name, err)
		}
	}
	return nil
}

// Record implements [store.History].
func (s *Store) Record(ctx context.Context, line store.Line) error {
	conn, err := s.take(ctx, "record message")
	if err != nil {
		return err
	}
	defer s.db.Put(conn)
	const insert = `INSERT INTO history (id, channel, sender, login, msg, time) VALUES (?, ?, ?, ?, ?, ?)`
	opts := sqlitex.ExecOptions{
		Args: []any{line.ID, line.Channel, line.Sender, strings.ToLower(line.Login), line.Text, line.Time.UnixMilli()},
	}
	if err := sqlitex.Execute(conn, insert, &opts); err != nil {
		return fmt.Errorf("couldn't record message: %w", err)
	}
	return nil
}

func (s *Store) line(ctx context.Context, query string, args ...any) (store.Line, bool, error) {
	conn, err := s.take(ctx, "read history")
	if err != nil {
		return store.Line{}, false, err
	}
	defer s.db.Put(conn)
	var r store.Line
	found := false
	opts := sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			r = store.Line{
				ID:      stmt.ColumnText(0),
				Channel: stmt.ColumnText(1),
				Sender:  stmt.ColumnInt64(2),
				Login:   stmt.ColumnText(3),
				Text:    stmt.ColumnText(4),
				Time:    time.UnixMilli(stmt.ColumnInt64(5)),
			}
			return nil
		},
	}
	if err := sqlitex.Execute(conn, query, &opts); err != nil {
		return store.Line{}, false, fmt.Errorf("couldn't read history: %w", err)
	}
	return r, found, nil
}

// LastMessage implements [store.History].
func (s *Store) LastMessage(ctx context.Context, channel, login string) (store.Line, bool, error) {
	const query = `SELECT id, channel, sender, login, msg, time FROM history
		WHERE channel = ? AND login = ? AND sender NOT IN (SELECT id FROM privacy)
		ORDER BY time DESC, rowid DESC LIMIT 1`
	return s.line(ctx, query, strings.ToLower(channel), strings.ToLower(login))
}

// RandomMessage implements [store.History].
func (s *Store) RandomMessage(ctx context.Context, channel, login string) (store.Line, bool, error) {
	if login == "" {
		const query = `SELECT id, channel, sender, login, msg, time FROM history
			WHERE channel = ? AND sender NOT IN (SELECT id FROM privacy)
			ORDER BY RANDOM() LIMIT 1`
		return s.line(ctx, query, strings.ToLower(channel))
	}
	const query = `SELECT id, channel, sender, login, msg, time FROM history
		WHERE channel = ? AND login = ? AND sender NOT IN (SELECT id FROM privacy)
		ORDER BY RANDOM() LIMIT 1`
	return s.line(ctx, query, strings.ToLower(channel), strings.ToLower(login))
}

// SetPrivate implements [store.Privacy].
func (s *Store) SetPrivate(ctx context.Context, id int64, private bool) (err error) {
	conn, err := s.take(ctx, "update privacy list")
	if err != nil {
		return err
	}
	defer s.db.Put(conn)
	defer sqlitex.Transaction(conn)(&err)
	opts := sqlitex.ExecOptions{Args: []any{id}}
	if !private {
		if err := sqlitex.Execute(conn, `DELETE FROM privacy WHERE id = ?`, &opts); err != nil {
			return fmt.Errorf("couldn't remove %d from privacy list: %w", id, err)
		}
		return nil
	}
	err = errors.Join(
		sqlitex.Execute(conn, `INSERT INTO privacy (id) VALUES (?) ON CONFLICT DO NOTHING`, &opts),
		sqlitex.Execute(conn, `DELETE FROM history WHERE sender = ?`, &opts),
	)
	if err != nil {
		return fmt.Errorf("couldn't add %d to privacy list: %w", id, err)
	}
	return nil
}

// Private implements [store.Privacy].
func (s *Store) Private(ctx context.Context, id int64) (bool, error) {
	conn, err := s.take(ctx, "check privacy")
	if err != nil {
		return false, err
	}
	defer s.db.Put(conn)
	st, err := conn.Prepare(`SELECT ? IN (SELECT id FROM privacy)`)
	if err != nil {
		return false, fmt.Errorf("couldn't prepare statement to check user privacy: %w", err)
	}
	st.BindInt64(1, id)
	ok, err := sqlitex.ResultBool(st)
	if err != nil {
		return false, fmt.Errorf("couldn't check user privacy: %w", err)
	}
	return ok, nil
}
