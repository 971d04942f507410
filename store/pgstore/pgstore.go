// Package pgstore implements the bot's persistent state in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx driver

	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store"
)

// Store is a [store.Store] backed by a PostgreSQL database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

// Open connects to the database at dsn and creates the store's tables if
// needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("couldn't open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't connect to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Identity implements [store.Identities].
func (s *Store) Identity(ctx context.Context, id int64) (store.Identity, error) {
	return identity(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func identity(ctx context.Context, db queryer, id int64) (store.Identity, error) {
	var r store.Identity
	var level int64
	err := db.QueryRowContext(ctx, `SELECT id, login, level FROM identities WHERE id = $1`, id).Scan(&r.ID, &r.Login, &level)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.Identity{}, fmt.Errorf("%w: %d", store.ErrNoIdentity, id)
	case err != nil:
		return store.Identity{}, fmt.Errorf("couldn't get identity %d: %w", id, err)
	}
	r.Level = perm.FromInt(level)
	return r, nil
}

// IdentityOrCreate implements [store.Identities].
func (s *Store) IdentityOrCreate(ctx context.Context, id int64, login string) (store.Identity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Identity{}, fmt.Errorf("couldn't start transaction: %w", err)
	}
	defer tx.Rollback()
	const upsert = `INSERT INTO identities (id, login, level) VALUES ($1, $2, 0)
		ON CONFLICT (id) DO UPDATE SET login = EXCLUDED.login WHERE identities.login <> EXCLUDED.login`
	if _, err := tx.ExecContext(ctx, upsert, id, strings.ToLower(login)); err != nil {
		return store.Identity{}, fmt.Errorf("couldn't upsert identity %d: %w", id, err)
	}
	r, err := identity(ctx, tx, id)
	if err != nil {
		return store.Identity{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Identity{}, fmt.Errorf("couldn't commit identity %d: %w", id, err)
	}
	return r, nil
}

// SetPermissions implements [store.Identities].
func (s *Store) SetPermissions(ctx context.Context, login string, level perm.Level) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE identities SET level = $1 WHERE login = $2`, int64(level), strings.ToLower(login))
	if err != nil {
		return 0, fmt.Errorf("couldn't set permissions for %s: %w", login, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("couldn't count changed identities: %w", err)
	}
	return n, nil
}

// Channels implements [store.Channels].
func (s *Store) Channels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT login FROM channels WHERE joined ORDER BY login`)
	if err != nil {
		return nil, fmt.Errorf("couldn't list channels: %w", err)
	}
	defer rows.Close()
	var r []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("couldn't scan channel: %w", err)
		}
		r = append(r, v)
	}
	return r, rows.Err()
}

// SetJoined implements [store.Channels].
func (s *Store) SetJoined(ctx context.Context, login string, joined bool) error {
	const upsert = `INSERT INTO channels (login, joined) VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE SET joined = EXCLUDED.joined`
	if _, err := s.db.ExecContext(ctx, upsert, strings.ToLower(login), joined); err != nil {
		return fmt.Errorf("couldn't set joined for %s: %w", login, err)
	}
	return nil
}

// Commands implements [store.Commands].
func (s *Store) Commands(ctx context.Context) ([]store.Command, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description, level, cooldown_ms FROM commands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("couldn't list commands: %w", err)
	}
	defer rows.Close()
	var r []store.Command
	for rows.Next() {
		var c store.Command
		var level, cd int64
		if err := rows.Scan(&c.Name, &c.Description, &level, &cd); err != nil {
			return nil, fmt.Errorf("couldn't scan command: %w", err)
		}
		c.Level = perm.FromInt(level)
		c.Cooldown = time.Duration(cd) * time.Millisecond
		r = append(r, c)
	}
	return r, rows.Err()
}

// SeedCommands implements [store.Commands].
func (s *Store) SeedCommands(ctx context.Context, cmds []store.Command) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't start transaction: %w", err)
	}
	defer tx.Rollback()
	const insert = `INSERT INTO commands (name, description, level, cooldown_ms) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING`
	for _, c := range cmds {
		if _, err := tx.ExecContext(ctx, insert, c.Name, c.Description, int64(c.Level), c.Cooldown.Milliseconds()); err != nil {
			return fmt.Errorf("couldn't seed command %s: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// Record implements [store.History].
func (s *Store) Record(ctx context.Context, line store.Line) error {
	const insert = `INSERT INTO history (id, channel, sender, login, msg, sent_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, insert, line.ID, line.Channel, line.Sender, strings.ToLower(line.Login), line.Text, line.Time.UTC())
	if err != nil {
		return fmt.Errorf("couldn't record message: %w", err)
	}
	return nil
}

func (s *Store) line(ctx context.Context, query string, args ...any) (store.Line, bool, error) {
	var r store.Line
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&r.ID, &r.Channel, &r.Sender, &r.Login, &r.Text, &r.Time)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.Line{}, false, nil
	case err != nil:
		return store.Line{}, false, fmt.Errorf("couldn't read history: %w", err)
	}
	return r, true, nil
}

// LastMessage implements [store.History].
func (s *Store) LastMessage(ctx context.Context, channel, login string) (store.Line, bool, error) {
	const query = `SELECT id, channel, sender, login, msg, sent_at FROM history
		WHERE channel = $1 AND login = $2 AND sender NOT IN (SELECT id FROM privacy)
		ORDER BY sent_at DESC, seq DESC LIMIT 1`
	return s.line(ctx, query, strings.ToLower(channel), strings.ToLower(login))
}

// RandomMessage implements [store.History].
func (s *Store) RandomMessage(ctx context.Context, channel, login string) (store.Line, bool, error) {
	const query = `SELECT id, channel, sender, login, msg, sent_at FROM history
		WHERE channel = $1 AND ($2 = '' OR login = $2) AND sender NOT IN (SELECT id FROM privacy)
		ORDER BY random() LIMIT 1`
	return s.line(ctx, query, strings.ToLower(channel), strings.ToLower(login))
}

// SetPrivate implements [store.Privacy].
func (s *Store) SetPrivate(ctx context.Context, id int64, private bool) error {
	if !private {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM privacy WHERE id = $1`, id); err != nil {
			return fmt.Errorf("couldn't remove %d from privacy list: %w", id, err)
		}
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't start transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO privacy (id) VALUES ($1) ON CONFLICT DO NOTHING`, id); err != nil {
		return fmt.Errorf("couldn't add %d to privacy list: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE sender = $1`, id); err != nil {
		return fmt.Errorf("couldn't delete history for %d: %w", id, err)
	}
	return tx.Commit()
}

// Private implements [store.Privacy].
func (s *Store) Private(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM privacy WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("couldn't check user privacy: %w", err)
	}
	return ok, nil
}
