package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bleusakura/borrowbot/store"
	"github.com/bleusakura/borrowbot/store/pgstore"
	"github.com/bleusakura/borrowbot/store/sqlstore"
)

// Load loads the bot configuration from TOML.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	if u := md.Undecoded(); len(u) != 0 {
		slog.WarnContext(ctx, "unknown config keys", slog.Any("keys", u))
	}
	return &cfg, &md, nil
}

func (cfg *Config) validate() error {
	var errs []error
	switch {
	case cfg.DB.SQLite == "" && cfg.DB.Postgres == "":
		errs = append(errs, errors.New("config must name a database in db.sqlite or db.postgres"))
	case cfg.DB.SQLite != "" && cfg.DB.Postgres != "":
		errs = append(errs, errors.New("config must name only one of db.sqlite or db.postgres"))
	}
	if cfg.TMI.Rate.Every < 0 || cfg.TMI.Rate.Num < 0 {
		errs = append(errs, errors.New("tmi.rate must not be negative"))
	}
	if cfg.TMI.Interval < 0 {
		errs = append(errs, errors.New("tmi.interval must not be negative"))
	}
	return errors.Join(errs...)
}

// loadStore opens the configured database.
func loadStore(ctx context.Context, cfg DBCfg) (store.Store, error) {
	if cfg.Postgres != "" {
		slog.DebugContext(ctx, "postgres store")
		s, err := pgstore.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("couldn't open postgres store: %w", err)
		}
		return s, nil
	}
	slog.DebugContext(ctx, "sqlite store", slog.String("path", cfg.SQLite))
	opts := sqlitex.PoolOptions{
		PrepareConn: sqlstore.RecommendedPrep,
	}
	pool, err := sqlitex.NewPool(cfg.SQLite, opts)
	if err != nil {
		return nil, fmt.Errorf("couldn't open sqlite db: %w", err)
	}
	s, err := sqlstore.Open(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("couldn't open sqlite store: %w", err)
	}
	return s, nil
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Config is the marshaled structure of the bot's configuration.
type Config struct {
	// Prefix marks chat messages as commands. Defaults to "!".
	Prefix string `toml:"prefix"`
	// Owner is the table of metadata about the owner.
	Owner Owner `toml:"owner"`
	// DB is the table of database connection strings.
	DB DBCfg `toml:"db"`
	// TMI is the configuration for connecting to Twitch chat.
	TMI TMICfg `toml:"tmi"`
	// Twitch is the Twitch API application.
	Twitch TwitchCfg `toml:"twitch"`
	// Moderation is the banphrase API used to screen replies.
	Moderation ModerationCfg `toml:"moderation"`
	// Supinic is the bot activity heartbeat.
	Supinic SupinicCfg `toml:"supinic"`
	// HTTP is the configuration for the HTTP API.
	HTTP HTTP `toml:"http"`
}

// Owner is metadata about the bot owner.
type Owner struct {
	// Name is the name of the owner.
	Name string `toml:"name"`
	// Contact describes contact information for the owner.
	Contact string `toml:"contact"`
}

// DBCfg is the configuration of the database.
// Exactly one of SQLite or Postgres must be set.
type DBCfg struct {
	// SQLite is a SQLite DSN.
	SQLite string `toml:"sqlite"`
	// Postgres is a PostgreSQL connection string.
	Postgres string `toml:"postgres"`
}

// TMICfg is the configuration for Twitch chat.
type TMICfg struct {
	// Nick is the bot's login.
	Nick string `toml:"nick"`
	// Token is the chat OAuth2 access token, without the "oauth:" prefix.
	Token string `toml:"token"`
	// Rate is the global rate limit for sending messages.
	Rate Rate `toml:"rate"`
	// Interval is the time between sends from the outbound queue in seconds.
	Interval float64 `toml:"interval"`
	// Channels are joined on init in addition to any stored channels.
	Channels []string `toml:"channels"`
}

// TwitchCfg is the Twitch API application.
type TwitchCfg struct {
	// CID is the client ID.
	CID string `toml:"cid"`
	// Secret is the client secret.
	Secret string `toml:"secret"`
}

// ModerationCfg configures reply screening.
type ModerationCfg struct {
	// URL is the banphrase test endpoint. Empty means the default.
	URL string `toml:"url"`
	// Disabled turns screening off. Questionable replies are then replaced
	// with a notice instead of being sent.
	Disabled bool `toml:"disabled"`
}

// SupinicCfg configures the supinic.com heartbeat.
// The heartbeat runs only if both ID and Key are set.
type SupinicCfg struct {
	ID  string `toml:"id"`
	Key string `toml:"key"`
	// Every is the time between heartbeats in seconds.
	Every float64 `toml:"every"`
}

// HTTP is the configuration for the HTTP API.
type HTTP struct {
	// Listen is the address to bind the HTTP server.
	Listen string `toml:"listen"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.Prefix,
		&cfg.Owner.Name,
		&cfg.Owner.Contact,
		&cfg.DB.SQLite,
		&cfg.DB.Postgres,
		&cfg.TMI.Nick,
		&cfg.TMI.Token,
		&cfg.Twitch.CID,
		&cfg.Twitch.Secret,
		&cfg.Moderation.URL,
		&cfg.Supinic.ID,
		&cfg.Supinic.Key,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
	for i, s := range cfg.TMI.Channels {
		cfg.TMI.Channels[i] = os.Expand(s, expand)
	}
}
