package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/command"
	"github.com/bleusakura/borrowbot/cooldown"
	"github.com/bleusakura/borrowbot/metrics"
	"github.com/bleusakura/borrowbot/moderation"
	"github.com/bleusakura/borrowbot/outbound"
	"github.com/bleusakura/borrowbot/store"
	"github.com/bleusakura/borrowbot/supinic"
	"github.com/bleusakura/borrowbot/twitch"
)

// Robot is the overall state of the bot.
type Robot struct {
	// store is the persistent state.
	store store.Store
	// cmd is the state visible to commands.
	cmd command.Robot
	// dispatch routes commands.
	dispatch command.Dispatcher
	// shaper turns command results into chat messages.
	shaper outbound.Shaper
	// queue holds messages waiting to be sent.
	queue outbound.Queue
	// channels is the set of channels the bot wants to be in.
	channels *channel.Set
	// interval is the time between sends from queue.
	interval time.Duration
	// tmi is the chat connection.
	tmi *client
	// supinic is the activity heartbeat. It may be nil.
	supinic *supinic.Client
	// supinicEvery is the time between heartbeats.
	supinicEvery time.Duration
	// metrics are the prometheus metrics.
	metrics *metrics.Metrics
}

// New creates a bot from its configuration and store.
// It makes no network requests.
func New(ctx context.Context, cfg *Config, st store.Store, m *metrics.Metrics) (*Robot, error) {
	if m == nil {
		m = metrics.Discard()
	}
	tw, err := twitch.New(ctx, twitch.Config{
		ID:     cfg.Twitch.CID,
		Secret: cfg.Twitch.Secret,
		Rate:   rate.Every(50 * time.Millisecond),
		Burst:  20,
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't create Twitch API client: %w", err)
	}
	robo := &Robot{
		store:    st,
		interval: fseconds(cfg.TMI.Interval),
		metrics:  m,
		tmi:      newClient(cfg.TMI),
	}
	if robo.interval <= 0 {
		robo.interval = 1500 * time.Millisecond
	}
	robo.channels = channel.NewSet(robo.tmi)
	if !cfg.Moderation.Disabled {
		u := cfg.Moderation.URL
		if u == "" {
			u = moderation.DefaultURL
		}
		robo.shaper.Screen = &moderation.Client{
			HTTP: &http.Client{Timeout: 10 * time.Second},
			URL:  u,
		}
	}
	robo.shaper.Metrics = m
	robo.dispatch = command.Dispatcher{
		Prefix:    cfg.Prefix,
		Cooldowns: cooldown.New(),
		Metrics:   m,
	}
	robo.cmd = command.Robot{
		Log:      slog.Default(),
		Store:    st,
		Lookup:   tw,
		Channels: robo.channels,
		Announce: &robo.queue,
		Prefix:   cfg.Prefix,
		Start:    time.Now(),
		Owner:    cfg.Owner.Name,
		Contact:  cfg.Owner.Contact,
	}
	if cfg.Supinic.ID != "" && cfg.Supinic.Key != "" {
		robo.supinic = &supinic.Client{
			HTTP:      &http.Client{Timeout: 30 * time.Second},
			ID:        cfg.Supinic.ID,
			Key:       cfg.Supinic.Key,
			UserAgent: "borrowbot (" + cfg.Owner.Name + ")",
		}
		robo.supinicEvery = fseconds(cfg.Supinic.Every)
		if robo.supinicEvery <= 0 {
			robo.supinicEvery = supinic.DefaultEvery
		}
	}
	return robo, nil
}

// Load reads the command catalog and joined channels from the store.
func (robo *Robot) Load(ctx context.Context) error {
	rows, err := robo.store.Commands(ctx)
	if err != nil {
		return fmt.Errorf("couldn't load commands: %w", err)
	}
	robo.cmd.Registry = command.NewRegistry(ctx, slog.Default(), rows, command.Builtins)
	slog.InfoContext(ctx, "loaded commands", slog.Int("count", len(robo.cmd.Registry.All())))
	chans, err := robo.store.Channels(ctx)
	if err != nil {
		return fmt.Errorf("couldn't load channels: %w", err)
	}
	robo.channels.Reset(chans)
	slog.InfoContext(ctx, "loaded channels", slog.Any("channels", chans))
	return nil
}

// Run runs the bot until ctx is canceled or a component fails.
// Load must be called first.
func (robo *Robot) Run(ctx context.Context, listen string) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return robo.runTMI(ctx, group) })
	group.Go(func() error { return robo.tmi.joinLoop(ctx) })
	group.Go(func() error { return robo.queue.Run(ctx, robo.interval, robo.tmi, robo.metrics) })
	if robo.supinic != nil {
		group.Go(func() error { return robo.supinic.Run(ctx, robo.supinicEvery) })
	}
	if listen != "" {
		group.Go(func() error {
			return robo.api(ctx, listen, new(http.ServeMux), robo.metrics.Collectors())
		})
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		// If the first error is context canceled, then we are shutting down
		// normally in response to a sigint.
		err = nil
	}
	return err
}
