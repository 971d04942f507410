package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/command"
	"github.com/bleusakura/borrowbot/metrics"
	"github.com/bleusakura/borrowbot/store"
)

var app = cli.Command{
	Name:  "borrowbot",
	Usage: "Twitch chat command bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagEnv,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the database and install the default commands and channels",
			Action: cliInit,
		},
		{
			Name:    "commands",
			Aliases: []string{"cmds"},
			Usage:   "List the commands stored in the database",
			Action:  cliCommands,
		},
	},
	Action: cliRun,

	Authors: []any{
		"bleusakura",
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setup applies the persistent flags, then loads the config and opens the
// store. The caller must close the store.
func setup(ctx context.Context, cmd *cli.Command) (*Config, store.Store, error) {
	slog.SetDefault(loggerFromFlags(cmd))
	if f := cmd.String("env"); f != "" {
		err := godotenv.Load(f)
		switch {
		case err == nil: // do nothing
		case errors.Is(err, os.ErrNotExist) && !cmd.IsSet("env"):
			// The default env file is optional.
		default:
			return nil, nil, fmt.Errorf("couldn't load env file: %w", err)
		}
	}
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	cfg, _, err := Load(ctx, r)
	r.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't load config: %w", err)
	}
	st, err := loadStore(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	cfg, st, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	robo, err := New(ctx, cfg, st, newMetrics())
	if err != nil {
		return err
	}
	if err := robo.Load(ctx); err != nil {
		return err
	}
	return robo.Run(ctx, cfg.HTTP.Listen)
}

func cliInit(ctx context.Context, cmd *cli.Command) error {
	cfg, st, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SeedCommands(ctx, command.Defaults); err != nil {
		return fmt.Errorf("couldn't install commands: %w", err)
	}
	for _, ch := range cfg.TMI.Channels {
		ch = channel.Name(ch)
		if ch == "" {
			continue
		}
		if err := st.SetJoined(ctx, ch, true); err != nil {
			return fmt.Errorf("couldn't add channel %s: %w", ch, err)
		}
	}
	slog.InfoContext(ctx, "initialized", slog.Int("commands", len(command.Defaults)), slog.Any("channels", cfg.TMI.Channels))
	return nil
}

func cliCommands(ctx context.Context, cmd *cli.Command) error {
	_, st, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	rows, err := st.Commands(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Printf("%s\t%s\t%v\t%s\n", r.Name, r.Level, r.Cooldown, r.Description)
	}
	return nil
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagEnv = cli.StringFlag{
		Name:       "env",
		Usage:      "Environment file to load before expanding the config",
		Value:      ".env",
		Persistent: true,
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}

// metrics configuration
func newMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		TMIMsgsCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "borrowbot",
					Subsystem: "tmi",
					Name:      "messages",
					Help:      "Number of PRIVMSGs received from TMI.",
				},
			),
		),
		CommandCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "borrowbot",
					Subsystem: "commands",
					Name:      "dispatched",
					Help:      "Number of command dispatches by command and outcome.",
				},
				[]string{"command", "outcome"},
			),
		),
		DispatchLatency: metrics.NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
					Namespace: "borrowbot",
					Subsystem: "commands",
					Name:      "latency",
					Help:      "How long commands take to run in seconds.",
				},
				[]string{"command"},
			),
		),
		SentCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "borrowbot",
					Subsystem: "outbound",
					Name:      "sent",
					Help:      "Number of messages sent to chat.",
				},
			),
		),
		SendFailedCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "borrowbot",
					Subsystem: "outbound",
					Name:      "failed",
					Help:      "Number of messages dropped because sending failed.",
				},
			),
		),
		BlockedCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "borrowbot",
					Subsystem: "outbound",
					Name:      "blocked",
					Help:      "Number of questionable replies withheld, by reason.",
				},
				[]string{"reason"},
			),
		),
		QueueDepth: metrics.NewPromGauge(
			prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "borrowbot",
					Subsystem: "outbound",
					Name:      "queue_depth",
					Help:      "Number of messages waiting to be sent.",
				},
			),
		),
	}
}
