package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"gitlab.com/zephyrtronium/tmi"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bleusakura/borrowbot/message"
)

// client is the TMI connection as seen by the rest of the bot.
// It delivers outbound messages under the global rate limit and keeps the
// joined channels in sync with the wanted set.
type client struct {
	// send and recv are the channels to and from the connection.
	send chan *tmi.Message
	recv chan *tmi.Message
	// nick is the bot's login.
	nick string
	// token is the chat access token.
	token string
	// rate is the global send limit.
	rate *rate.Limiter

	// mu guards the join loop state below.
	mu sync.Mutex
	// want is the latest wanted channel list.
	want []string
	// connected is whether the connection is ready for JOINs.
	connected bool
	// reset means a new connection was made, so nothing is joined.
	reset bool
	// wake signals the join loop. It has capacity 1.
	wake chan struct{}
}

var (
	// joinBurst is the number of channels joined at once.
	joinBurst = 20
	// joinWait is the delay between join bursts.
	// Per https://dev.twitch.tv/docs/irc/#rate-limits we get 20 join
	// attempts per ten seconds. Use a slightly longer delay to ensure
	// we don't get globaled by clock drift.
	joinWait = 11 * time.Second
)

func newClient(cfg TMICfg) *client {
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.Rate.Every > 0 {
		lim = rate.NewLimiter(rate.Every(fseconds(cfg.Rate.Every/float64(max(cfg.Rate.Num, 1)))), max(cfg.Rate.Num, 1))
	}
	return &client{
		send:  make(chan *tmi.Message, 1),
		recv:  make(chan *tmi.Message, 8), // 8 is enough for on-connect msgs
		nick:  strings.ToLower(cfg.Nick),
		token: cfg.Token,
		rate:  lim,
		wake:  make(chan struct{}, 1),
	}
}

// Send sends a chat message once the rate limit allows.
func (c *client) Send(ctx context.Context, to, text string) error {
	if err := c.rate.Wait(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.send <- message.ToTMI(message.Sent{To: to, Text: text}):
		return nil
	}
}

// SetChannels records the wanted channel list and wakes the join loop.
func (c *client) SetChannels(names []string) {
	c.mu.Lock()
	c.want = names
	c.mu.Unlock()
	c.signal()
}

// ready marks the connection as ready for JOINs with no channels joined.
func (c *client) ready() {
	c.mu.Lock()
	c.connected = true
	c.reset = true
	c.mu.Unlock()
	c.signal()
}

func (c *client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// joinLoop sends JOIN and PART messages to make the joined channels match
// the wanted ones.
func (c *client) joinLoop(ctx context.Context) error {
	joined := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
		c.mu.Lock()
		want, connected, reset := c.want, c.connected, c.reset
		c.reset = false
		c.mu.Unlock()
		if !connected {
			continue
		}
		if reset {
			clear(joined)
		}
		join, part := channelDiff(joined, want)
		if err := c.burst(ctx, "PART", part, func(s string) { delete(joined, s) }); err != nil {
			return err
		}
		if err := c.burst(ctx, "JOIN", join, func(s string) { joined[s] = true }); err != nil {
			return err
		}
	}
}

// channelDiff finds the channels to join and to part to go from have to want.
// Both results are sorted.
func channelDiff(have map[string]bool, want []string) (join, part []string) {
	w := make(map[string]bool, len(want))
	for _, s := range want {
		w[s] = true
		if !have[s] {
			join = append(join, s)
		}
	}
	for s := range have {
		if !w[s] {
			part = append(part, s)
		}
	}
	slices.Sort(join)
	slices.Sort(part)
	return join, part
}

// burst sends a JOIN or PART for names in groups of joinBurst.
func (c *client) burst(ctx context.Context, cmd string, names []string, done func(string)) error {
	for len(names) > 0 {
		l := names[:min(joinBurst, len(names))]
		names = names[len(l):]
		msg := tmi.Message{
			Command: cmd,
			Params:  []string{"#" + strings.Join(l, ",#")},
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c.send <- &msg:
		}
		slog.InfoContext(ctx, strings.ToLower(cmd), slog.Any("channels", l))
		for _, s := range l {
			done(s)
		}
		if len(names) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(joinWait):
			}
		}
	}
	return nil
}

// runTMI connects to TMI and handles its messages until ctx is canceled.
func (robo *Robot) runTMI(ctx context.Context, group *errgroup.Group) error {
	cfg := tmi.ConnectConfig{
		Dial:         new(tls.Dialer).DialContext,
		RetryWait:    tmi.RetryList(true, 0, time.Second, time.Minute, 5*time.Minute),
		Nick:         robo.tmi.nick,
		Pass:         "oauth:" + robo.tmi.token,
		Capabilities: []string{"twitch.tv/commands", "twitch.tv/tags"},
		Timeout:      300 * time.Second,
	}
	go robo.tmiLoop(ctx, group, robo.tmi.recv)
	lg := slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)
	tmi.Connect(ctx, cfg, tmi.Log(lg, false), robo.tmi.send, robo.tmi.recv)
	return ctx.Err()
}

func (robo *Robot) tmiLoop(ctx context.Context, group *errgroup.Group, recv <-chan *tmi.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-recv:
			if !ok {
				return
			}
			switch msg.Command {
			case "PRIVMSG":
				group.Go(func() error {
					robo.tmiMessage(ctx, msg)
					return nil
				})
			case "NOTICE":
				slog.InfoContext(ctx, "notice", slog.String("channel", msg.To()), slog.String("text", msg.Trailing))
			case "RECONNECT":
				slog.InfoContext(ctx, "TMI asked to reconnect")
			case "GLOBALUSERSTATE":
				slog.InfoContext(ctx, "connected to TMI", slog.String("GLOBALUSERSTATE", msg.Tags))
			case "366": // End NAMES
				if len(msg.Params) > 1 {
					slog.InfoContext(ctx, "joined channel", slog.String("channel", msg.Params[1]))
				}
			case "376": // End MOTD
				robo.tmi.ready()
			}
		}
	}
}
