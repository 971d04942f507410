// Package supinic reports the bot as alive to the Supinic bot program.
package supinic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultEvery is the default heartbeat interval.
const DefaultEvery = 30 * time.Minute

const activeURL = "https://supinic.com/api/bot-program/bot/active"

// Client sends heartbeats to Supinic.
type Client struct {
	// HTTP is the HTTP client for performing requests.
	// If nil, http.DefaultClient is used.
	HTTP *http.Client
	// ID and Key are the Supinic user ID and API key.
	ID, Key string
	// UserAgent is sent with each request.
	UserAgent string
	// URL overrides the heartbeat endpoint.
	URL string
}

// Ping sends one heartbeat.
func (c *Client) Ping(ctx context.Context) error {
	u := c.URL
	if u == "" {
		u = activeURL
	}
	req, err := http.NewRequestWithContext(ctx, "PUT", u, nil)
	if err != nil {
		return fmt.Errorf("couldn't make request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.ID+":"+c.Key)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't PUT: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("heartbeat failed: %s (%s)", b, resp.Status)
	}
	return nil
}

// Run sends a heartbeat immediately and then once per every until ctx is
// done. Failures are logged and do not stop the loop.
func (c *Client) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = DefaultEvery
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if err := c.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "supinic heartbeat", slog.Any("err", err))
		} else {
			slog.DebugContext(ctx, "supinic heartbeat")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
