package outbound

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/metrics"
)

// Screen decides whether text may be sent.
type Screen interface {
	Disallowed(ctx context.Context, text string) (bool, error)
}

// Marker is appended to every second shaped reply so that identical
// consecutive replies aren't collapsed by chat's duplicate message filter.
const Marker = " \U000E0000"

const (
	// NoticeUnavailable replaces questionable replies that could not be
	// screened.
	NoticeUnavailable = "I couldn't check that response with moderation, so I'm not sending it. Try again later!"
	// NoticeBlocked replaces questionable replies that moderation rejected.
	NoticeBlocked = "That response was blocked by moderation."
)

// Shaper turns command results into chat messages.
type Shaper struct {
	// Screen checks questionable replies. If nil, questionable replies are
	// treated as though moderation is unavailable.
	Screen Screen
	// Metrics records blocked replies. May be nil.
	Metrics *metrics.Metrics

	mu  sync.Mutex
	odd bool
}

// Shape builds the reply to login in the channel to. The second result is
// false if there is nothing to send.
func (s *Shaper) Shape(ctx context.Context, to, login, text string, questionable bool) (message.Sent, bool) {
	if text == "" {
		return message.Sent{}, false
	}
	text = "@" + login + ", " + text
	if questionable {
		text = s.screen(ctx, to, login, text)
	}
	if s.toggle() {
		text += Marker
	}
	return message.Sent{To: to, Text: text}, true
}

func (s *Shaper) screen(ctx context.Context, to, login, text string) string {
	if s.Screen == nil {
		s.blocked("unavailable")
		return "@" + login + ", " + NoticeUnavailable
	}
	banned, err := s.Screen.Disallowed(ctx, text)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "moderation check failed", slog.String("channel", to), slog.Any("err", err))
		s.blocked("unavailable")
		return "@" + login + ", " + NoticeUnavailable
	case banned:
		slog.InfoContext(ctx, "reply blocked by moderation", slog.String("channel", to), slog.String("text", text))
		s.blocked("banned")
		return "@" + login + ", " + NoticeBlocked
	default:
		return text
	}
}

func (s *Shaper) blocked(reason string) {
	if s.Metrics != nil {
		s.Metrics.BlockedCount.Observe(1, reason)
	}
}

// toggle advances the alternation and reports whether this reply gets the
// marker.
func (s *Shaper) toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.odd
	s.odd = !s.odd
	return r
}
