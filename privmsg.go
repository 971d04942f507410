package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gitlab.com/zephyrtronium/tmi"

	"github.com/bleusakura/borrowbot/command"
	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/store"
)

// tmiMessage processes a PRIVMSG from TMI.
func (robo *Robot) tmiMessage(ctx context.Context, msg *tmi.Message) {
	robo.metrics.TMIMsgsCount.Observe(1)
	robo.handle(ctx, message.FromTMI(msg))
}

// handle processes a chat message: records it, or runs the command it holds
// and queues the reply.
func (robo *Robot) handle(ctx context.Context, m *message.Received) {
	if !robo.channels.Has(m.To) {
		// TMI gives a WHISPER for a direct message, so this is a message to a
		// channel we've left. Ignore it.
		return
	}
	if m.Sender == 0 || m.Login == robo.tmi.nick {
		return
	}
	log := slog.With(slog.String("trace", uuid.NewString()), slog.String("in", m.To), slog.String("id", m.ID))
	id, err := robo.store.IdentityOrCreate(ctx, m.Sender, m.Login)
	if err != nil {
		log.ErrorContext(ctx, "couldn't get identity", slog.Int64("user", m.Sender), slog.Any("err", err))
		return
	}
	if _, _, ok := command.Parse(robo.dispatch.Prefix, m.Text); !ok {
		robo.record(ctx, log, m)
		return
	}
	cr := robo.cmd
	cr.Log = log
	r, out := robo.dispatch.Dispatch(ctx, &cr, m, id)
	log.DebugContext(ctx, "dispatched", slog.String("outcome", out.String()))
	reply, ok := robo.shaper.Shape(ctx, m.To, m.Login, r.Text, r.Questionable)
	if !ok {
		return
	}
	robo.queue.Enqueue(reply)
}

// record adds a message to the history unless its sender opted out.
func (robo *Robot) record(ctx context.Context, log *slog.Logger, m *message.Received) {
	private, err := robo.store.Private(ctx, m.Sender)
	if err != nil {
		log.ErrorContext(ctx, "couldn't check privacy", slog.Int64("user", m.Sender), slog.Any("err", err))
		return
	}
	if private {
		return
	}
	t := m.Time()
	if m.Timestamp == 0 {
		t = time.Now()
	}
	line := store.Line{
		ID:      m.ID,
		Channel: m.To,
		Sender:  m.Sender,
		Login:   m.Login,
		Text:    m.Text,
		Time:    t,
	}
	if err := robo.store.Record(ctx, line); err != nil {
		log.ErrorContext(ctx, "couldn't record message", slog.Any("err", err))
	}
}
