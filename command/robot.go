package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/store"
	"github.com/bleusakura/borrowbot/twitch"
)

// Lookup resolves Twitch users by login.
type Lookup interface {
	// UserByLogin returns nil with a nil error if no such user exists.
	UserByLogin(ctx context.Context, login string) (*twitch.User, error)
}

// Announcer queues messages which aren't replies.
type Announcer interface {
	Enqueue(msg message.Sent)
}

// Robot is the bot state as is visible to commands.
type Robot struct {
	Log      *slog.Logger
	Store    store.Store
	Lookup   Lookup
	Channels *channel.Set
	Announce Announcer
	Registry *Registry
	// Prefix is the command prefix, for use in responses.
	Prefix string
	// Start is the time the bot started.
	Start time.Time
	// Owner and Contact describe the bot's owner.
	Owner, Contact string
}
