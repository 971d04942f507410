// Package store defines the persistent state of the bot: chat identities and
// their permission levels, the command catalog, joined channels, message
// history, and the privacy list.
//
// Implementations live in subpackages. sqlstore uses SQLite and pgstore uses
// PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bleusakura/borrowbot/perm"
)

// ErrNoIdentity is returned when an identity lookup finds no such identity.
var ErrNoIdentity = errors.New("no such identity")

// Identity is a chat user as known to the bot.
type Identity struct {
	// ID is the platform user ID.
	ID int64
	// Login is the user's login name.
	Login string
	// Level is the user's permission level.
	Level perm.Level
}

// Command is a stored command definition.
type Command struct {
	Name        string
	Description string
	Level       perm.Level
	Cooldown    time.Duration
}

// Line is one chat message recorded in the history log.
type Line struct {
	// ID is the platform message ID.
	ID string
	// Channel is the channel the message was sent in, without '#'.
	Channel string
	// Sender is the user ID of the sender.
	Sender int64
	// Login is the sender's login name at the time of the message.
	Login string
	// Text is the message text.
	Text string
	// Time is the time the message was sent.
	Time time.Time
}

// Identities stores chat identities and their levels.
type Identities interface {
	// Identity returns the identity with the given user ID.
	// If there is none, the error is ErrNoIdentity.
	Identity(ctx context.Context, id int64) (Identity, error)
	// IdentityOrCreate returns the identity with the given user ID, creating
	// it with level User if it doesn't exist. The stored login is updated if
	// it differs.
	IdentityOrCreate(ctx context.Context, id int64, login string) (Identity, error)
	// SetPermissions sets the level of the identity with the given login.
	// It returns the number of identities changed, which is zero if no
	// identity has that login.
	SetPermissions(ctx context.Context, login string, level perm.Level) (int64, error)
}

// Channels stores the channels the bot should be in.
type Channels interface {
	// Channels returns the logins of all channels marked joined.
	Channels(ctx context.Context) ([]string, error)
	// SetJoined marks a channel as joined or not.
	SetJoined(ctx context.Context, login string, joined bool) error
}

// Commands stores the command catalog.
type Commands interface {
	// Commands returns all stored commands.
	Commands(ctx context.Context) ([]Command, error)
	// SeedCommands adds commands which are not already stored.
	// Existing definitions are left as they are.
	SeedCommands(ctx context.Context, cmds []Command) error
}

// History is the chat message log.
type History interface {
	// Record adds a line to the log.
	Record(ctx context.Context, line Line) error
	// LastMessage returns the most recent line from a login in a channel.
	// The second result is false if there is none.
	LastMessage(ctx context.Context, channel, login string) (Line, bool, error)
	// RandomMessage returns a random line in a channel. If login is not
	// empty, the line is from that login.
	// The second result is false if there is none.
	RandomMessage(ctx context.Context, channel, login string) (Line, bool, error)
}

// Privacy is the list of users who have opted out of message history.
type Privacy interface {
	// SetPrivate adds or removes a user from the privacy list.
	// Adding a user also deletes their recorded history.
	SetPrivate(ctx context.Context, id int64, private bool) error
	// Private reports whether a user is on the privacy list.
	Private(ctx context.Context, id int64) (bool, error)
}

// Store is the complete persistent state.
type Store interface {
	Identities
	Channels
	Commands
	History
	Privacy
	Close() error
}
