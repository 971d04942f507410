// Package message holds the chat messages the bot receives and sends.
package message

import (
	"fmt"
	"strings"
	"time"
)

// Received is a chat message received from TMI.
type Received struct {
	// ID is the unique ID of the message.
	ID string
	// To is the channel the message was sent to, without the leading '#'.
	To string
	// Sender is the platform user ID of the sender.
	Sender int64
	// Login is the sender's login name.
	Login string
	// Name is the display name of the sender.
	Name string
	// Text is the text of the message.
	Text string
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// IsModerator indicates whether the sender can moderate the channel.
	IsModerator bool
}

func (m *Received) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Sent is a message to be sent to a channel.
type Sent struct {
	// To is the channel to which the message is sent, without the leading '#'.
	To string
	// Text is the message text.
	Text string
}

// formatString is a type to prevent misuse of format strings passed to [Format].
type formatString string

// Format constructs a message to send from a format string literal and
// formatting arguments.
func Format(to string, f formatString, args ...any) Sent {
	return Sent{
		To:   to,
		Text: strings.TrimSpace(fmt.Sprintf(string(f), args...)),
	}
}
