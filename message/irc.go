package message

import (
	"strconv"
	"strings"

	"gitlab.com/zephyrtronium/tmi"
)

// FromTMI adapts a TMI IRC message.
func FromTMI(m *tmi.Message) *Received {
	id, _ := m.Tag("id")
	sender, _ := m.Tag("user-id")
	ts, _ := m.Tag("tmi-sent-ts")
	uid, _ := strconv.ParseInt(sender, 10, 64)
	u, _ := strconv.ParseInt(ts, 10, 64)
	r := Received{
		ID:          id,
		To:          strings.TrimPrefix(m.To(), "#"),
		Sender:      uid,
		Login:       m.Nick,
		Name:        m.DisplayName(),
		Text:        m.Trailing,
		Timestamp:   u,
		IsModerator: moderator(m),
	}
	return &r
}

func moderator(m *tmi.Message) bool {
	t, _ := m.Tag("mod")
	if t == "1" {
		return true
	}
	// The broadcaster gets mod=0, but their nick is equal to the channel name.
	if to := m.To(); len(to) > 1 && to[0] == '#' && to[1:] == m.Nick {
		return true
	}
	return false
}

// ToTMI creates a PRIVMSG to send to TMI.
func ToTMI(msg Sent) *tmi.Message {
	return tmi.Privmsg("#"+strings.TrimPrefix(msg.To, "#"), msg.Text)
}
