// Package perm defines the ordered permission levels held by chat identities.
package perm

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a permission level. Levels are totally ordered so that a higher
// level holds every right of the lower ones.
type Level int

const (
	User Level = iota
	Moderator
	Superuser
)

// Satisfies reports whether an identity holding the level held may use
// something which requires the level required.
func Satisfies(held, required Level) bool {
	return held >= required
}

// FromInt converts a stored integer level. Values outside the known levels
// decode as User.
func FromInt(v int64) Level {
	switch Level(v) {
	case Moderator:
		return Moderator
	case Superuser:
		return Superuser
	default:
		return User
	}
}

// Parse parses a level from either its integer encoding or its name.
func Parse(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "user":
		return User, nil
	case "moderator", "mod":
		return Moderator, nil
	case "superuser":
		return Superuser, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < int64(User) || v > int64(Superuser) {
		return User, fmt.Errorf("unknown permission level %q", s)
	}
	return Level(v), nil
}

func (l Level) String() string {
	switch l {
	case User:
		return "user"
	case Moderator:
		return "moderator"
	case Superuser:
		return "superuser"
	default:
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
}
