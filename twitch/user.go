package twitch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nicklaw5/helix/v2"
)

// User is a Twitch user as relevant to the bot.
type User struct {
	ID          int64
	Login       string
	DisplayName string
}

// UserByLogin looks up a user by login name.
// If no such user exists, the result is nil with a nil error.
func (c *Client) UserByLogin(ctx context.Context, login string) (*User, error) {
	if err := c.rate.Wait(ctx); err != nil {
		return nil, err
	}
	login = strings.ToLower(strings.TrimPrefix(login, "@"))
	resp, err := c.helix.GetUsers(&helix.UsersParams{Logins: []string{login}})
	if err != nil {
		return nil, fmt.Errorf("couldn't get user %s: %w", login, err)
	}
	switch resp.StatusCode {
	case http.StatusOK: // do nothing
	case http.StatusBadRequest:
		// Helix rejects logins that can't exist.
		return nil, nil
	default:
		return nil, fmt.Errorf("couldn't get user %s: %d %s: %s", login, resp.StatusCode, resp.Error, resp.ErrorMessage)
	}
	if len(resp.Data.Users) == 0 {
		return nil, nil
	}
	u := resp.Data.Users[0]
	id, err := strconv.ParseInt(u.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("user %s has non-numeric id %q", login, u.ID)
	}
	return &User{ID: id, Login: u.Login, DisplayName: u.DisplayName}, nil
}
