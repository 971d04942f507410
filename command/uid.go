package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// UID replies with a user's Twitch user ID.
//   - Args[0]: login of the user. Defaults to the invoker.
func UID(ctx context.Context, robo *Robot, call *Invocation) Result {
	login := strings.ToLower(strings.TrimPrefix(call.Arg(0), "@"))
	if login == "" || login == call.Identity.Login {
		return Result{Text: fmt.Sprintf("Your user ID is %d.", call.Identity.ID)}
	}
	u, err := robo.Lookup.UserByLogin(ctx, login)
	if err != nil {
		robo.Log.ErrorContext(ctx, "user lookup failed", slog.String("target", login), slog.Any("err", err))
		return Result{Text: "I couldn't look that user up right now. Try again later!"}
	}
	if u == nil {
		return Result{Text: "I couldn't find a user named " + login + "."}
	}
	return Result{Text: fmt.Sprintf("%s's user ID is %d.", u.Login, u.ID)}
}
