package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bleusakura/borrowbot/perm"
)

// SetPermissions sets a user's permission level.
//   - Args[0]: login of the user.
//   - Args[1]: level, as 0, 1, 2 or a level name.
func SetPermissions(ctx context.Context, robo *Robot, call *Invocation) Result {
	if call.Identity.Level != perm.Superuser {
		return Result{Text: "Sorry, only superusers can set permissions!"}
	}
	login := call.Arg(0)
	if login == "" {
		return Result{Text: "Please give a username after the command!"}
	}
	level, err := perm.Parse(call.Arg(1))
	if err != nil {
		return Result{Text: "Please give a level of 0 (user), 1 (moderator), or 2 (superuser) after the username!"}
	}
	n, err := robo.Store.SetPermissions(ctx, login, level)
	if err != nil {
		robo.Log.ErrorContext(ctx, "set permissions failed", slog.String("target", login), slog.Any("err", err))
		return Result{Text: fmt.Sprintf("Something went wrong setting permissions to %d. Sorry!", level)}
	}
	if n == 0 {
		return Result{Text: "Sorry, I couldn't find that user in my database!"}
	}
	robo.Log.InfoContext(ctx, "set permissions", slog.String("target", login), slog.String("level", level.String()))
	return Result{Text: fmt.Sprintf("Set %s's permissions to %d (%s).", login, level, level)}
}
