package command

import (
	"context"
	"log/slog"
)

// OptOut adds the invoker to the privacy list and forgets their history.
func OptOut(ctx context.Context, robo *Robot, call *Invocation) Result {
	if err := robo.Store.SetPrivate(ctx, call.Identity.ID, true); err != nil {
		robo.Log.ErrorContext(ctx, "privacy add failed", slog.Int64("user", call.Identity.ID), slog.Any("err", err))
		return Result{Text: "Something went wrong while adding you to the privacy list. Try again. Sorry!"}
	}
	return Result{Text: "Sure, I won't log your messages, and I've forgotten the ones I had. Use " + robo.Prefix + "optin if you change your mind."}
}

// OptIn removes the invoker from the privacy list.
func OptIn(ctx context.Context, robo *Robot, call *Invocation) Result {
	if err := robo.Store.SetPrivate(ctx, call.Identity.ID, false); err != nil {
		robo.Log.ErrorContext(ctx, "privacy remove failed", slog.Int64("user", call.Identity.ID), slog.Any("err", err))
		return Result{Text: "Something went wrong while removing you from the privacy list. Try again. Sorry!"}
	}
	return Result{Text: "Sure, I'll log your messages again."}
}
