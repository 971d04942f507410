package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/store"
)

// LastMessage replies with the most recent message a user sent in a channel.
//   - Args[0]: login of the user. Defaults to the invoker.
//   - Args[1]: the channel. Defaults to the current one.
func LastMessage(ctx context.Context, robo *Robot, call *Invocation) Result {
	login := targetLogin(call)
	line, ok, err := robo.Store.LastMessage(ctx, targetChannel(call), login)
	if err != nil {
		robo.Log.ErrorContext(ctx, "last message failed", slog.String("target", login), slog.Any("err", err))
		return Result{Text: "Something went wrong reading my logs. Sorry!"}
	}
	if !ok {
		return Result{Text: "I have no logs of " + login + " in that channel."}
	}
	return Result{Text: formatLine(line), Questionable: true}
}

// RandomLine replies with a random message from a channel.
//   - Args[0]: login to restrict to. Optional.
//   - Args[1]: the channel. Defaults to the current one.
func RandomLine(ctx context.Context, robo *Robot, call *Invocation) Result {
	login := strings.ToLower(strings.TrimPrefix(call.Arg(0), "@"))
	line, ok, err := robo.Store.RandomMessage(ctx, targetChannel(call), login)
	if err != nil {
		robo.Log.ErrorContext(ctx, "random line failed", slog.String("target", login), slog.Any("err", err))
		return Result{Text: "Something went wrong reading my logs. Sorry!"}
	}
	if !ok {
		if login != "" {
			return Result{Text: "I have no logs of " + login + " in that channel."}
		}
		return Result{Text: "I have no logs for that channel."}
	}
	return Result{Text: formatLine(line), Questionable: true}
}

func targetLogin(call *Invocation) string {
	login := strings.ToLower(strings.TrimPrefix(call.Arg(0), "@"))
	if login == "" {
		return call.Identity.Login
	}
	return login
}

func targetChannel(call *Invocation) string {
	if ch := channel.Name(call.Arg(1)); ch != "" {
		return ch
	}
	return call.Message.To
}

// formatLine renders a line with its UTC timestamp.
func formatLine(line store.Line) string {
	return fmt.Sprintf("(%s) %s: %s", line.Time.UTC().Format(time.DateTime), line.Login, line.Text)
}
