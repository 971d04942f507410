package command

import (
	"context"
	"log/slog"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/message"
)

// Join joins a channel.
//   - Args[0]: the channel.
func Join(ctx context.Context, robo *Robot, call *Invocation) Result {
	ch := channel.Name(call.Arg(0))
	if ch == "" {
		return Result{Text: "Please give a channel to join!"}
	}
	log := robo.Log.With(slog.String("target", ch))
	u, err := robo.Lookup.UserByLogin(ctx, ch)
	if err != nil {
		log.ErrorContext(ctx, "channel lookup failed", slog.Any("err", err))
		return Result{Text: "I'm unable to verify that channel right now, so I won't join it. Try again later!"}
	}
	if u == nil {
		return Result{Text: "I couldn't find a channel named " + ch + "."}
	}
	if err := robo.Store.SetJoined(ctx, ch, true); err != nil {
		log.ErrorContext(ctx, "persist join failed", slog.Any("err", err))
		return Result{Text: "Something went wrong saving that channel. Sorry!"}
	}
	if !robo.Channels.Add(ch) {
		return Result{Text: "I'm already in " + ch + "!"}
	}
	log.InfoContext(ctx, "joined channel", slog.Int64("channel_id", u.ID))
	robo.Announce.Enqueue(message.Format(ch, "Hi! I'm here now. Use %shelp to see my commands.", robo.Prefix))
	return Result{Text: "Joined " + ch + "."}
}

// Leave leaves a channel.
//   - Args[0]: the channel.
func Leave(ctx context.Context, robo *Robot, call *Invocation) Result {
	ch := channel.Name(call.Arg(0))
	if ch == "" {
		return Result{Text: "Please give a channel to leave!"}
	}
	log := robo.Log.With(slog.String("target", ch))
	if err := robo.Store.SetJoined(ctx, ch, false); err != nil {
		log.ErrorContext(ctx, "persist leave failed", slog.Any("err", err))
		return Result{Text: "Something went wrong saving that channel. Sorry!"}
	}
	if !robo.Channels.Remove(ch) {
		return Result{Text: "I'm not currently in that channel."}
	}
	log.InfoContext(ctx, "left channel")
	return Result{Text: "Left " + ch + "."}
}
