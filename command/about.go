package command

import (
	"context"
	"math/rand/v2"
	"time"

	"gitlab.com/zephyrtronium/pick"

	"github.com/bleusakura/borrowbot/perm"
)

// About describes the bot.
func About(ctx context.Context, robo *Robot, call *Invocation) Result {
	s := "I'm a chat bot written in Go. Use help to see what I can do."
	if robo.Owner != "" {
		s = "I'm a chat bot written in Go, run by " + robo.Owner + ". Use help to see what I can do."
	}
	if robo.Contact != "" {
		s += " Contact: " + robo.Contact
	}
	return Result{Text: s}
}

var greetings = map[perm.Level]*pick.Dist[string]{
	perm.Superuser: pick.New([]pick.Case[string]{
		{E: "Greetings superuser", W: 10},
		{E: "Welcome back, superuser", W: 3},
	}),
	perm.Moderator: pick.New([]pick.Case[string]{
		{E: "Hello moderator", W: 10},
		{E: "Good to see you, moderator", W: 3},
	}),
	perm.User: pick.New([]pick.Case[string]{
		{E: "What's good", W: 10},
		{E: "Hey there", W: 5},
		{E: "Hi hi", W: 1},
	}),
}

// Greeting greets the invoker according to their level.
func Greeting(ctx context.Context, robo *Robot, call *Invocation) Result {
	d := greetings[call.Identity.Level]
	if d == nil {
		d = greetings[perm.User]
	}
	return Result{Text: d.Pick(rand.Uint32())}
}

// expensiveTime is how long Expensive works.
var expensiveTime = 5 * time.Second

// Expensive is a slow command. It only exists to occupy a dispatch task.
func Expensive(ctx context.Context, robo *Robot, call *Invocation) Result {
	if call.Identity.Level != perm.Superuser {
		return Result{Text: Denial(perm.Superuser, call.Name)}
	}
	select {
	case <-ctx.Done():
		return Result{}
	case <-time.After(expensiveTime):
	}
	return Result{Text: "Finished the expensive command."}
}
