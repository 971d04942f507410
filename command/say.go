package command

import (
	"context"
	"strings"
)

// Say repeats its arguments.
func Say(ctx context.Context, robo *Robot, call *Invocation) Result {
	if len(call.Args) == 0 {
		return Result{Text: "Please give me something to say!"}
	}
	return Result{Text: strings.Join(call.Args, " "), Questionable: true}
}
