package command

import (
	"context"
	"strings"
)

// Help lists all commands, or describes one.
//   - Args[0]: optional command name.
func Help(ctx context.Context, robo *Robot, call *Invocation) Result {
	if name := call.Arg(0); name != "" {
		e, ok := robo.Registry.Lookup(name)
		if !ok {
			return Result{Text: "I don't have a command named " + name + "."}
		}
		return Result{Text: e.Name + ": " + e.Description}
	}
	specs := robo.Registry.All()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return Result{Text: "Commands: " + strings.Join(names, ", ")}
}
