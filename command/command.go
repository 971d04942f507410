// Package command implements chat commands: the registry binding stored
// command definitions to behaviors, the dispatcher, and the behaviors.
package command

import (
	"context"

	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/store"
)

// Invocation is a command invocation. An Invocation and its fields must not
// be modified or retained by any command.
type Invocation struct {
	// Message is the message which triggered the invocation. It is always
	// non-nil, but not all fields are guaranteed to be populated.
	Message *message.Received
	// Identity is the invoker.
	Identity store.Identity
	// Name is the command name as invoked.
	Name string
	// Args is the whitespace-separated arguments after the command name.
	Args []string
}

// Arg returns the i'th argument, or the empty string if there are not that
// many.
func (call *Invocation) Arg(i int) string {
	if i < 0 || i >= len(call.Args) {
		return ""
	}
	return call.Args[i]
}

// Result is the outcome of a command.
type Result struct {
	// Text is the response. Empty text means to send nothing.
	Text string
	// Questionable marks text containing unmoderated user-supplied content.
	// It must be screened before it is sent.
	Questionable bool
}

// Func executes a command. Commands never fail; errors become response text.
type Func func(ctx context.Context, robo *Robot, call *Invocation) Result
