package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bleusakura/borrowbot/cooldown"
	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/metrics"
	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store"
)

// Outcome is how a dispatch ended.
type Outcome int

const (
	// Ignored means the message wasn't a command.
	Ignored Outcome = iota
	// Unknown means the command name isn't registered.
	Unknown
	// Forbidden means the invoker's level is too low.
	Forbidden
	// OnCooldown means the invoker used the command too recently.
	OnCooldown
	// Invoked means the command ran.
	Invoked
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Unknown:
		return "unknown"
	case Forbidden:
		return "forbidden"
	case OnCooldown:
		return "cooldown"
	case Invoked:
		return "invoked"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Parse splits a command message into the command name and its arguments.
// The message must start with prefix. The name keeps its case.
func Parse(prefix, text string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	f := strings.Fields(text)
	if len(f) == 0 {
		return "", nil, false
	}
	return strings.TrimPrefix(f[0], prefix), f[1:], true
}

// Denial is the reply to an invoker whose level is too low for a command.
func Denial(level perm.Level, name string) string {
	return fmt.Sprintf("You need %s permissions to use %s!", level, name)
}

// Dispatcher routes command messages to commands.
type Dispatcher struct {
	// Prefix marks a message as a command.
	Prefix string
	// Cooldowns is the shared cooldown state.
	Cooldowns *cooldown.Tracker
	// Metrics records dispatch outcomes. May be nil.
	Metrics *metrics.Metrics
}

// Dispatch runs the command in msg on behalf of id, if there is one.
// Permission is checked before cooldown, and cooldown before invocation.
// Once the command completes, the invoker is on cooldown for it unless they
// are a superuser. Superusers are never on cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, robo *Robot, msg *message.Received, id store.Identity) (Result, Outcome) {
	name, args, ok := Parse(d.Prefix, msg.Text)
	if !ok {
		return Result{}, Ignored
	}
	e, ok := robo.Registry.Lookup(name)
	if !ok {
		d.observe(name, Unknown)
		return Result{}, Unknown
	}
	log := robo.Log.With(slog.String("command", name), slog.Int64("user", id.ID))
	if !perm.Satisfies(id.Level, e.Level) {
		log.InfoContext(ctx, "forbidden", slog.String("held", id.Level.String()), slog.String("required", e.Level.String()))
		d.observe(name, Forbidden)
		return Result{Text: Denial(e.Level, name)}, Forbidden
	}
	super := id.Level == perm.Superuser
	// Reserve so concurrent dispatches admit one. The window itself starts
	// when the command completes.
	if !super && !d.Cooldowns.Reserve(id.ID, name, e.Cooldown) {
		log.DebugContext(ctx, "on cooldown")
		d.observe(name, OnCooldown)
		return Result{}, OnCooldown
	}
	log.InfoContext(ctx, "command", slog.Any("args", args))
	call := Invocation{
		Message:  msg,
		Identity: id,
		Name:     name,
		Args:     args,
	}
	start := time.Now()
	r := e.Func(ctx, robo, &call)
	if !super {
		d.Cooldowns.Start(id.ID, name, e.Cooldown)
	}
	d.observe(name, Invoked)
	if d.Metrics != nil {
		d.Metrics.DispatchLatency.Observe(time.Since(start).Seconds(), name)
	}
	return r, Invoked
}

func (d *Dispatcher) observe(name string, o Outcome) {
	if d.Metrics == nil {
		return
	}
	if o == Unknown {
		// Don't let arbitrary chat text become label values.
		name = ""
	}
	d.Metrics.CommandCount.Observe(1, name, o.String())
}
