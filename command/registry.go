package command

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bleusakura/borrowbot/perm"
	"github.com/bleusakura/borrowbot/store"
)

// Spec describes a command.
type Spec struct {
	Name        string
	Description string
	Level       perm.Level
	Cooldown    time.Duration
}

// Entry is a command bound to its behavior.
type Entry struct {
	Spec
	Func Func
}

// Registry maps command names to commands. It is read-only once built.
type Registry struct {
	m     map[string]*Entry
	specs []Spec
}

// NewRegistry binds each stored command to the behavior of the same name in
// funcs. Stored commands naming no behavior are logged and skipped.
func NewRegistry(ctx context.Context, log *slog.Logger, rows []store.Command, funcs map[string]Func) *Registry {
	r := Registry{m: make(map[string]*Entry, len(rows))}
	for _, row := range rows {
		f := funcs[row.Name]
		if f == nil {
			log.WarnContext(ctx, "stored command has no behavior", slog.String("name", row.Name))
			continue
		}
		e := &Entry{
			Spec: Spec{
				Name:        row.Name,
				Description: row.Description,
				Level:       row.Level,
				Cooldown:    row.Cooldown,
			},
			Func: f,
		}
		r.m[row.Name] = e
		r.specs = append(r.specs, e.Spec)
	}
	slices.SortFunc(r.specs, func(a, b Spec) int { return strings.Compare(a.Name, b.Name) })
	return &r
}

// Lookup finds a command by exact name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.m[name]
	return e, ok
}

// All returns every registered command sorted by name.
// The result must not be modified.
func (r *Registry) All() []Spec {
	return r.specs
}

// Builtins is every command behavior, by the names they are stored under.
// Aliases are separate names bound to the same behavior.
var Builtins = map[string]Func{
	"help":           Help,
	"ping":           Ping,
	"about":          About,
	"bot":            About,
	"greeting":       Greeting,
	"expensive":      Expensive,
	"setpermissions": SetPermissions,
	"join":           Join,
	"leave":          Leave,
	"uid":            UID,
	"say":            Say,
	"lastmessage":    LastMessage,
	"lm":             LastMessage,
	"randomline":     RandomLine,
	"rl":             RandomLine,
	"optout":         OptOut,
	"optin":          OptIn,
}

// Defaults is the command catalog installed into a new store.
var Defaults = []store.Command{
	{Name: "help", Description: "Lists commands, or describes one: help [command]", Level: perm.User, Cooldown: 5 * time.Second},
	{Name: "ping", Description: "Reports how long I've been running.", Level: perm.User, Cooldown: 5 * time.Second},
	{Name: "about", Description: "Tells you about me.", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "bot", Description: "Tells you about me.", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "greeting", Description: "Says hello according to your permissions.", Level: perm.User, Cooldown: 5 * time.Second},
	{Name: "expensive", Description: "Runs a slow command.", Level: perm.Superuser},
	{Name: "setpermissions", Description: "Sets a user's permission level: setpermissions <user> <0|1|2>", Level: perm.Superuser},
	{Name: "join", Description: "Joins a channel: join <channel>", Level: perm.Superuser},
	{Name: "leave", Description: "Leaves a channel: leave <channel>", Level: perm.Superuser},
	{Name: "uid", Description: "Gets a user's ID: uid [user]", Level: perm.User, Cooldown: 5 * time.Second},
	{Name: "say", Description: "Repeats what you say: say <text>", Level: perm.Moderator, Cooldown: 5 * time.Second},
	{Name: "lastmessage", Description: "Shows a user's last message in a channel: lastmessage [user] [channel]", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "lm", Description: "Alias for lastmessage.", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "randomline", Description: "Shows a random message in a channel, optionally from one user: randomline [user] [channel]", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "rl", Description: "Alias for randomline.", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "optout", Description: "Stops me from logging your messages and deletes your history.", Level: perm.User, Cooldown: 10 * time.Second},
	{Name: "optin", Description: "Lets me log your messages again.", Level: perm.User, Cooldown: 10 * time.Second},
}
