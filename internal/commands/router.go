package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palacebot_commands_total",
		Help: "Chat commands processed, labeled by command and outcome",
	}, []string{"command", "outcome"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "palacebot_command_duration_seconds",
		Help:    "Latency distribution of chat command handling",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"command"})
)

// Handler executes one command. args are the whitespace-separated tokens
// after the command name.
type Handler func(ctx context.Context, msg Message, args []string) (Reply, error)

// Command describes a chat command. Mutates marks commands that change
// stored state.
type Command struct {
	Name    string
	Usage   string
	Summary string
	Mutates bool
	Handler Handler
}

// Observer is notified after a command succeeds.
type Observer func(cmd Command, msg Message)

// Router dispatches chat messages to registered commands.
type Router struct {
	logger    *slog.Logger
	commands  map[string]Command
	observers []Observer
}

// NewRouter creates a router with the built-in help command.
func NewRouter(logger *slog.Logger) *Router {
	r := &Router{logger: logger, commands: make(map[string]Command)}
	r.Register(Command{
		Name:    "help",
		Usage:   "help",
		Summary: "List available commands",
		Handler: r.help,
	})
	return r
}

// Register adds commands, replacing any with the same name.
func (r *Router) Register(cmds ...Command) {
	for _, c := range cmds {
		r.commands[c.Name] = c
	}
}

// Observe registers fn to run after every successful command. Observers
// must be registered before the router is shared between goroutines.
func (r *Router) Observe(fn Observer) {
	r.observers = append(r.observers, fn)
}

// Commands returns the registered commands sorted by name.
func (r *Router) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch parses "/name arg..." from msg.Text (the slash is optional)
// and runs the command.
func (r *Router) Dispatch(ctx context.Context, msg Message) Reply {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return errorReply(apperr.New(apperr.ErrInvalidArguments, "empty command, try help"))
	}
	name := strings.TrimPrefix(fields[0], "/")
	return r.Execute(ctx, name, fields[1:], msg)
}

// Execute runs the named command with pre-split arguments.
func (r *Router) Execute(ctx context.Context, name string, args []string, msg Message) Reply {
	cmd, ok := r.commands[name]
	if !ok {
		commandsTotal.WithLabelValues("unknown", "not_found").Inc()
		return errorReply(apperr.New(apperr.ErrNotFound, "unknown command %q, try help", name))
	}

	timer := prometheus.NewTimer(commandDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	reply, err := cmd.Handler(ctx, msg, args)
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			r.logger.Error("command failed",
				slog.String("command", name),
				slog.String("group", msg.GroupID),
				slog.String("error", err.Error()))
			commandsTotal.WithLabelValues(name, "internal").Inc()
			return Reply{Text: "Something went wrong, please try again later.", Err: err}
		}
		r.logger.Debug("command rejected",
			slog.String("command", name),
			slog.String("code", apperr.Code(err)),
			slog.String("reason", appErr.Msg))
		commandsTotal.WithLabelValues(name, apperr.Code(err)).Inc()
		return errorReply(err)
	}
	commandsTotal.WithLabelValues(name, "ok").Inc()
	for _, fn := range r.observers {
		fn(cmd, msg)
	}
	return reply
}

func (r *Router) help(_ context.Context, _ Message, _ []string) (Reply, error) {
	lines := []string{"Available commands:"}
	for _, c := range r.Commands() {
		lines = append(lines, fmt.Sprintf("/%s - %s", c.Usage, c.Summary))
	}
	return Reply{Text: strings.Join(lines, "\n")}, nil
}

func errorReply(err error) Reply {
	return Reply{Text: err.Error(), Err: err}
}

func usage(u string) error {
	return apperr.New(apperr.ErrInvalidArguments, "usage: /%s", u)
}
