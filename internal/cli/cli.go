// Package cli maps command-line arguments to csvtools operations.
//
// Commands register themselves at init time. Each one parses its own flags
// and positional arguments into an options struct, validates it, runs one
// operation and prints a short summary to stdout. Logs go to stderr.
//
// Exit codes: 0 success (including validations that found bad rows),
// 1 runtime failure, 2 usage error.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvtools/internal/config"
	"github.com/JonMunkholm/csvtools/internal/dynamo"
	"github.com/JonMunkholm/csvtools/internal/pgstage"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// Command groups, in help order.
const (
	GroupModel   = "Model-aware commands"
	GroupPlain   = "Plain CSV commands"
	GroupService = "Services"
	GroupInfo    = "Other"
)

var groupOrder = []string{GroupModel, GroupPlain, GroupService, GroupInfo}

// Command is one csvtools subcommand.
type Command struct {
	Name    string
	Args    string // synopsis after the name, e.g. "<in> <out> <model>"
	Summary string
	Group   string
	Run     func(ctx context.Context, env *Env, args []string) error
}

// Usage returns the one-line synopsis.
func (c Command) Usage() string {
	if c.Args == "" {
		return "csvtools " + c.Name
	}
	return "csvtools " + c.Name + " " + c.Args
}

var (
	commands   = make(map[string]Command)
	commandsMu sync.RWMutex
)

// Register adds a command. Panics if the name is taken.
func Register(c Command) {
	commandsMu.Lock()
	defer commandsMu.Unlock()

	if _, exists := commands[c.Name]; exists {
		panic(fmt.Sprintf("command already registered: %s", c.Name))
	}
	commands[c.Name] = c
}

// Lookup returns a command by name.
func Lookup(name string) (Command, bool) {
	commandsMu.RLock()
	defer commandsMu.RUnlock()

	c, ok := commands[name]
	return c, ok
}

// Commands returns every command sorted by group then name.
func Commands() []Command {
	commandsMu.RLock()
	defer commandsMu.RUnlock()

	rank := make(map[string]int, len(groupOrder))
	for i, g := range groupOrder {
		rank[g] = i
	}
	result := make([]Command, 0, len(commands))
	for _, c := range commands {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if rank[result[i].Group] != rank[result[j].Group] {
			return rank[result[i].Group] < rank[result[j].Group]
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Env is what commands run against.
type Env struct {
	Config *config.Config
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	RunID  uuid.UUID

	// DynamoClient and Postgres open the outer services. Tests replace them.
	DynamoClient func(ctx context.Context) (dynamo.BatchWriter, error)
	Postgres     func(ctx context.Context) (db pgstage.DBTX, release func(), err error)
}

// NewEnv returns an Env wired to the real AWS and PostgreSQL clients.
func NewEnv(cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger, runID uuid.UUID) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{
		Config: cfg,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
		RunID:  runID,
		DynamoClient: func(ctx context.Context) (dynamo.BatchWriter, error) {
			client, err := dynamo.NewClient(ctx, cfg.Dynamo)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Postgres: func(ctx context.Context) (pgstage.DBTX, func(), error) {
			if err := cfg.RequireDatabase(); err != nil {
				return nil, nil, err
			}
			pool, err := pgstage.Connect(ctx, cfg.Database)
			if err != nil {
				return nil, nil, err
			}
			return pool, pool.Close, nil
		},
	}
}

func (e *Env) printf(format string, args ...any) {
	fmt.Fprintf(e.Stdout, format, args...)
}

// Run executes args[0] with the remaining arguments and returns the exit code.
func Run(ctx context.Context, env *Env, args []string) int {
	if len(args) == 0 {
		printHelp(env.Stderr)
		return ExitUsage
	}

	name := args[0]
	switch name {
	case "-h", "-help", "--help":
		name = "help"
	case "-version", "--version":
		name = "version"
	}

	cmd, ok := Lookup(name)
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command %q\nRun \"csvtools help\" for the list of commands.\n", name)
		return ExitUsage
	}

	env.Logger.Debug("command started", "command", cmd.Name, "args", args[1:])
	return exitCode(env, cmd, cmd.Run(ctx, env, args[1:]))
}

func exitCode(env *Env, cmd Command, err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, flag.ErrHelp) {
		return ExitOK
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintf(env.Stderr, "error: %v\nusage: %s\n", usage.Err, cmd.Usage())
		return ExitUsage
	}

	msg := schema.MapError(err)
	env.Logger.Error("command failed", "command", cmd.Name, "error", err, "code", msg.Code)
	fmt.Fprintf(env.Stderr, "error: %v\n", err)
	if msg.Code != "ERR000" {
		fmt.Fprintf(env.Stderr, "%s (%s). %s\n", msg.Message, msg.Code, msg.Action)
	}
	return ExitFailure
}
