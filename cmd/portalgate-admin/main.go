package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/medportal/portalgate/config"
	"github.com/medportal/portalgate/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader

	// Openers are swapped out in tests; the defaults connect to the configured infrastructure.
	openSessions func(*commandContext) (sessionAdmin, func() error, error)
	openProfiles func(*commandContext) (profileAdmin, func() error, error)
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger("info")

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := newCommandContext(context.Background(), logger, cfg)
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newCommandContext(ctx context.Context, logger *slog.Logger, cfg config.AppConfig) *commandContext {
	return &commandContext{
		Ctx:          ctx,
		Logger:       logger,
		Config:       cfg,
		Out:          os.Stdout,
		In:           os.Stdin,
		openSessions: openRedisSessions,
		openProfiles: openDBProfiles,
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run profile database migrations",
			run:         runMigrations,
		},
		"registry": {
			name:        "registry",
			description: "Print the portal registry for an environment",
			run:         runRegistry,
		},
		"access-check": {
			name:        "access-check",
			description: "Show the access decision a portal would make for a session and path",
			run:         runAccessCheck,
		},
		"sessions-list": {
			name:        "sessions-list",
			description: "List session IDs stored in Redis",
			run:         runSessionsList,
		},
		"session-show": {
			name:        "session-show",
			description: "Print a stored session",
			run:         runSessionShow,
		},
		"session-revoke": {
			name:        "session-revoke",
			description: "Delete a stored session, signing the user out of every portal",
			run:         runSessionRevoke,
		},
		"profile-set-role": {
			name:        "profile-set-role",
			description: "Store or clear a user's onboarding role",
			run:         runProfileSetRole,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: portalgate-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := cmds[name]
		if err := writef(w, "  %-24s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}
