package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/foyerhq/foyer/config"
	"github.com/foyerhq/foyer/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

// commandContext carries everything a command needs. Out is the destination
// for user-facing output; logs go through Logger.
type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "print usage failed:", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			fmt.Fprintln(os.Stderr, "print unknown command message failed:", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, "print usage failed:", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		bootstrap.InitLogger(false).Error("load config failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.IsDev)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with an email and password",
			run:         runLogin,
		},
		"signup": {
			name:        "signup",
			description: "Create an account and sign in",
			run:         runSignup,
		},
		"sso": {
			name:        "sso",
			description: "Sign in through the federated identity provider",
			run:         runSSO,
		},
		"guest": {
			name:        "guest",
			description: "Sign in as an anonymous guest",
			run:         runGuest,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and clear the stored session",
			run:         runLogout,
		},
		"status": {
			name:        "status",
			description: "Show the stored session without contacting the provider",
			run:         runStatus,
		},
		"watch": {
			name:        "watch",
			description: "Stream authentication state changes until interrupted",
			run:         runWatch,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: foyer <command> [flags]\n\n"); err != nil {
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
		if err := writef(w, "  %-10s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
