package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/foyerhq/foyer/internal/bootstrap"
	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	"github.com/foyerhq/foyer/internal/syncclient"
	"github.com/foyerhq/foyer/internal/util"
)

const (
	defaultCommandTimeout = 30 * time.Second

	// ssoCommandTimeout leaves room for the user to complete the consent
	// screen in their browser.
	ssoCommandTimeout = 5 * time.Minute
)

type loginOptions struct {
	Email    string
	Password string
}

type signupOptions struct {
	Email       string
	Password    string
	DisplayName string
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}

	return withFacade(cmdCtx, defaultCommandTimeout, nil, func(ctx context.Context, facade *bootstrap.Facade) error {
		if initErr := facade.Auth.Initialize(ctx); initErr != nil {
			return fmt.Errorf("initialize auth: %w", initErr)
		}

		identity, signInErr := facade.Auth.SignInWithPassword(ctx, opts.Email, opts.Password)
		if signInErr != nil {
			return signInErr
		}

		if printErr := printIdentity(cmdCtx.Out, identity); printErr != nil {
			return printErr
		}
		notifySync(ctx, cmdCtx, identity, "password")
		return nil
	})
}

func runSignup(cmdCtx *commandContext, args []string) error {
	opts, err := parseSignupFlags(args)
	if err != nil {
		return err
	}

	return withFacade(cmdCtx, defaultCommandTimeout, nil, func(ctx context.Context, facade *bootstrap.Facade) error {
		if initErr := facade.Auth.Initialize(ctx); initErr != nil {
			return fmt.Errorf("initialize auth: %w", initErr)
		}

		identity, signUpErr := facade.Auth.SignUpWithPassword(ctx, opts.Email, opts.Password, opts.DisplayName)
		if signUpErr != nil {
			return signUpErr
		}

		if printErr := printIdentity(cmdCtx.Out, identity); printErr != nil {
			return printErr
		}
		notifySync(ctx, cmdCtx, identity, "signup")
		return nil
	})
}

func runSSO(cmdCtx *commandContext, _ []string) error {
	return withFacade(cmdCtx, ssoCommandTimeout, browserOpener(cmdCtx.Out), func(ctx context.Context, facade *bootstrap.Facade) error {
		if initErr := facade.Auth.Initialize(ctx); initErr != nil {
			return fmt.Errorf("initialize auth: %w", initErr)
		}

		identity, signInErr := facade.Auth.SignInWithFederatedProvider(ctx)
		if signInErr != nil {
			return signInErr
		}

		if printErr := printIdentity(cmdCtx.Out, identity); printErr != nil {
			return printErr
		}
		notifySync(ctx, cmdCtx, identity, "federated")
		return nil
	})
}

func runGuest(cmdCtx *commandContext, _ []string) error {
	return withFacade(cmdCtx, defaultCommandTimeout, nil, func(ctx context.Context, facade *bootstrap.Facade) error {
		if initErr := facade.Auth.Initialize(ctx); initErr != nil {
			return fmt.Errorf("initialize auth: %w", initErr)
		}

		identity, signInErr := facade.Auth.SignInAsGuest(ctx)
		if signInErr != nil {
			return signInErr
		}

		if printErr := printIdentity(cmdCtx.Out, identity); printErr != nil {
			return printErr
		}
		notifySync(ctx, cmdCtx, identity, "guest")
		return nil
	})
}

func parseLoginFlags(args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Password, "password", "", "Account password (prompted when omitted)")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return loginOptions{}, errors.New("--email is required")
	}
	if opts.Password == "" {
		password, err := promptLine("Password: ")
		if err != nil {
			return loginOptions{}, err
		}
		opts.Password = password
	}

	return opts, nil
}

func parseSignupFlags(args []string) (signupOptions, error) {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts signupOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Password, "password", "", "Account password (prompted when omitted)")
	fs.StringVar(&opts.DisplayName, "name", "", "Display name shown to other users")

	if err := fs.Parse(args); err != nil {
		return signupOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return signupOptions{}, errors.New("--email is required")
	}
	if opts.Password == "" {
		password, err := promptLine("Password: ")
		if err != nil {
			return signupOptions{}, err
		}
		opts.Password = password
	}

	return opts, nil
}

// withFacade builds the auth façade from configuration, runs f against it,
// and tears it down. A zero timeout means the command runs until interrupted.
func withFacade(
	cmdCtx *commandContext,
	timeout time.Duration,
	openBrowser func(url string) error,
	f func(context.Context, *bootstrap.Facade) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	facade, err := bootstrap.BuildAuthFacade(bootstrap.FacadeConfig{
		App:         cmdCtx.Config,
		Logger:      cmdCtx.Logger,
		OpenBrowser: openBrowser,
	})
	if err != nil {
		return err
	}
	defer facade.Close()

	return f(ctx, facade)
}

// browserOpener hands the consent URL to the user instead of shelling out to
// a platform-specific opener.
func browserOpener(out io.Writer) func(url string) error {
	return func(url string) error {
		return writef(out, "Open this URL in your browser to continue sign-in:\n\n  %s\n\n", url)
	}
}

func promptLine(prompt string) (string, error) {
	if err := writef(os.Stderr, "%s", prompt); err != nil {
		return "", fmt.Errorf("print prompt: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty input")
	}
	return line, nil
}

func printIdentity(w io.Writer, identity *domainauth.Identity) error {
	if identity == nil {
		return writeln(w, "No active session.")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "UID\t%s\n", identity.UID); err != nil {
		return fmt.Errorf("write uid: %w", err)
	}
	if identity.Email != "" {
		if err := writef(tw, "Email\t%s\n", identity.Email); err != nil {
			return fmt.Errorf("write email: %w", err)
		}
	}
	if identity.DisplayName != "" {
		if err := writef(tw, "Name\t%s\n", identity.DisplayName); err != nil {
			return fmt.Errorf("write name: %w", err)
		}
	}
	if identity.IsGuest {
		if err := writef(tw, "Guest\tyes\n"); err != nil {
			return fmt.Errorf("write guest: %w", err)
		}
	} else {
		if err := writef(tw, "Email verified\t%t\n", identity.EmailVerified); err != nil {
			return fmt.Errorf("write email verified: %w", err)
		}
	}
	if !identity.LoginAt.IsZero() {
		stamp := identity.LoginAt.Format(time.RFC3339)
		if age := util.FormatSessionAge(identity.LoginAt, time.Now()); age != "—" {
			stamp += " (" + age + " ago)"
		}
		if err := writef(tw, "Signed in\t%s\n", stamp); err != nil {
			return fmt.Errorf("write signed in: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush identity table: %w", err)
	}
	return nil
}

// notifySync forwards the sign-in to the configured backend. Delivery is
// best effort and never fails the command.
func notifySync(ctx context.Context, cmdCtx *commandContext, identity *domainauth.Identity, method string) {
	if identity == nil || !cmdCtx.Config.Sync.IsEnabled() {
		return
	}

	client, err := syncclient.NewClient(syncclient.Config{
		EndpointURL: cmdCtx.Config.Sync.EndpointURL,
		Timeout:     cmdCtx.Config.Sync.Timeout,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		cmdCtx.Logger.Warn("build sync client", "error", err)
		return
	}
	client.NotifySignedIn(ctx, *identity, method)
}
