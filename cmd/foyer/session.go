package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foyerhq/foyer/internal/bootstrap"
	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
)

func runLogout(cmdCtx *commandContext, _ []string) error {
	return withFacade(cmdCtx, defaultCommandTimeout, nil, func(ctx context.Context, facade *bootstrap.Facade) error {
		if initErr := facade.Auth.Initialize(ctx); initErr != nil {
			return fmt.Errorf("initialize auth: %w", initErr)
		}

		if err := facade.Auth.SignOut(ctx); err != nil {
			return err
		}
		return writeln(cmdCtx.Out, "Signed out.")
	})
}

// runStatus reads the stored snapshot directly, so it reports the last-known
// session without initializing or contacting the identity provider.
func runStatus(cmdCtx *commandContext, _ []string) error {
	return withFacade(cmdCtx, defaultCommandTimeout, nil, func(ctx context.Context, facade *bootstrap.Facade) error {
		stored, err := facade.Auth.GetStoredSession(ctx)
		if err != nil {
			return fmt.Errorf("read stored session: %w", err)
		}
		if stored == nil {
			return writeln(cmdCtx.Out, "No stored session.")
		}
		return printIdentity(cmdCtx.Out, stored)
	})
}

func runWatch(cmdCtx *commandContext, _ []string) error {
	return withFacade(cmdCtx, 0, nil, func(ctx context.Context, facade *bootstrap.Facade) error {
		// Subscribe before Initialize so the initial state is not missed.
		events, unsub := facade.Auth.Subscribe()

		if initErr := facade.Auth.Initialize(ctx); initErr != nil {
			unsub()
			return fmt.Errorf("initialize auth: %w", initErr)
		}

		if err := writeln(cmdCtx.Out, "Watching authentication state. Press Ctrl+C to stop."); err != nil {
			unsub()
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			<-gctx.Done()
			unsub()
			return nil
		})
		g.Go(func() error {
			for change := range events {
				if err := printStateChange(cmdCtx.Out, change); err != nil {
					return err
				}
			}
			return nil
		})
		return g.Wait()
	})
}

func printStateChange(w io.Writer, change domainauth.StateChange) error {
	stamp := time.Now().Format(time.RFC3339)
	if !change.Authenticated || change.Identity == nil {
		return writef(w, "%s  signed out\n", stamp)
	}

	who := change.Identity.Email
	if who == "" {
		who = change.Identity.UID
	}
	if change.Identity.IsGuest {
		return writef(w, "%s  signed in as guest %s\n", stamp, who)
	}
	return writef(w, "%s  signed in as %s\n", stamp, who)
}
