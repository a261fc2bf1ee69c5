package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/medportal/portalgate/internal/bootstrap"
	"github.com/medportal/portalgate/internal/domain/access"
)

type registryOptions struct {
	Env access.Environment
}

func runRegistry(cmdCtx *commandContext, args []string) error {
	opts, err := parseRegistryFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	reg, err := bootstrap.BuildRegistry(&cmdCtx.Config, nil, nil)
	if err != nil {
		return err
	}

	if err := writef(cmdCtx.Out, "Environment: %s\nBase domain: %s\n\n", opts.Env, reg.BaseDomain()); err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Portal\tRole\tDev port\tURL"); err != nil {
		return fmt.Errorf("write registry header: %w", err)
	}
	for _, p := range reg.Portals() {
		u, urlErr := reg.PortalURL(p.ID, opts.Env)
		if urlErr != nil {
			return urlErr
		}
		if err := writef(w, "%s\t%s\t%d\t%s\n", p.ID, p.ExpectedRole, p.DevPort, u); err != nil {
			return fmt.Errorf("write registry row %q: %w", p.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush registry table: %w", err)
	}
	return nil
}

func parseRegistryFlags(cmdCtx *commandContext, args []string) (registryOptions, error) {
	fs := flag.NewFlagSet("registry", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := registryOptions{Env: cmdCtx.Config.Environment()}
	fs.TextVar(&opts.Env, "env", opts.Env, "Environment to resolve URLs for (development|production)")

	if err := fs.Parse(args); err != nil {
		return registryOptions{}, err
	}
	return opts, nil
}

type accessCheckOptions struct {
	Env       access.Environment
	Portal    access.PortalID
	Path      string
	SessionID string
}

// runAccessCheck evaluates the decision a portal would make, using a stored session when given.
func runAccessCheck(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccessCheckFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	reg, err := bootstrap.BuildRegistry(&cmdCtx.Config, nil, nil)
	if err != nil {
		return err
	}
	portal, ok := reg.Portal(opts.Portal)
	if !ok {
		return fmt.Errorf("%w: %q", access.ErrPortalNotRegistered, opts.Portal)
	}

	snapshot := access.Anonymous()
	if opts.SessionID != "" {
		snapshot, err = loadSnapshot(cmdCtx, opts.SessionID)
		if err != nil {
			return err
		}
	}

	base, err := reg.PortalURL(portal.ID, opts.Env)
	if err != nil {
		return err
	}
	path, rawQuery, _ := strings.Cut(opts.Path, "?")
	requestURL, err := access.RequestURL(base, path, rawQuery)
	if err != nil {
		return err
	}

	decision := access.NewDecider(reg, opts.Env).Decide(snapshot, portal.ExpectedRole, path, requestURL)

	if err := writef(cmdCtx.Out, "Portal:   %s (expects %s)\n", portal.ID, portal.ExpectedRole); err != nil {
		return err
	}
	if err := writef(cmdCtx.Out, "Request:  %s\n", requestURL); err != nil {
		return err
	}
	if err := writef(cmdCtx.Out, "Session:  %s\n", describeSnapshot(snapshot)); err != nil {
		return err
	}
	return writef(cmdCtx.Out, "Decision: %s\n", decision)
}

func loadSnapshot(cmdCtx *commandContext, id string) (access.Session, error) {
	store, closeFn, err := cmdCtx.openSessions(cmdCtx)
	if err != nil {
		return access.Session{}, err
	}
	defer closeWith(cmdCtx, closeFn, "session store")

	rec, err := store.Get(cmdCtx.Ctx, id)
	if err != nil {
		return access.Session{}, fmt.Errorf("load session: %w", err)
	}
	if !rec.ExpiresAt.IsZero() && !time.Now().Before(rec.ExpiresAt) {
		return access.Anonymous(), nil
	}
	return access.FromRecord(rec), nil
}

func describeSnapshot(s access.Session) string {
	switch {
	case !s.Authenticated:
		return "anonymous"
	case s.PendingRoleSelection || s.Role == "":
		return fmt.Sprintf("user %s, role selection pending", s.UserID)
	default:
		return fmt.Sprintf("user %s, role %s", s.UserID, s.Role)
	}
}

func parseAccessCheckFlags(cmdCtx *commandContext, args []string) (accessCheckOptions, error) {
	fs := flag.NewFlagSet("access-check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := accessCheckOptions{Env: cmdCtx.Config.Environment()}
	var portal string
	fs.TextVar(&opts.Env, "env", opts.Env, "Environment to resolve URLs for (development|production)")
	fs.StringVar(&portal, "portal", "", "Portal receiving the request (web|patients|doctors|companies)")
	fs.StringVar(&opts.Path, "path", "/", "Requested path, optionally with a query string")
	fs.StringVar(&opts.SessionID, "session-id", "", "Stored session to evaluate; omit for an anonymous request")

	if err := fs.Parse(args); err != nil {
		return accessCheckOptions{}, err
	}
	if portal == "" {
		return accessCheckOptions{}, errors.New("--portal is required")
	}
	opts.Portal = access.PortalID(strings.ToLower(strings.TrimSpace(portal)))
	return opts, nil
}
