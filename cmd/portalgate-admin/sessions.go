package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

type sessionsListOptions struct {
	Limit int
}

func runSessionsList(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("sessions-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	opts := sessionsListOptions{}
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum number of session IDs to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.Limit <= 0 {
		return errors.New("--limit must be greater than zero")
	}

	store, closeFn, err := cmdCtx.openSessions(cmdCtx)
	if err != nil {
		return err
	}
	defer closeWith(cmdCtx, closeFn, "session store")

	ids, err := store.List(cmdCtx.Ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, id := range ids {
		if err := writeln(cmdCtx.Out, id); err != nil {
			return err
		}
	}
	return writef(cmdCtx.Out, "%d session(s)\n", len(ids))
}

type sessionShowOptions struct {
	ID      string
	RawJSON bool
}

func runSessionShow(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("session-show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	opts := sessionShowOptions{}
	fs.StringVar(&opts.ID, "id", "", "Session ID (the session_id cookie value)")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print the stored record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.ID == "" {
		return errors.New("--id is required")
	}

	store, closeFn, err := cmdCtx.openSessions(cmdCtx)
	if err != nil {
		return err
	}
	defer closeWith(cmdCtx, closeFn, "session store")

	sess, err := store.Get(cmdCtx.Ctx, opts.ID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	if opts.RawJSON {
		enc := json.NewEncoder(cmdCtx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	role := sess.Role.String()
	if sess.NeedsRoleSelection() {
		role = "(pending role selection)"
	}
	lines := []struct{ label, value string }{
		{"ID", sess.ID},
		{"User", sess.UserID},
		{"Name", sess.FirstName + " " + sess.LastName},
		{"Email", sess.Email},
		{"Role", role},
		{"Expires", sess.ExpiresAt.UTC().Format(time.RFC3339)},
	}
	for _, l := range lines {
		if err := writef(cmdCtx.Out, "%-8s %s\n", l.label+":", l.value); err != nil {
			return err
		}
	}
	return nil
}

type sessionRevokeOptions struct {
	ID  string
	Yes bool
}

func runSessionRevoke(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("session-revoke", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	opts := sessionRevokeOptions{}
	fs.StringVar(&opts.ID, "id", "", "Session ID to delete")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.ID == "" {
		return errors.New("--id is required")
	}

	if err := confirmAction(cmdCtx.In, cmdCtx.Out, opts.Yes, fmt.Sprintf("revoke session %q", opts.ID)); err != nil {
		return err
	}

	store, closeFn, err := cmdCtx.openSessions(cmdCtx)
	if err != nil {
		return err
	}
	defer closeWith(cmdCtx, closeFn, "session store")

	if err := store.Delete(cmdCtx.Ctx, opts.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	cmdCtx.Logger.Info("session revoked", "session_id", opts.ID)
	return writef(cmdCtx.Out, "Session %s revoked\n", opts.ID)
}
