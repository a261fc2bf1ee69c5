package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

type profileSetRoleOptions struct {
	UserID string
	Role   string
}

// runProfileSetRole stores a user's onboarding role. Sessions already issued keep their role
// until the user signs in again.
func runProfileSetRole(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("profile-set-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	opts := profileSetRoleOptions{}
	fs.StringVar(&opts.UserID, "user", "", "IdP user ID")
	fs.StringVar(&opts.Role, "role", "", "patient|doctor|company_admin|platform_admin, or none to clear")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.UserID == "" || opts.Role == "" {
		return errors.New("--user and --role are required")
	}
	role, clearRole, err := roleOrNone(opts.Role)
	if err != nil {
		return err
	}

	profiles, closeFn, err := cmdCtx.openProfiles(cmdCtx)
	if err != nil {
		return err
	}
	defer closeWith(cmdCtx, closeFn, "profile store")

	if clearRole {
		if err := profiles.ClearRole(cmdCtx.Ctx, opts.UserID); err != nil {
			return fmt.Errorf("clear role: %w", err)
		}
		return writef(cmdCtx.Out, "Cleared role for %s; next login goes through role selection\n", opts.UserID)
	}

	if err := profiles.SetRole(cmdCtx.Ctx, opts.UserID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return writef(cmdCtx.Out, "Stored role %s for %s\n", role, opts.UserID)
}
