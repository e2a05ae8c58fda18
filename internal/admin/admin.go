// Package admin implements the authctl operator commands.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cardauth/internal/domain"
	"cardauth/internal/store"
)

// Deps opens resources lazily so commands that do not need a store never
// connect through gorm.
type Deps struct {
	OpenStore func(ctx context.Context) (*store.Store, error)
	Migrate   func(ctx context.Context) error
}

type UsageError struct {
	Program string
	Reason  string
}

func (u UsageError) Error() string {
	if u.Program == "" {
		u.Program = "authctl"
	}
	msg := fmt.Sprintf("Usage: %s <command> [options]", u.Program)
	if u.Reason != "" {
		msg = u.Reason + "\n" + msg
	}
	return msg
}

func (UsageError) UsageLines() []string {
	return []string{
		"Commands:",
		"  migrate                              Apply pending database migrations",
		"  invite-limit [n]                     Show or set the per-user invite code limit",
		"  unlimited-invites <email> on|off     Exempt a user from the invite code limit",
	}
}

// RunCLI dispatches one command. Results go to out, failures are also
// reported on stderr.
func RunCLI(ctx context.Context, prog string, args []string, deps Deps, out, stderr io.Writer) error {
	if len(args) < 1 {
		return UsageError{Program: prog}
	}
	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "migrate":
		err = runMigrate(ctx, rest, deps, out)
	case "invite-limit":
		err = runInviteLimit(ctx, rest, deps, out)
	case "unlimited-invites":
		err = runUnlimitedInvites(ctx, rest, deps, out)
	default:
		return UsageError{Program: prog, Reason: fmt.Sprintf("unknown command %q", cmd)}
	}
	var usage UsageError
	if errors.As(err, &usage) {
		usage.Program = prog
		return usage
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return err
}

func runMigrate(ctx context.Context, args []string, deps Deps, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return UsageError{Reason: "migrate takes no arguments"}
	}
	if err := deps.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "migrations applied")
	return nil
}

func runInviteLimit(ctx context.Context, args []string, deps Deps, out io.Writer) error {
	if len(args) > 1 {
		return UsageError{Reason: "invite-limit takes at most one argument"}
	}
	st, err := deps.OpenStore(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		n, err := st.Settings().GetInt(ctx, domain.SettingInviteLimit, domain.DefaultInviteLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "invite code limit: %d\n", n)
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n < 0 {
		return UsageError{Reason: fmt.Sprintf("invite limit must be a non-negative integer, got %q", args[0])}
	}
	if err := st.Settings().Set(ctx, domain.SettingInviteLimit, strconv.Itoa(n)); err != nil {
		return err
	}
	fmt.Fprintf(out, "invite code limit set to %d\n", n)
	return nil
}

func runUnlimitedInvites(ctx context.Context, args []string, deps Deps, out io.Writer) error {
	if len(args) != 2 {
		return UsageError{Reason: "unlimited-invites needs <email> and on|off"}
	}
	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "yes":
		on = true
	case "off", "false", "no":
	default:
		return UsageError{Reason: fmt.Sprintf("expected on or off, got %q", args[1])}
	}

	st, err := deps.OpenStore(ctx)
	if err != nil {
		return err
	}
	email := domain.NormalizeEmail(args[0])
	u, err := st.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return err
	}
	if err := st.Users().SetUnlimitedInvites(ctx, u.ID, on); err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(out, "unlimited invites %s for %s\n", state, email)
	return nil
}
