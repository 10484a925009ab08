package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jrsteele09/notes-auth-client/account"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/spf13/cobra"
)

var (
	newUsername string
	newPassword string
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect and change the signed-in account",
}

func (a *app) mutator(ctx context.Context) (*account.Mutator, error) {
	m, err := account.NewMutator(a.provider, a.store, a.cache, account.WithNotifier(a.notifier))
	if err != nil {
		return nil, err
	}
	if _, err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *app) printRecord(rec account.Record) {
	a.printf("ID:                  %d\n", rec.ID)
	a.printf("Username:            %s\n", rec.Username)
	a.printf("Email:               %s\n", rec.Email)
	a.printf("Roles:               %s\n", strings.Join(rec.Roles, ", "))
	a.printf("Two-factor:          %t\n", rec.TwoFactorEnabled)
	a.printf("Account expired:     %t\n", rec.AccountExpired)
	a.printf("Account locked:      %t\n", rec.AccountLocked)
	a.printf("Account enabled:     %t\n", rec.Enabled)
	a.printf("Credentials expired: %t\n", rec.CredentialsExpired)
	if !rec.AccountExpiryDate.IsZero() {
		a.printf("Account expires:     %s\n", rec.AccountExpiryDate.Format("2006-01-02"))
	}
	if !rec.CredentialsExpiryDate.IsZero() {
		a.printf("Credentials expire:  %s\n", rec.CredentialsExpiryDate.Format("2006-01-02"))
	}
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the account",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		m, err := a.mutator(ctx)
		if err != nil {
			return err
		}
		rec, _ := m.Cache().Get()
		a.printRecord(rec)
		return nil
	}),
}

var accountUpdateCredentialsCmd = &cobra.Command{
	Use:   "update-credentials",
	Short: "Change the username and, optionally, the password",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if err := validate.Struct(validate.CredentialsForm{Username: newUsername, Password: newPassword}); err != nil {
			return err
		}
		m, err := a.mutator(ctx)
		if err != nil {
			return err
		}
		if err := m.UpdateCredentials(ctx, newUsername, newPassword); err != nil {
			return err
		}
		a.printf("Credentials updated. Sign in again to refresh the session identity.\n")
		return nil
	}),
}

// flagCommand builds the set-* command for one status toggle.
func flagCommand(use, short string, flag account.Flag) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <true|false>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			value, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("%q is not true or false", args[0])
			}
			m, err := a.mutator(ctx)
			if err != nil {
				return err
			}
			if err := m.SetFlag(ctx, flag, value); err != nil {
				return err
			}
			rec, _ := m.Cache().Get()
			a.printf("%s: %t\n", use, rec.Flag(flag))
			return nil
		}),
	}
}

func init() {
	accountUpdateCredentialsCmd.Flags().StringVar(&newUsername, "new-username", "", "new username")
	accountUpdateCredentialsCmd.Flags().StringVar(&newPassword, "new-password", "", "new password, unchanged when empty")
	_ = accountUpdateCredentialsCmd.MarkFlagRequired("new-username")

	accountCmd.AddCommand(
		accountShowCmd,
		accountUpdateCredentialsCmd,
		flagCommand("set-expired", "Mark the account expired", account.FlagAccountExpired),
		flagCommand("set-locked", "Lock or unlock the account", account.FlagAccountLocked),
		flagCommand("set-enabled", "Enable or disable the account", account.FlagAccountEnabled),
		flagCommand("set-credentials-expired", "Mark the credentials expired", account.FlagCredentialsExpired),
	)
	rootCmd.AddCommand(accountCmd)
}
