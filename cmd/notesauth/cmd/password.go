package cmd

import (
	"context"

	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/jrsteele09/notes-auth-client/recovery"
	"github.com/spf13/cobra"
)

var (
	forgotEmail   string
	resetToken    string
	resetPassword string
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Recover a forgotten password",
}

var passwordForgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Request a password reset email",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		email, err := a.prompt("Email", forgotEmail)
		if err != nil {
			return err
		}
		flow, err := recovery.NewFlow(a.provider, recovery.WithNotifier(a.notifier))
		if err != nil {
			return err
		}
		return flow.RequestReset(ctx, email)
	}),
}

var passwordResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set a new password with the token from the reset email",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		token, err := a.prompt("Reset token", resetToken)
		if err != nil {
			return err
		}
		password, err := a.prompt("New password", resetPassword)
		if err != nil {
			return err
		}
		if err := validate.Struct(validate.PasswordForm{Password: password}); err != nil {
			return err
		}
		flow, err := recovery.NewFlow(a.provider, recovery.WithNotifier(a.notifier))
		if err != nil {
			return err
		}
		return flow.CompleteReset(ctx, token, password)
	}),
}

func init() {
	passwordForgotCmd.Flags().StringVarP(&forgotEmail, "email", "e", "", "account email address")
	passwordResetCmd.Flags().StringVarP(&resetToken, "token", "t", "", "reset token from the email")
	passwordResetCmd.Flags().StringVarP(&resetPassword, "password", "p", "", "new password")

	passwordCmd.AddCommand(passwordForgotCmd, passwordResetCmd)
	rootCmd.AddCommand(passwordCmd)
}
