package cmd

import (
	"context"
	"errors"

	"github.com/jrsteele09/notes-auth-client/auth"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/spf13/cobra"
)

var twoFactorCmd = &cobra.Command{
	Use:   "2fa",
	Short: "Two-factor authentication for the signed-in account",
}

func (a *app) twoFactor(ctx context.Context) (*auth.TwoFactor, error) {
	tf, err := auth.NewTwoFactor(a.provider, a.store, auth.WithNotifier(a.notifier), auth.WithFlagCache(a.cache))
	if err != nil {
		return nil, err
	}
	if _, err := tf.Status(ctx); err != nil {
		return nil, err
	}
	return tf, nil
}

var twoFactorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether two-factor is enabled",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		tf, err := a.twoFactor(ctx)
		if err != nil {
			return err
		}
		a.printf("Two-factor: %s\n", tf.State())
		return nil
	}),
}

var twoFactorEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enroll an authenticator app",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		tf, err := a.twoFactor(ctx)
		if err != nil {
			return err
		}
		prov, err := tf.BeginEnroll(ctx)
		if err != nil {
			return err
		}
		a.printf("Scan this URL with your authenticator app:\n  %s\n", prov.QRCodeURL)
		if prov.Secret != "" {
			a.printf("Or enter the secret manually: %s\n", prov.Secret)
		}

		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := a.prompt("Authentication code (empty to cancel)", "")
			if err != nil {
				return err
			}
			if code == "" {
				break
			}
			if err := validate.Struct(validate.CodeForm{Code: code}); err != nil {
				a.printf("The code is six digits\n")
				continue
			}
			err = tf.VerifyEnroll(ctx, code)
			if err == nil {
				a.printf("Two-factor enabled\n")
				return nil
			}
			if !errors.Is(err, auth.ErrChallengeFailed) {
				return err
			}
		}
		if err := tf.CancelEnroll(); err != nil {
			return err
		}
		a.printf("Enrollment cancelled\n")
		return nil
	}),
}

var twoFactorDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn two-factor off",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		tf, err := a.twoFactor(ctx)
		if err != nil {
			return err
		}
		if err := tf.Disable(ctx); err != nil {
			return err
		}
		a.printf("Two-factor disabled\n")
		return nil
	}),
}

func init() {
	twoFactorCmd.AddCommand(twoFactorStatusCmd, twoFactorEnableCmd, twoFactorDisableCmd)
	rootCmd.AddCommand(twoFactorCmd)
}
