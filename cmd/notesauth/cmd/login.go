package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jrsteele09/notes-auth-client/auth"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/spf13/cobra"
)

const maxCodeAttempts = 3

var (
	loginUsername string
	loginPassword string

	signupUsername string
	signupEmail    string
	signupPassword string
	signupAdmin    bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		username, err := a.prompt("Username", loginUsername)
		if err != nil {
			return err
		}
		password, err := a.prompt("Password", loginPassword)
		if err != nil {
			return err
		}
		if err := validate.Struct(validate.LoginForm{Username: username, Password: password}); err != nil {
			return err
		}

		authenticator, err := auth.NewAuthenticator(a.provider, a.store, auth.WithNotifier(a.notifier))
		if err != nil {
			return err
		}
		twoFactor, err := auth.NewTwoFactor(a.provider, a.store, auth.WithNotifier(a.notifier), auth.WithFlagCache(a.cache))
		if err != nil {
			return err
		}
		flow, err := auth.NewLoginFlow(authenticator, twoFactor)
		if err != nil {
			return err
		}

		if _, err := flow.Submit(ctx, username, password); err != nil {
			return err
		}
		for attempt := 0; ; attempt++ {
			if _, waiting := flow.Step().(auth.LoginStep2); !waiting {
				break
			}
			if attempt == maxCodeAttempts {
				flow.Abandon()
				return auth.ErrChallengeFailed
			}
			code, err := a.prompt("Authentication code (empty to cancel)", "")
			if err != nil {
				return err
			}
			if code == "" {
				flow.Abandon()
				a.printf("Sign-in cancelled\n")
				return nil
			}
			if err := validate.Struct(validate.CodeForm{Code: code}); err != nil {
				a.printf("The code is six digits\n")
				continue
			}
			if err := flow.Verify(ctx, code); err != nil && !errors.Is(err, auth.ErrChallengeFailed) {
				return err
			}
		}

		if sess, ok := a.store.Get(); ok {
			a.printf("Signed in as %s\n", sess.Identity.Username)
		}
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		authenticator, err := auth.NewAuthenticator(a.provider, a.store, auth.WithNotifier(a.notifier))
		if err != nil {
			return err
		}
		return authenticator.Logout()
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		sess, ok := a.store.Get()
		if !ok {
			a.printf("Not signed in\n")
			return nil
		}
		id := sess.Identity
		a.printf("Username:   %s\n", id.Username)
		a.printf("Roles:      %s\n", strings.Join(id.Roles, ", "))
		a.printf("Two-factor: %t\n", id.TwoFactorEnabled)
		if !id.IssuedAt.IsZero() {
			a.printf("Issued:     %s\n", id.IssuedAt.Local().Format(time.RFC1123))
		}
		if !id.ExpiresAt.IsZero() {
			a.printf("Expires:    %s\n", id.ExpiresAt.Local().Format(time.RFC1123))
		}
		return nil
	}),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new account",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		username, err := a.prompt("Username", signupUsername)
		if err != nil {
			return err
		}
		email, err := a.prompt("Email", signupEmail)
		if err != nil {
			return err
		}
		password, err := a.prompt("Password", signupPassword)
		if err != nil {
			return err
		}
		if err := validate.Struct(validate.SignUpForm{Username: username, Email: email, Password: password}); err != nil {
			return err
		}

		roles := []string{"user"}
		if signupAdmin {
			roles = []string{"admin"}
		}
		authenticator, err := auth.NewAuthenticator(a.provider, a.store, auth.WithNotifier(a.notifier))
		if err != nil {
			return err
		}
		return authenticator.SignUp(ctx, provider.SignUpRequest{Username: username, Email: email, Password: password, Roles: roles})
	}),
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")

	signupCmd.Flags().StringVarP(&signupUsername, "username", "u", "", "new username")
	signupCmd.Flags().StringVarP(&signupEmail, "email", "e", "", "email address")
	signupCmd.Flags().StringVarP(&signupPassword, "password", "p", "", "new password")
	signupCmd.Flags().BoolVar(&signupAdmin, "admin", false, "request the admin role")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, signupCmd)
}
