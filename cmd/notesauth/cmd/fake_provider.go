package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/notes-auth-client/internal/config"
	"github.com/jrsteele09/notes-auth-client/provider/providerfake"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	fakeAddr  string
	fakeUsers []string
)

var fakeProviderCmd = &cobra.Command{
	Use:   "fake-provider",
	Short: "Run an in-memory identity provider for local development",
	Long: `Serves the identity provider routes from memory. Accounts are given as
username:password:email, with a fourth field "2fa" to turn two-factor on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		displayAppname(cmd.OutOrStdout(), config.New().GetAppName())

		fake := providerfake.New()
		for _, entry := range fakeUsers {
			acct, err := parseFakeUser(entry)
			if err != nil {
				return err
			}
			if _, err := fake.AddAccount(acct); err != nil {
				return fmt.Errorf("adding %s: %w", acct.Username, err)
			}
			if acct.TwoFactorSecret != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s two-factor secret: %s\n", acct.Username, acct.TwoFactorSecret)
			}
		}

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Mount("/", providerfake.NewServer(fake))

		server := &http.Server{Addr: fakeAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
		errs := make(chan error, 1)
		go func() {
			log.Info().Str("addr", server.Addr).Msg("fake identity provider listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("server.ListenAndServe %w", err)
			}
			close(errs)
		}()

		select {
		case err := <-errs:
			return err
		case <-cmd.Context().Done():
		}
		return shutdown(server)
	},
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("fake identity provider stopped")
	return nil
}

func parseFakeUser(entry string) (providerfake.Account, error) {
	parts := strings.Split(entry, ":")
	if len(parts) < 3 || len(parts) > 4 || parts[0] == "" || parts[1] == "" {
		return providerfake.Account{}, fmt.Errorf("invalid --user %q, want username:password:email[:2fa]", entry)
	}
	acct := providerfake.Account{Username: parts[0], Password: parts[1], Email: parts[2]}
	if len(parts) == 4 {
		if parts[3] != "2fa" {
			return providerfake.Account{}, fmt.Errorf("invalid --user %q, last field must be 2fa", entry)
		}
		acct.TwoFactorSecret = providerfake.GenerateSecret()
	}
	return acct, nil
}

func init() {
	fakeProviderCmd.Flags().StringVar(&fakeAddr, "addr", ":8080", "listen address")
	fakeProviderCmd.Flags().StringArrayVar(&fakeUsers, "user", nil, "account to create, username:password:email[:2fa]")
	rootCmd.AddCommand(fakeProviderCmd)
}
