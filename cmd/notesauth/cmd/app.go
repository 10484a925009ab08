package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/notes-auth-client/account"
	"github.com/jrsteele09/notes-auth-client/internal/config"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/jrsteele09/notes-auth-client/session"
	"github.com/jrsteele09/notes-auth-client/session/boltrepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// setupLogging writes human readable logs in DEV and JSON lines anywhere else.
func setupLogging(env, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stderr
	if strings.EqualFold(env, "DEV") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// app is everything a command needs, opened for the duration of one command.
type app struct {
	cfg      config.Config
	repo     *boltrepo.Repo
	store    *session.Store
	provider provider.Provider
	cache    *account.Cache
	notifier notify.Notifier
	in       *bufio.Reader
	out      io.Writer
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.New()
	if err := os.MkdirAll(cfg.GetDataFolder(), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := boltrepo.NewFromFile(cfg.GetSessionFile(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	store, err := session.NewStore(repo, session.WithMaxSessionAge(cfg.GetMaxSessionAge()))
	if err != nil {
		repo.Close()
		return nil, err
	}
	if err := store.Load(); err != nil {
		repo.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		provider: provider.NewHTTPClient(cfg.GetAPIURL(), provider.WithTimeout(cfg.GetRequestTimeout())),
		cache:    account.NewCache(),
		notifier: notify.NewLogNotifier(log.Logger),
		in:       bufio.NewReader(cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
	}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		log.Err(err).Msg("failed to close session storage")
	}
}

// withApp adapts a command body that needs an app to cobra's RunE.
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd.Context(), a, args)
	}
}

// prompt reads one line from the command's input. The flag value wins when set.
func (a *app) prompt(label, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
