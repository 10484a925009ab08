package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/notes-auth-client/internal/config"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "notesauth",
	Short: "Sign in to the Secure Notes service from the terminal",
	Long: `Command line client for the Secure Notes identity provider.
Manages the local session, two-factor authentication, account status and password recovery.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		cfg := config.New()
		setupLogging(cfg.GetEnv(), cfg.GetLogLevel())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		displayAppname(cmd.OutOrStdout(), config.New().GetAppName())
		return cmd.Help()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
}
