// Package cli implements the groupman command line: the server, schema
// migrations and development tokens.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"groupman/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globals carries flag values shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "groupman",
		Short:         "Group federation service",
		Long:          "groupman serves user-managed groups federated with a read-only LDAP directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if g.envFile == "" {
				return nil
			}
			return config.LoadDotEnv(g.envFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before configuration (empty to skip)")

	rootCmd.AddCommand(
		newServeCmd(g),
		newMigrateCmd(g),
		newTokenCmd(g),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configuration selected by the global flags.
func (g *globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newLogger returns a JSON logger in production and a text logger otherwise.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the groupman version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "groupman version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
