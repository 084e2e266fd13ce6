package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/todolists/todolists/pkg/config"
	"github.com/todolists/todolists/pkg/logger"
	"github.com/todolists/todolists/pkg/version"
)

const (
	defaultConfigFile = "todolists.yaml"
	defaultEnvFile    = ".env"
	userEnvVar        = "TODOLISTS_USER"
)

func RootCmd() *cobra.Command {
	return newRootCmd(openPersistence, checkStore)
}

func newRootCmd(open PersistenceFactory, check StoreChecker) *cobra.Command {
	a := &app{open: open, check: check}
	root := &cobra.Command{
		Use:          "todolists",
		Short:        "Manage per-user todo lists stored in PostgreSQL",
		Version:      version.Get().String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to configuration file")
	flags.String("env-file", defaultEnvFile, "Path to the environment variables file")
	flags.StringP("user", "u", "",
		"User the session acts for (defaults to $"+userEnvVar+"). Not authenticated: "+
			"only login checks a password, access is gated by the database credentials")
	flags.String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.Bool("log-source", false, "Include source file and line in logs")

	root.AddCommand(
		pingCmd(a),
		loginCmd(a),
		listsCmd(a),
		listCmd(a),
		todoCmd(a),
	)
	return root
}

// SetupGlobalConfig loads the env file and configuration, installs the logger
// and stores both in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		logLevel = cfg.Runtime.LogLevel
	}
	logger.SetupLogger(logLevel, useJSONLogs(logJSON, cfg), logSource)
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	cmd.SetContext(ctx)
	return nil
}

// useJSONLogs enables JSON logs when asked for and always in production.
func useJSONLogs(flag bool, cfg *config.Config) bool {
	return flag || cfg.Runtime.LogJSON || cfg.IsProduction()
}

func pingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.check(ctx, config.FromContext(ctx)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is reachable.")
			return nil
		},
	}
}
