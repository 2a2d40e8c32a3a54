package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenantrx/recordsapi/internal/config"
	"github.com/tenantrx/recordsapi/internal/logging"
)

var (
	cfg        *config.Config
	logger     zerolog.Logger
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "recordsapi",
	Short: "Multi-tenant clinical records API",
	Long: `recordsapi serves the clinical records API. Every request carries an OAuth2
access token from the in-house authorization server or the external identity
provider and is resolved into a tenant-scoped security context.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Registry database URL (env: RECORDS_DATABASE_URL)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env: RECORDS_LOG_LEVEL)")
	flags.String("log-format", "", "Log format: json or console (env: RECORDS_LOG_FORMAT)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd, dbCmd, tenantsCmd, clientsCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
