package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/ossd/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "ossd",
	Short:   "Local object storage engine with an S3-compatible API",
	Long: `ossd is a filesystem-backed object storage engine exposing an
S3-compatible HTTP API, with a relational metadata index as the
source of truth for object existence.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var configFiles []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			configFiles = append(configFiles, configFile)
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: OSSD_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: ossd.db, env: OSSD_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("db-table", "", "object index table name (default: objects, env: OSSD_DATABASE_TABLE)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory path (default: ./data, env: OSSD_STORAGE_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
