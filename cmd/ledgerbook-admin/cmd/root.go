// Package cmd provides the ledgerbook-admin commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"ledgerbook/internal/cli"
	"ledgerbook/internal/config"
	"ledgerbook/internal/log"
	"ledgerbook/internal/storage"
)

var (
	dbPath string
	debug  bool

	cfg    *config.Config
	logger *log.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerbook-admin",
	Short: "Maintenance commands for a ledgerbook database",
	Long: `ledgerbook-admin works directly on the SQLite database used by the
ledgerbook server. It can run while the server is up.

Example:
  ledgerbook-admin migrate
  ledgerbook-admin months
  ledgerbook-admin export month 2024-01 --pdf -o ./out`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
		cfg = config.Load()
		if dbPath == "" {
			dbPath = cfg.SQLiteDBPath
		}

		level := cfg.LogLevel
		if debug {
			level = "debug"
		}
		logCfg := log.DefaultConfig()
		logCfg.Level = log.ParseLevel(level)
		logCfg.Format = cfg.LogFormat
		logCfg.Component = log.ComponentAdmin
		logCfg.Output = os.Stderr
		logger = log.New(logCfg)
		log.SetDefault(logger)
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH or ./data/ledger.db)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(monthsCmd)
	rootCmd.AddCommand(exportCmd)
}

// openRepo opens the database, applying pending migrations.
func openRepo() (*storage.SQLiteRepository, error) {
	logger.Debug("Opening database", "path", dbPath)
	return storage.NewSQLiteRepository(dbPath)
}
