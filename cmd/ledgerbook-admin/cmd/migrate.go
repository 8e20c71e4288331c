package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbook/internal/auth"
	"ledgerbook/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.RunMigrations(dbPath); err != nil {
			return fmt.Errorf("migrate %s: %w", dbPath, err)
		}
		version, dirty, err := storage.SchemaVersion(dbPath)
		if err != nil {
			return err
		}
		logger.Info("Migrations applied", "path", dbPath, "version", version, "dirty", dirty)
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
		return nil
	},
}

var (
	seedUsername string
	seedPassword string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the default user when no user exists",
	Long: `Create the default user when the users table is empty. Existing users
are never touched; use the API to rotate credentials.

Defaults come from ADMIN_USERNAME and ADMIN_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password := seedUsername, seedPassword
		if username == "" {
			username = cfg.AdminUsername
		}
		if password == "" {
			password = cfg.AdminPassword
		}

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		created, err := auth.NewPasswordAuthenticator(repo, 0).EnsureDefaultUser(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintln(cmd.OutOrStdout(), "users already exist, nothing to do")
			return nil
		}
		logger.Warn("Created default user", "username", username)
		fmt.Fprintf(cmd.OutOrStdout(), "created user %q\n", username)
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedUsername, "username", "", "username (default ADMIN_USERNAME)")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "password (default ADMIN_PASSWORD)")
}
