package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"subscription-billing/internal/domain/model"
	pg "subscription-billing/internal/infra/db/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	run := func(down bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			pool, err := pg.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()
			if down {
				return pg.Rollback(cmd.Context(), pool, logger)
			}
			return pg.Migrate(cmd.Context(), pool, logger)
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run(false)},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", Args: cobra.NoArgs, RunE: run(true)},
	)
	return cmd
}

// newSweepCmd runs one scheduled job immediately, for cron-less deployments
// and manual recovery.
func newSweepCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "sweep <reminders|maintenance|exchange_rate>",
		Short:     "Run one scheduled job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"reminders", "maintenance", "exchange_rate"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.scheduler.RunOnce(cmd.Context(), args[0])
			if summary != "" {
				fmt.Fprintln(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}
}

func newAdminCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	var name, email, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin; the password is read from BILLING_ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("BILLING_ADMIN_PASSWORD")
			if strings.TrimSpace(password) == "" {
				return errors.New("BILLING_ADMIN_PASSWORD is not set")
			}
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			admin, err := a.auth.CreateAdmin(cmd.Context(), name, email, password, model.AdminRole(role))
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "Admin", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&role, "role", string(model.AdminRoleAdmin), "admin or superadmin")
	_ = create.MarkFlagRequired("email")
	cmd.AddCommand(create)
	return cmd
}
