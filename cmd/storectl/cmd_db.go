package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/postgres"
)

// bootDB loads config and opens a small pool.
func bootDB(ctx context.Context) (*pgxpool.Pool, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return postgres.Connect(ctx, cfg.PostgresDSN, 2)
}

// storectl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

// storectl seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := (&catalog.Repo{DB: db}).Seed(cmd.Context(), catalog.SampleProducts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
		return nil
	},
}

// storectl promote <email>
var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to a registered user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		svc := &auth.Service{Users: &auth.Repo{DB: db}}
		if err := svc.Promote(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", args[0])
		return nil
	},
}
