package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/dbarchive"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Runtime data migration management",
	}
	cmd.AddCommand(migrateRuntimeCmd())
	return cmd
}

// migrateRuntimeCmd bootstraps (or verifies) the optional Postgres
// session archive schema; the file-backed session store needs no
// migration of its own since its layout is versioned per-record.
func migrateRuntimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtime",
		Short: "Bootstrap or verify the optional Postgres session archive schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.Mode != "archive" {
				fmt.Println(warnStyle.Render("database.mode is not \"archive\"; nothing to migrate"))
				return nil
			}
			if cfg.Database.PostgresDSN == "" {
				return fmt.Errorf("DROST_POSTGRES_DSN is not set")
			}

			archive, err := dbarchive.Open(cfg.Database.PostgresDSN)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer archive.Close()

			status, err := archive.CheckSchema(context.Background())
			if err != nil {
				return fmt.Errorf("check schema: %w", err)
			}
			if status.Compatible {
				fmt.Println(okStyle.Render(fmt.Sprintf("schema up to date (v%d)", status.CurrentVersion)))
				return nil
			}
			return fmt.Errorf("schema at v%d (dirty=%v) does not match required v%d", status.CurrentVersion, status.Dirty, status.RequiredVersion)
		},
	}
}

func exitErr(err error) {
	fmt.Println(errStyle.Render(err.Error()))
	os.Exit(1)
}
