package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faucetdb/codespace/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Manage the durable store",
		Long:    "Run schema migrations and inspect the SQL database that holds users and codespaces.",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBStatusCmd())

	return cmd
}

// ---------- db migrate ----------

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Example: `  codespace db migrate
  CODESPACE_DATABASE_DRIVER=mysql CODESPACE_DATABASE_DSN="user:pass@tcp(localhost)/codespace?parseTime=true" codespace db migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(context.Background())
		},
	}
}

func runDBMigrate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := st.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Database (%s) is at schema version %d\n", st.Driver(), v)
	return nil
}

// ---------- db status ----------

func newDBStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database connectivity and schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBStatus(context.Background())
		},
	}
}

func runDBStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Driver:   %s (supported: %s)\n", cfg.Database.Driver, strings.Join(store.Drivers(), ", "))

	st, err := store.Open(store.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		fmt.Printf("Status:   unreachable (%v)\n", err)
		return nil
	}
	fmt.Println("Status:   reachable")

	v, err := st.SchemaVersion(ctx)
	if err != nil {
		fmt.Println("Schema:   not migrated (run 'codespace db migrate')")
		return nil
	}
	fmt.Printf("Schema:   version %d\n", v)

	n, err := st.ListUsers(ctx)
	if err == nil {
		fmt.Printf("Users:    %d\n", len(n))
	}
	return nil
}
