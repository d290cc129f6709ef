// shoptalkctl is the admin CLI. It opens the store directly: operations like
// conversation deletion are administrative and not exposed over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shoptalk/shoptalk/internal/store"
	"github.com/shoptalk/shoptalk/internal/store/postgres"
	"github.com/shoptalk/shoptalk/internal/store/sqlite"
)

var (
	sqlitePath string
	pgDSN      string
	rootCmd    = &cobra.Command{
		Use:   "shoptalkctl",
		Short: "Admin CLI for the shoptalk store",
	}
)

func openStore() (store.Store, error) {
	if pgDSN != "" {
		return postgres.New(pgDSN)
	}
	return sqlite.New(sqlitePath)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "./data/shoptalk.db", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "dsn", "", "Postgres DSN (overrides --sqlite)")

	rootCmd.AddCommand(tenantsCmd())
	rootCmd.AddCommand(conversationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
