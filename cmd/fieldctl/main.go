package main

import (
	"log"

	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fieldctl",
		Short:        "Manage Guide CMS field templates",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("api-url", "", "Guide CMS API base URL")
	root.PersistentFlags().String("token", "", "Bearer token for the API")
	root.PersistentFlags().String("profile", "", "Profile name in config (overrides active)")
	root.PersistentFlags().String("output", "table", "Output format (table|json)")

	root.AddCommand(newDBCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newFieldsCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newApplyCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newOrphansCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newRemoteCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
