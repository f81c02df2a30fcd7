package main

import (
	"github.com/spf13/cobra"

	dbcmd "github.com/faciam-dev/guidecms/cmd/fieldctl/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Database operations"}
	cmd.AddCommand(dbcmd.NewMigrateCmd())
	cmd.AddCommand(dbcmd.NewVersionCmd())
	return cmd
}
