package main

import (
	"github.com/spf13/cobra"

	usercmd "github.com/faciam-dev/guidecms/cmd/fieldctl/user"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(usercmd.NewCreateCmd())
	cmd.AddCommand(usercmd.NewListCmd())
	return cmd
}
