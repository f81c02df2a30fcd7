package usercmd

import (
	"fmt"

	"github.com/spf13/cobra"

	dbcmd "github.com/faciam-dev/guidecms/cmd/fieldctl/db"
	"github.com/faciam-dev/guidecms/internal/auth"
)

// NewCreateCmd creates the user create subcommand.
func NewCreateCmd() *cobra.Command {
	var flags dbcmd.DBFlags
	var username, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			db, err := flags.Open()
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &auth.UserRepo{DB: db, Driver: flags.Driver, TablePrefix: flags.TablePrefix}
			u, err := repo.Create(cmd.Context(), username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id=%d, role=%s)\n", u.Username, u.ID, u.Role)
			return nil
		},
	}
	flags.AddFlags(cmd)
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "editor", "role (admin|editor)")
	return cmd
}
