package usercmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	dbcmd "github.com/faciam-dev/guidecms/cmd/fieldctl/db"
	"github.com/faciam-dev/guidecms/internal/auth"
)

type listUser struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// NewListCmd creates the user list subcommand.
func NewListCmd() *cobra.Command {
	var flags dbcmd.DBFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := flags.Open()
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &auth.UserRepo{DB: db, Driver: flags.Driver, TablePrefix: flags.TablePrefix}
			users, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			us := make([]listUser, 0, len(users))
			for _, u := range users {
				us = append(us, listUser{ID: u.ID, Username: u.Username, Role: u.Role})
			}
			b, _ := json.MarshalIndent(us, "", "  ")
			if _, err := cmd.OutOrStdout().Write(append(b, '\n')); err != nil {
				return err
			}
			return nil
		},
	}
	flags.AddFlags(cmd)
	return cmd
}
