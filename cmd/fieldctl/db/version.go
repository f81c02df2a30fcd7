package dbcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/pkg/migrator"
)

// NewVersionCmd creates the db version subcommand.
func NewVersionCmd() *cobra.Command {
	var flags DBFlags
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := flags.Open()
			if err != nil {
				return err
			}
			defer db.Close()
			m, err := migrator.New(flags.Driver, flags.TablePrefix)
			if err != nil {
				return err
			}
			cur, err := m.Current(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (version %d of %d)\n", m.SemVer(cur), cur, m.Latest())
			return nil
		},
	}
	flags.AddFlags(cmd)
	return cmd
}
