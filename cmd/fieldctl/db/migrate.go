package dbcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/auth"
	"github.com/faciam-dev/guidecms/pkg/migrator"
)

// NewMigrateCmd creates the db migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var flags DBFlags
	var to string
	var down bool
	var seed bool
	var seedPassword string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run DB migrations",
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
			if verbose {
				m.Log = cmd.OutOrStdout()
			}
			target, err := m.Resolve(to)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if down {
				err = m.Down(ctx, db, target)
			} else {
				err = m.Up(ctx, db, target)
			}
			if err != nil {
				return err
			}
			cur, err := m.Current(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%s)\n", cur, m.SemVer(cur))
			if seed {
				repo := &auth.UserRepo{DB: db, Driver: flags.Driver, TablePrefix: flags.TablePrefix}
				return seedAdmin(ctx, repo, seedPassword, cmd.OutOrStdout())
			}
			return nil
		},
	}
	flags.AddFlags(cmd)
	cmd.Flags().StringVar(&to, "to", "latest", "target version (number, semver or latest)")
	cmd.Flags().BoolVar(&down, "down", false, "roll back to --to instead of migrating up")
	cmd.Flags().BoolVar(&seed, "seed", false, "seed admin user")
	cmd.Flags().StringVar(&seedPassword, "seed-password", "admin123", "password of the seeded admin user")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print SQL statements")
	return cmd
}

func seedAdmin(ctx context.Context, repo *auth.UserRepo, password string, out io.Writer) error {
	u, err := repo.GetByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if u != nil {
		fmt.Fprintln(out, "admin user already exists")
		return nil
	}
	if _, err := repo.Create(ctx, "admin", password, "admin"); err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin user: admin / %s\n", password)
	return nil
}
