package dbcmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/pkg/migrator"
	"github.com/faciam-dev/guidecms/pkg/util"
)

// DBFlags defines common database flags.
type DBFlags struct {
	Driver      string
	DSN         string
	TablePrefix string
}

// AddFlags attaches the DB flags to the command.
func (f *DBFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.DSN, "db", util.GetEnv("DSN", ""), "database DSN")
	cmd.Flags().StringVar(&f.Driver, "driver", util.GetEnv("DB_DRIVER", ""), "database driver (mysql|postgres|sqlite3)")
	cmd.Flags().StringVar(&f.TablePrefix, "table-prefix", util.GetEnv("TABLE_PREFIX", migrator.DefaultPrefix), "table name prefix")
}

// Open resolves the driver from the DSN when unset and opens the database.
func (f *DBFlags) Open() (*sql.DB, error) {
	if f.DSN == "" {
		return nil, fmt.Errorf("--db is required")
	}
	if f.Driver == "" {
		d, err := util.DetectDriver(f.DSN)
		if err != nil {
			return nil, fmt.Errorf("detect driver: %w", err)
		}
		f.Driver = d
	}
	return sql.Open(f.Driver, util.OpenDSN(f.Driver, f.DSN))
}
