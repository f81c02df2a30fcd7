package main

import (
	"github.com/spf13/cobra"

	dbcmd "github.com/faciam-dev/guidecms/cmd/fieldctl/db"
	"github.com/faciam-dev/guidecms/pkg/util"
)

// mustFlag marks a flag as required and panics on error.
func mustFlag(cmd *cobra.Command, name string) {
	cobra.CheckErr(cmd.MarkFlagRequired(name))
}

// localFlags selects the database and the static schema a local command
// works against.
type localFlags struct {
	dbcmd.DBFlags
	SchemaFile string
}

func (f *localFlags) AddFlags(cmd *cobra.Command) {
	f.DBFlags.AddFlags(cmd)
	cmd.Flags().StringVar(&f.SchemaFile, "schema-file", util.GetEnv("CMS_SCHEMA_FILE", ""), "static schema YAML replacing the built-in defaults")
}

// outputFormat returns the --output flag, defaulting to table when the
// command runs detached from the root.
func outputFormat(cmd *cobra.Command) string {
	if f := cmd.Root().PersistentFlags().Lookup("output"); f != nil {
		return f.Value.String()
	}
	return "table"
}
