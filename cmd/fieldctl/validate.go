package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a schema YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(file)) // #nosec G304 -- file path cleaned
			if err != nil {
				return err
			}
			s, err := registry.DecodeYAML(data)
			if err != nil {
				return err
			}
			n := 0
			for _, pt := range s.PostTypes {
				n += len(pt.Fields)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d post types, %d fields\n", len(s.PostTypes), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "schema.yaml", "schema file")
	return cmd
}
