package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

func newExportCmd() *cobra.Command {
	var (
		f      localFlags
		out    string
		force  bool
		stored bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export field templates to YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "-" {
				if _, err := os.Stat(out); err == nil && !force {
					return fmt.Errorf("%s exists (use --force to overwrite)", out)
				}
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			s, err := l.resolver.Schema(cmd.Context(), stored)
			if err != nil {
				return err
			}
			data, err := registry.EncodeYAML(s)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d post types to %s\n", len(s.PostTypes), out)
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&out, "out", "schema.yaml", "output file (- for stdout)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite without confirmation")
	cmd.Flags().BoolVar(&stored, "stored-only", false, "skip post types served by the static defaults")
	return cmd
}
