package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

// report counts the changes between two field lists.
type report struct {
	Added, Deleted, Updated int
}

func summarize(changes []registry.Change) report {
	var r report
	for _, c := range changes {
		switch c.Type {
		case registry.ChangeAdded:
			r.Added++
		case registry.ChangeDeleted:
			r.Deleted++
		case registry.ChangeUpdated:
			r.Updated++
		}
	}
	return r
}

func (r report) String() string {
	return fmt.Sprintf("+%d/-%d/±%d", r.Added, r.Deleted, r.Updated)
}

func newApplyCmd() *cobra.Command {
	var (
		f      localFlags
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Replace stored field templates with a YAML schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(file))
			if err != nil {
				return err
			}
			s, err := registry.DecodeYAML(data)
			if err != nil {
				return err
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			ctx := cmd.Context()
			for _, pt := range s.PostTypes {
				if !l.resolver.IsPostType(pt.Key) {
					return fmt.Errorf("unknown post type %q", pt.Key)
				}
				cur, err := l.store.ListFields(ctx, pt.Key)
				if err != nil {
					return err
				}
				rep := summarize(registry.Diff(cur, pt.Fields))
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (dry run)\n", pt.Key, rep)
					continue
				}
				if rep == (report{}) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: unchanged\n", pt.Key)
					continue
				}
				if _, err := l.fields.Replace(ctx, operator(), pt.Key, pt.Fields); err != nil {
					return fmt.Errorf("%s: %w", pt.Key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s updated\n", pt.Key, rep)
			}
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&file, "file", "schema.yaml", "input file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show changes without applying")
	return cmd
}
