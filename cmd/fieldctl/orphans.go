package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/content"
)

func newOrphansCmd() *cobra.Command {
	var (
		f     localFlags
		purge bool
	)
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List page values whose field no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			sc := &content.OrphanScanner{Meta: l.meta, Schema: l.resolver}
			orphans, err := sc.Scan(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if outputFormat(cmd) == "json" && !purge {
				return writeJSON(w, orphans)
			}
			if len(orphans) == 0 {
				fmt.Fprintln(w, "no orphaned values")
				return nil
			}
			tw := tablewriter.NewWriter(w)
			tw.SetHeader([]string{"Page", "Post type", "Key"})
			for _, o := range orphans {
				tw.Append([]string{strconv.FormatInt(o.PageID, 10), o.PostType, o.Key})
			}
			tw.Render()
			if !purge {
				return nil
			}
			n, err := sc.Purge(cmd.Context(), orphans)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "purged %d rows\n", n)
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the listed values")
	return cmd
}
