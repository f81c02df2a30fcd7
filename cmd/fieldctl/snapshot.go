package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	var (
		f      localFlags
		dest   string
		stored bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a timestamped schema snapshot to a directory or s3://bucket/prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := snapshot.ParseDest(ctx, dest)
			if err != nil {
				return err
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			s, err := l.resolver.Schema(ctx, stored)
			if err != nil {
				return err
			}
			name, err := snapshot.Take(ctx, s, d, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s to %s\n", name, dest)
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&dest, "dest", "", "destination path or s3://bucket/prefix")
	cmd.Flags().BoolVar(&stored, "stored-only", false, "skip post types served by the static defaults")
	mustFlag(cmd, "dest")
	return cmd
}
