package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/pkg/config"
	"github.com/faciam-dev/guidecms/sdk/client"
)

func remoteClient(cmd *cobra.Command) (*client.Client, error) {
	c, _, err := remoteSession(cmd)
	return c, err
}

func remoteSession(cmd *cobra.Command) (*client.Client, config.Resolved, error) {
	r, err := config.Resolve(cmd)
	if err != nil {
		return nil, r, err
	}
	return client.New(r.APIURL, client.WithToken(r.Token), client.WithInsecure(r.Insecure)), r, nil
}

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "remote", Short: "Query and edit a running Guide CMS API"}
	cmd.AddCommand(newRemoteTemplatesCmd())
	cmd.AddCommand(newRemoteFieldsCmd())
	cmd.AddCommand(newRemoteAddCmd())
	cmd.AddCommand(newRemoteMoveCmd())
	cmd.AddCommand(newRemoteDeleteCmd())
	return cmd
}

func newRemoteTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List content types and where their schema comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			out, err := c.Templates(cmd.Context())
			if err != nil {
				return err
			}
			if outputFormat(cmd) == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"Key", "Label", "Fields", "Source"})
			for _, t := range out {
				tw.Append([]string{t.Key, t.Label, strconv.Itoa(t.FieldCount), string(t.Source)})
			}
			tw.Render()
			return nil
		},
	}
}

func newRemoteFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields [post_type]",
		Short: "Show the resolved fields of a post type (profile default when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, r, err := remoteSession(cmd)
			if err != nil {
				return err
			}
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			pt, err := r.PostTypeOr(arg)
			if err != nil {
				return err
			}
			d, err := c.Template(cmd.Context(), pt)
			if err != nil {
				return err
			}
			return printFields(cmd.OutOrStdout(), outputFormat(cmd), d.PostType, d.Source, d.Fields)
		},
	}
}

func newRemoteAddCmd() *cobra.Command {
	var f registry.Field
	var typ string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a field through the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, r, err := remoteSession(cmd)
			if err != nil {
				return err
			}
			if f.PostType, err = r.PostTypeOr(f.PostType); err != nil {
				return err
			}
			f.Type = registry.FieldType(typ)
			added, err := c.AddField(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s.%s (id=%d)\n", added.PostType, added.Key, added.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.PostType, "post-type", "", "content type (profile default when empty)")
	cmd.Flags().StringVar(&f.Key, "key", "", "field key (derived from the label when empty)")
	cmd.Flags().StringVar(&f.Label, "label", "", "field label")
	cmd.Flags().StringVar(&typ, "type", string(registry.TypeText), "field type")
	cmd.Flags().IntVar(&f.Order, "order", 0, "display order")
	mustFlag(cmd, "label")
	return cmd
}

func newRemoteMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <up|down>",
		Short: "Move a field through the API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.MoveField(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			if !res.Moved {
				pos := "last"
				if args[1] == "up" {
					pos = "first"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", res.Field.Key, pos)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s %s (order %d)\n", res.Field.Key, args[1], res.Field.Order)
			return nil
		},
	}
}

func newRemoteDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a field through the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteField(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted field %d\n", id)
			return nil
		},
	}
}
