package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

func newFieldsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "fields", Short: "Manage stored field templates"}
	cmd.AddCommand(newFieldsListCmd())
	cmd.AddCommand(newFieldsAddCmd())
	cmd.AddCommand(newFieldsEditCmd())
	cmd.AddCommand(newFieldsMoveCmd())
	cmd.AddCommand(newFieldsDeleteCmd())
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid field id %q", s)
	}
	return id, nil
}

func parseOptions(raw string) (registry.Options, error) {
	var o registry.Options
	if raw == "" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return o, fmt.Errorf("invalid --options: %w", err)
	}
	return o, nil
}

func newFieldsListCmd() *cobra.Command {
	var f localFlags
	var postType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the resolved fields of a post type",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			types := []string{postType}
			if postType == "" {
				types = types[:0]
				for _, pt := range l.resolver.PostTypes() {
					types = append(types, pt.Key)
				}
			}
			for _, pt := range types {
				fs, src, err := l.resolver.Resolve(cmd.Context(), pt)
				if err != nil {
					return err
				}
				if err := printFields(cmd.OutOrStdout(), outputFormat(cmd), pt, src, fs); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&postType, "post-type", "", "post type (all when empty)")
	return cmd
}

func newFieldsAddCmd() *cobra.Command {
	var f localFlags
	var in registry.Field
	var typ, options string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a field to a post type",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseOptions(options)
			if err != nil {
				return err
			}
			in.Type = registry.FieldType(typ)
			in.Options = opts
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			out, err := l.fields.Add(cmd.Context(), operator(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s.%s (id=%d)\n", out.PostType, out.Key, out.ID)
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&in.PostType, "post-type", "", "post type")
	cmd.Flags().StringVar(&in.Key, "key", "", "field key (derived from the label when empty)")
	cmd.Flags().StringVar(&in.Label, "label", "", "field label")
	cmd.Flags().StringVar(&typ, "type", "text", "field type")
	cmd.Flags().StringVar(&options, "options", "", "field options as JSON")
	cmd.Flags().IntVar(&in.Order, "order", 0, "field order")
	mustFlag(cmd, "post-type")
	mustFlag(cmd, "label")
	return cmd
}

func newFieldsEditCmd() *cobra.Command {
	var f localFlags
	var key, label, typ, options string
	var order int
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update the given members of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p registry.Patch
			flags := cmd.Flags()
			if flags.Changed("key") {
				p.Key = &key
			}
			if flags.Changed("label") {
				p.Label = &label
			}
			if flags.Changed("type") {
				t := registry.FieldType(typ)
				p.Type = &t
			}
			if flags.Changed("options") {
				o, err := parseOptions(options)
				if err != nil {
					return err
				}
				p.Options = &o
			}
			if flags.Changed("order") {
				p.Order = &order
			}
			if p.Empty() {
				return fmt.Errorf("nothing to update")
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			out, err := l.fields.Update(cmd.Context(), operator(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s.%s (id=%d)\n", out.PostType, out.Key, id)
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&key, "key", "", "field key")
	cmd.Flags().StringVar(&label, "label", "", "field label")
	cmd.Flags().StringVar(&typ, "type", "", "field type")
	cmd.Flags().StringVar(&options, "options", "", "field options as JSON")
	cmd.Flags().IntVar(&order, "order", 0, "field order")
	return cmd
}

func newFieldsMoveCmd() *cobra.Command {
	var f localFlags
	cmd := &cobra.Command{
		Use:   "move <id> <up|down>",
		Short: "Swap a field with its neighbour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			dir, err := ordering.ParseDirection(args[1])
			if err != nil {
				return err
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			res, err := l.fields.Move(cmd.Context(), operator(), id, dir)
			if err != nil {
				return err
			}
			if !res.Moved {
				pos := "last"
				if dir == ordering.Up {
					pos = "first"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", res.Field.Key, pos)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s %s (order %d)\n", res.Field.Key, dir, res.Field.Order)
			return nil
		},
	}
	f.AddFlags(cmd)
	return cmd
}

func newFieldsDeleteCmd() *cobra.Command {
	var f localFlags
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a field template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()
			old, err := l.fields.Delete(cmd.Context(), operator(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s.%s; page values stay until `fieldctl orphans --purge`\n", old.PostType, old.Key)
			return nil
		},
	}
	f.AddFlags(cmd)
	return cmd
}
