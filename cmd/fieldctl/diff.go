package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

var exitFunc = os.Exit

func newDiffCmd() *cobra.Command {
	var (
		f      localFlags
		file   string
		format string
		fail   bool
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show drift between a YAML schema and the served field templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "markdown" && format != "unified" {
				return errors.New("--format must be text, markdown or unified")
			}
			data, err := os.ReadFile(filepath.Clean(file))
			if err != nil {
				return err
			}
			want, err := registry.DecodeYAML(data)
			if err != nil {
				return err
			}
			l, err := openLocal(&f)
			if err != nil {
				return err
			}
			defer l.Close()

			have := registry.Schema{}
			var a, b []registry.Field
			for _, pt := range want.PostTypes {
				fs, _, err := l.resolver.Resolve(cmd.Context(), pt.Key)
				if err != nil {
					return err
				}
				have.PostTypes = append(have.PostTypes, registry.PostType{Key: pt.Key, Label: pt.Label, Fields: fs})
				a = append(a, fs...)
				b = append(b, pt.Fields...)
			}
			changes := registry.Diff(a, b)
			if summarize(changes) == (report{}) {
				fmt.Fprintln(cmd.OutOrStdout(), "✅ No schema drift detected.")
				return nil
			}

			var buf bytes.Buffer
			switch format {
			case "markdown":
				buf.WriteString("```diff\n")
				writeDiff(&buf, changes, false)
				buf.WriteString("```\n")
			case "unified":
				ya, err := registry.EncodeYAML(have)
				if err != nil {
					return err
				}
				yb, err := registry.EncodeYAML(want)
				if err != nil {
					return err
				}
				buf.WriteString(registry.UnifiedDiff("served", file, ya, yb))
			default:
				writeDiff(&buf, changes, true)
			}
			cmd.Print(buf.String())
			if fail {
				exitFunc(2)
			}
			return nil
		},
	}
	f.AddFlags(cmd)
	cmd.Flags().StringVar(&file, "file", "schema.yaml", "schema file")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|markdown|unified)")
	cmd.Flags().BoolVar(&fail, "fail-on-change", false, "exit 2 if drift detected")
	return cmd
}

func writeDiff(buf *bytes.Buffer, changes []registry.Change, color bool) {
	const (
		green  = "\x1b[32m"
		red    = "\x1b[31m"
		yellow = "\x1b[33m"
		reset  = "\x1b[0m"
	)
	line := func(c, s string) {
		if color {
			fmt.Fprintf(buf, "%s%s%s\n", c, s, reset)
			return
		}
		buf.WriteString(s + "\n")
	}
	for _, c := range changes {
		switch c.Type {
		case registry.ChangeAdded:
			line(green, fmt.Sprintf("+ %s (%s)", c.Key(), c.New.Type))
		case registry.ChangeDeleted:
			line(red, fmt.Sprintf("- %s (%s)", c.Key(), c.Old.Type))
		case registry.ChangeUpdated:
			line(yellow, fmt.Sprintf("± %s %s", c.Key(), updatedDetail(c.Old, c.New)))
		}
	}
}

func updatedDetail(old, new *registry.Field) string {
	var parts []string
	if old.Label != new.Label {
		parts = append(parts, fmt.Sprintf("label: %s → %s", old.Label, new.Label))
	}
	if old.Type != new.Type {
		parts = append(parts, fmt.Sprintf("type: %s → %s", old.Type, new.Type))
	}
	if old.Order != new.Order {
		parts = append(parts, fmt.Sprintf("order: %d → %d", old.Order, new.Order))
	}
	if len(old.Options.Choices) != len(new.Options.Choices) {
		parts = append(parts, fmt.Sprintf("choices: %d → %d", len(old.Options.Choices), len(new.Options.Choices)))
	}
	if len(old.Options.SubFields) != len(new.Options.SubFields) {
		parts = append(parts, fmt.Sprintf("sub_fields: %d → %d", len(old.Options.SubFields), len(new.Options.SubFields)))
	}
	if len(parts) == 0 {
		return "options changed"
	}
	return strings.Join(parts, ", ")
}
