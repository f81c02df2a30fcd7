package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// printFields renders a resolved schema in the selected format.
func printFields(w io.Writer, format, postType string, src registry.Source, fs []registry.Field) error {
	if format == "json" {
		return writeJSON(w, struct {
			PostType string           `json:"post_type"`
			Source   registry.Source  `json:"source"`
			Fields   []registry.Field `json:"fields"`
		}{postType, src, fs})
	}
	fmt.Fprintf(w, "%s (%s)\n", postType, src)
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"ID", "Key", "Label", "Type", "Order", "Sub fields"})
	for _, f := range fs {
		sub := ""
		if n := len(f.Options.SubFields); n > 0 {
			sub = strconv.Itoa(n)
		}
		tw.Append([]string{strconv.FormatInt(f.ID, 10), f.Key, f.Label, string(f.Type), strconv.Itoa(f.Order), sub})
	}
	tw.Render()
	return nil
}
