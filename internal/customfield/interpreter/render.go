package interpreter

import (
	"fmt"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

const defaultTextareaRows = 5

// Render builds the form tree for fields with their current values. Missing
// values fall back to the field default and then to the zero value.
func Render(postType string, fields []registry.Field, values Values) Form {
	form := Form{PostType: postType, Fields: make([]Node, 0, len(fields))}
	for _, f := range fields {
		r := renderer{
			name: func(key string) string { return key },
			lookup: func(f registry.Field) Value {
				if v, ok := values[f.Key]; ok {
					return v
				}
				if f.Options.Default != "" && !f.Type.Nested() {
					return Scalar(f.Options.Default)
				}
				return Zero(f)
			},
		}
		form.Fields = append(form.Fields, registry.Dispatch[Node](f, r))
	}
	return form
}

type renderer struct {
	name   func(key string) string
	lookup func(f registry.Field) Value
}

func (r renderer) leaf(kind NodeKind, f registry.Field) Node {
	name := r.name(f.Key)
	return Node{
		Kind:        kind,
		Key:         f.Key,
		Label:       f.Label,
		Name:        name,
		ID:          DOMID(name),
		Value:       r.lookup(f).Scalar,
		Description: f.Options.Description,
		Placeholder: f.Options.Placeholder,
		Required:    f.Options.Required,
	}
}

func (r renderer) Text(f registry.Field) Node { return r.leaf(NodeText, f) }

func (r renderer) Textarea(f registry.Field) Node {
	n := r.leaf(NodeTextarea, f)
	n.Rows = f.Options.Rows
	if n.Rows <= 0 {
		n.Rows = defaultTextareaRows
	}
	return n
}

func (r renderer) RichText(f registry.Field) Node { return r.leaf(NodeRichText, f) }

func (r renderer) Select(f registry.Field) Node {
	n := r.leaf(NodeSelect, f)
	n.Options = make([]Option, 0, len(f.Options.Choices))
	for _, c := range f.Options.Choices {
		n.Options = append(n.Options, Option{Value: c.Value, Label: c.Label, Selected: c.Value == n.Value})
	}
	return n
}

func (r renderer) Boolean(f registry.Field) Node {
	n := r.leaf(NodeCheckbox, f)
	n.Checked = n.Value == "1"
	n.Value = "1"
	return n
}

func (r renderer) Image(f registry.Field) Node {
	n := r.leaf(NodeImage, f)
	n.Preview = n.Value
	n.Button = "Select Image"
	return n
}

func (r renderer) Repeater(f registry.Field) Node {
	name := r.name(f.Key)
	rows := r.lookup(f).List
	count := max(1, len(rows))
	n := Node{
		Kind:        NodeRepeater,
		Key:         f.Key,
		Label:       f.Label,
		Name:        name,
		ID:          DOMID(name),
		Description: f.Options.Description,
		Button:      "Add Item",
		Children:    make([]Node, 0, count),
	}
	subs := f.SubFieldList()
	for i := 0; i < count; i++ {
		var rec Record
		if i < len(rows) {
			rec = rows[i]
		}
		prefix := fmt.Sprintf("%s[%d]", name, i)
		n.Children = append(n.Children, Node{
			Kind:     NodeRecord,
			Name:     prefix,
			ID:       DOMID(prefix),
			Index:    i,
			Children: renderRecord(prefix, subs, rec),
		})
	}
	return n
}

func (r renderer) Group(f registry.Field) Node {
	name := r.name(f.Key)
	return Node{
		Kind:        NodeGroup,
		Key:         f.Key,
		Label:       f.Label,
		Name:        name,
		ID:          DOMID(name),
		Description: f.Options.Description,
		Children:    renderRecord(name, f.SubFieldList(), r.lookup(f).Record),
	}
}

func renderRecord(prefix string, subs []registry.Field, rec Record) []Node {
	sub := renderer{
		name:   func(key string) string { return fmt.Sprintf("%s[%s]", prefix, key) },
		lookup: func(f registry.Field) Value { return Scalar(rec[f.Key]) },
	}
	out := make([]Node, 0, len(subs))
	for _, sf := range subs {
		out = append(out, registry.Dispatch[Node](sf, sub))
	}
	return out
}
