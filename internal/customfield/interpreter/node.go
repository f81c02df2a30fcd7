package interpreter

import "strings"

// NodeKind identifies how a node is presented.
type NodeKind string

const (
	NodeText     NodeKind = "text"
	NodeTextarea NodeKind = "textarea"
	NodeRichText NodeKind = "richtext"
	NodeSelect   NodeKind = "select"
	NodeCheckbox NodeKind = "checkbox"
	NodeImage    NodeKind = "image"
	NodeRepeater NodeKind = "repeater"
	NodeRecord   NodeKind = "record"
	NodeGroup    NodeKind = "group"
)

// Option is one choice of a select node.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Node is one element of the render tree. Leaf nodes carry an input name and
// value; repeaters, records and groups carry children.
type Node struct {
	Kind        NodeKind `json:"kind"`
	Key         string   `json:"key,omitempty"`
	Label       string   `json:"label,omitempty"`
	Name        string   `json:"name,omitempty"`
	ID          string   `json:"id,omitempty"`
	Value       string   `json:"value,omitempty"`
	Description string   `json:"description,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Rows        int      `json:"rows,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Checked     bool     `json:"checked,omitempty"`
	Preview     string   `json:"preview,omitempty"`
	Button      string   `json:"button,omitempty"`
	Index       int      `json:"index,omitempty"`
	Children    []Node   `json:"children,omitempty"`
}

// Form is the rendered meta box of one post type.
type Form struct {
	PostType string `json:"post_type"`
	Fields   []Node `json:"fields"`
}

// DOMID derives an element id from an input name: sections[0][title]
// becomes sections_0_title.
func DOMID(name string) string {
	r := strings.NewReplacer("][", "_", "[", "_", "]", "")
	return r.Replace(name)
}

// HasRepeater reports whether any top level field is a repeater.
func (f Form) HasRepeater() bool {
	for _, n := range f.Fields {
		if n.Kind == NodeRepeater {
			return true
		}
	}
	return false
}
