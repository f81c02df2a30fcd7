package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a field template id does not exist.
	ErrNotFound = errors.New("field template not found")
	// ErrUnknownType is returned for tags outside the FieldType enum.
	ErrUnknownType = errors.New("unknown field type")
	// ErrInvalid wraps validation failures on write.
	ErrInvalid = errors.New("invalid field template")
)

// Field is one template row: a typed attribute attached to pages of a post type.
type Field struct {
	ID       int64     `json:"id" yaml:"-"`
	PostType string    `json:"post_type" yaml:"-"`
	Key      string    `json:"field_key" yaml:"key"`
	Label    string    `json:"field_label" yaml:"label"`
	Type     FieldType `json:"field_type" yaml:"type"`
	Options  Options   `json:"field_options" yaml:"options,omitempty"`
	Order    int       `json:"field_order" yaml:"order"`
	Active   bool      `json:"is_active" yaml:"-"`
}

// Choice is one select option.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// SubField describes one column of a repeater record or group.
type SubField struct {
	Key   string    `json:"key" yaml:"key"`
	Label string    `json:"label" yaml:"label"`
	Type  FieldType `json:"type" yaml:"type"`
}

// Options is the type dependent payload stored in field_options.
type Options struct {
	Choices     []Choice   `json:"options,omitempty" yaml:"options,omitempty"`
	SubFields   []SubField `json:"sub_fields,omitempty" yaml:"sub_fields,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Default     string     `json:"default,omitempty" yaml:"default,omitempty"`
	Rows        int        `json:"rows,omitempty" yaml:"rows,omitempty"`
	Placeholder string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// IsZero reports whether no option is set.
func (o Options) IsZero() bool {
	return len(o.Choices) == 0 && len(o.SubFields) == 0 && o.Description == "" &&
		!o.Required && o.Default == "" && o.Rows == 0 && o.Placeholder == ""
}

// EncodeOptions serializes options for the field_options column.
func EncodeOptions(o Options) (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeOptions parses a stored payload. An empty payload, the legacy "[]"
// form and malformed JSON all decode to empty options; ok is false only for
// malformed input so callers can log it.
func DecodeOptions(raw string) (o Options, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" || raw == "null" {
		return Options{}, true
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return Options{}, false
	}
	for i := range o.SubFields {
		o.SubFields[i].Type = o.SubFields[i].Type.Normalize()
	}
	return o, true
}

// Sub returns the i-th sub-field as a standalone Field so it can be
// dispatched like a top level one.
func (f Field) Sub(i int) Field {
	sf := f.Options.SubFields[i]
	return Field{PostType: f.PostType, Key: sf.Key, Label: sf.Label, Type: sf.Type.Normalize(), Active: true}
}

// SubFieldList returns every sub-field as a Field.
func (f Field) SubFieldList() []Field {
	out := make([]Field, len(f.Options.SubFields))
	for i := range f.Options.SubFields {
		out[i] = f.Sub(i)
	}
	return out
}

// Canonical returns a copy with aliases resolved and keys trimmed.
func (f Field) Canonical() Field {
	f.PostType = strings.TrimSpace(f.PostType)
	f.Key = strings.TrimSpace(f.Key)
	f.Label = strings.TrimSpace(f.Label)
	if t, err := ParseFieldType(string(f.Type)); err == nil {
		f.Type = t
	}
	if len(f.Options.SubFields) > 0 {
		subs := make([]SubField, len(f.Options.SubFields))
		for i, sf := range f.Options.SubFields {
			sf.Key = strings.TrimSpace(sf.Key)
			if t, err := ParseFieldType(string(sf.Type)); err == nil {
				sf.Type = t
			}
			subs[i] = sf
		}
		f.Options.SubFields = subs
	}
	return f
}

// Validate checks a template before it is written.
func (f Field) Validate() error {
	var problems []string
	if strings.TrimSpace(f.PostType) == "" {
		problems = append(problems, "post_type is required")
	}
	if strings.TrimSpace(f.Key) == "" {
		problems = append(problems, "field_key is required")
	}
	if strings.TrimSpace(f.Label) == "" {
		problems = append(problems, "field_label is required")
	}
	if !f.Type.Valid() {
		problems = append(problems, fmt.Sprintf("field_type %q is not supported", f.Type))
	}
	switch f.Type {
	case TypeSelect:
		if len(f.Options.Choices) == 0 {
			problems = append(problems, "select fields need at least one option")
		}
	case TypeRepeater, TypeGroup:
		if len(f.Options.SubFields) == 0 {
			problems = append(problems, string(f.Type)+" fields need at least one sub field")
		}
		seen := map[string]bool{}
		for _, sf := range f.Options.SubFields {
			if sf.Key == "" {
				problems = append(problems, "sub field key is required")
				continue
			}
			if seen[sf.Key] {
				problems = append(problems, fmt.Sprintf("duplicate sub field %q", sf.Key))
			}
			seen[sf.Key] = true
			if st, err := ParseFieldType(string(sf.Type)); err != nil || !st.AllowedAsSubField() {
				problems = append(problems, fmt.Sprintf("sub field %q has unsupported type %q", sf.Key, sf.Type))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
