package registry

import (
	"fmt"
	"strings"
)

// FieldType is the closed set of field kinds a template may declare.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeRichText FieldType = "richtext"
	TypeSelect   FieldType = "select"
	TypeBoolean  FieldType = "boolean"
	TypeImage    FieldType = "image"
	TypeRepeater FieldType = "repeater"
	TypeGroup    FieldType = "group"
)

var allTypes = []FieldType{
	TypeText, TypeTextarea, TypeRichText, TypeSelect,
	TypeBoolean, TypeImage, TypeRepeater, TypeGroup,
}

// legacy tags written by older admin screens
var typeAliases = map[string]FieldType{
	"wysiwyg":  TypeRichText,
	"tinymce":  TypeRichText,
	"checkbox": TypeBoolean,
}

// AllTypes returns every supported field type in display order.
func AllTypes() []FieldType {
	out := make([]FieldType, len(allTypes))
	copy(out, allTypes)
	return out
}

// ParseFieldType resolves a tag, accepting legacy aliases.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range allTypes {
		if string(t) == s {
			return t, nil
		}
	}
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Valid reports whether t is one of the supported types.
func (t FieldType) Valid() bool {
	for _, x := range allTypes {
		if x == t {
			return true
		}
	}
	return false
}

// Normalize maps aliases to their canonical type and unknown tags to text so
// that stored rows always render.
func (t FieldType) Normalize() FieldType {
	if n, err := ParseFieldType(string(t)); err == nil {
		return n
	}
	return TypeText
}

// Nested reports whether the type carries sub-fields.
func (t FieldType) Nested() bool { return t == TypeRepeater || t == TypeGroup }

// AllowedAsSubField reports whether t may appear inside a repeater or group.
func (t FieldType) AllowedAsSubField() bool {
	return t == TypeText || t == TypeTextarea || t == TypeRichText
}

// Handler has one method per field type. Every consumer that branches on the
// type implements it, so adding a type fails to compile until all of them
// handle it.
type Handler[R any] interface {
	Text(f Field) R
	Textarea(f Field) R
	RichText(f Field) R
	Select(f Field) R
	Boolean(f Field) R
	Image(f Field) R
	Repeater(f Field) R
	Group(f Field) R
}

// Dispatch calls the Handler method matching f.Type. Unknown types are
// handled as text.
func Dispatch[R any](f Field, h Handler[R]) R {
	switch f.Type.Normalize() {
	case TypeTextarea:
		return h.Textarea(f)
	case TypeRichText:
		return h.RichText(f)
	case TypeSelect:
		return h.Select(f)
	case TypeBoolean:
		return h.Boolean(f)
	case TypeImage:
		return h.Image(f)
	case TypeRepeater:
		return h.Repeater(f)
	case TypeGroup:
		return h.Group(f)
	default:
		return h.Text(f)
	}
}
