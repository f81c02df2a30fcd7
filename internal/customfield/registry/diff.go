package registry

import (
	"reflect"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeDeleted   ChangeType = "deleted"
	ChangeUpdated   ChangeType = "updated"
	ChangeUnchanged ChangeType = "unchanged"
)

type Change struct {
	Old  *Field
	New  *Field
	Type ChangeType
}

// Key returns post_type.field_key of whichever side is set.
func (c Change) Key() string {
	if c.New != nil {
		return c.New.PostType + "." + c.New.Key
	}
	return c.Old.PostType + "." + c.Old.Key
}

// stripped strips store-assigned columns.
func stripped(f Field) Field {
	f.ID = 0
	f.Active = true
	return f
}

// Diff compares two schemas field by field, keyed by post type and field key.
func Diff(a, b []Field) []Change {
	result := []Change{}
	oldMap := make(map[string]*Field, len(a))
	for i := range a {
		oldMap[a[i].PostType+"."+a[i].Key] = &a[i]
	}
	for i := range b {
		key := b[i].PostType + "." + b[i].Key
		if old, ok := oldMap[key]; ok {
			if reflect.DeepEqual(stripped(*old), stripped(b[i])) {
				result = append(result, Change{Old: old, New: &b[i], Type: ChangeUnchanged})
			} else {
				result = append(result, Change{Old: old, New: &b[i], Type: ChangeUpdated})
			}
			delete(oldMap, key)
		} else {
			result = append(result, Change{New: &b[i], Type: ChangeAdded})
		}
	}
	deleted := make([]string, 0, len(oldMap))
	for k := range oldMap {
		deleted = append(deleted, k)
	}
	sort.Strings(deleted)
	for _, k := range deleted {
		result = append(result, Change{Old: oldMap[k], Type: ChangeDeleted})
	}
	return result
}

// UnifiedDiff returns a unified diff of two YAML renderings.
func UnifiedDiff(from, to string, a, b []byte) string {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: from,
		ToFile:   to,
		Context:  3,
	}
	out, _ := difflib.GetUnifiedDiffString(d)
	return out
}
