package registry

import (
	"context"
	"fmt"
)

// Source names the provider a resolved schema came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceStatic   Source = "static"
)

// FieldLister is implemented by Store.
type FieldLister interface {
	ListFields(ctx context.Context, postType string) ([]Field, error)
}

// Resolver combines the database and static providers. Database rows win
// whenever the post type has at least one active row; otherwise the static
// defaults are served.
type Resolver struct {
	DB     FieldLister
	Static *StaticProvider
}

// Resolve returns the canonical schema of postType and where it came from.
func (r *Resolver) Resolve(ctx context.Context, postType string) ([]Field, Source, error) {
	if r.DB != nil {
		fields, err := r.DB.ListFields(ctx, postType)
		if err != nil {
			return nil, "", fmt.Errorf("list fields: %w", err)
		}
		if len(fields) > 0 {
			return fields, SourceDatabase, nil
		}
	}
	if r.Static != nil {
		if fields := r.Static.Fields(postType); len(fields) > 0 {
			return fields, SourceStatic, nil
		}
	}
	return nil, SourceDatabase, nil
}

// PostTypes returns the registered content types.
func (r *Resolver) PostTypes() []PostType {
	if r.Static == nil {
		return nil
	}
	return r.Static.PostTypes()
}

// IsPostType reports whether key is a registered content type.
func (r *Resolver) IsPostType(key string) bool {
	for _, pt := range r.PostTypes() {
		if pt.Key == key {
			return true
		}
	}
	return false
}

// Label returns the singular label of a content type, or the key itself.
func (r *Resolver) Label(key string) string {
	for _, pt := range r.PostTypes() {
		if pt.Key == key {
			return pt.Label
		}
	}
	return key
}

// Schema collects the resolved fields of every registered post type. With
// storedOnly, post types still served by the static defaults are skipped.
func (r *Resolver) Schema(ctx context.Context, storedOnly bool) (Schema, error) {
	s := Schema{Version: currentSchemaVersion}
	for _, pt := range r.PostTypes() {
		fields, src, err := r.Resolve(ctx, pt.Key)
		if err != nil {
			return Schema{}, err
		}
		if storedOnly && (src != SourceDatabase || len(fields) == 0) {
			continue
		}
		pt.Fields = fields
		s.PostTypes = append(s.PostTypes, pt)
	}
	return s, nil
}
