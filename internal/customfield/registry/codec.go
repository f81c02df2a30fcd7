package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const currentSchemaVersion = "1"

// PostType is a content type and, in schema files, its field list.
type PostType struct {
	Key    string  `yaml:"key" json:"key"`
	Label  string  `yaml:"label" json:"label"`
	Fields []Field `yaml:"fields,omitempty" json:"-"`
}

// Schema is the YAML document used for static defaults, export and apply.
type Schema struct {
	Version   string     `yaml:"version"`
	PostTypes []PostType `yaml:"post_types"`
}

// Lookup returns the post type entry with the given key.
func (s Schema) Lookup(key string) (PostType, bool) {
	for _, pt := range s.PostTypes {
		if pt.Key == key {
			return pt, true
		}
	}
	return PostType{}, false
}

// EncodeYAML renders s with the current version tag.
func EncodeYAML(s Schema) ([]byte, error) {
	s.Version = currentSchemaVersion
	return yaml.Marshal(s)
}

// DecodeYAML parses and validates a schema document. Field orders follow
// the list position unless set explicitly.
func DecodeYAML(b []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	if s.Version != "" && s.Version != currentSchemaVersion {
		return Schema{}, fmt.Errorf("unsupported schema version %q", s.Version)
	}
	var errs []error
	seen := map[string]bool{}
	for i := range s.PostTypes {
		pt := &s.PostTypes[i]
		if pt.Key == "" {
			errs = append(errs, fmt.Errorf("post type %d: key is required", i))
			continue
		}
		if seen[pt.Key] {
			errs = append(errs, fmt.Errorf("post type %q declared twice", pt.Key))
		}
		seen[pt.Key] = true
		keys := map[string]bool{}
		for j := range pt.Fields {
			f := pt.Fields[j].Canonical()
			f.PostType = pt.Key
			f.Active = true
			if f.Order == 0 {
				f.Order = j
			}
			if err := f.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", pt.Key, f.Key, err))
			}
			if keys[f.Key] {
				errs = append(errs, fmt.Errorf("%s.%s: duplicate field key", pt.Key, f.Key))
			}
			keys[f.Key] = true
			pt.Fields[j] = f
		}
	}
	if len(errs) > 0 {
		return Schema{}, errors.Join(errs...)
	}
	return s, nil
}

// FieldYAML re-renders a JSON field snapshot as YAML.
func FieldYAML(raw []byte) ([]byte, error) {
	var f Field
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode field: %w", err)
	}
	return yaml.Marshal(f)
}
