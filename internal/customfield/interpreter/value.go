// Package interpreter turns field templates into render trees and sanitizes
// submitted values according to each field type.
package interpreter

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

// Kind is the shape of a stored value.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindRecord
)

// Record is one repeater row or a group value keyed by sub-field.
type Record map[string]string

// Value is a projected field value. Scalars cover every non-nested type;
// repeaters hold a list of records and groups a single record.
type Value struct {
	Kind   Kind
	Scalar string
	List   []Record
	Record Record
}

// Values maps field keys to their projected values.
type Values map[string]Value

func Scalar(s string) Value      { return Value{Kind: KindScalar, Scalar: s} }
func List(rs []Record) Value     { return Value{Kind: KindList, List: rs} }
func RecordValue(r Record) Value { return Value{Kind: KindRecord, Record: r} }

// Zero is the value of an absent slot.
func Zero(f registry.Field) Value {
	switch f.Type.Normalize() {
	case registry.TypeBoolean:
		return Scalar("0")
	case registry.TypeRepeater:
		return List([]Record{})
	case registry.TypeGroup:
		return RecordValue(Record{})
	default:
		return Scalar("")
	}
}

// MarshalJSON writes scalars as strings, lists as arrays and records as
// objects. Empty lists encode as [] rather than null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindRecord:
		if v.Record == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Record)
	default:
		return json.Marshal(v.Scalar)
	}
}

// Encode returns the representation written to a metadata slot.
func (v Value) Encode() (string, error) {
	if v.Kind == KindScalar {
		return v.Scalar, nil
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a stored slot for f. Nested values that fail to decode yield
// the zero value.
func Decode(f registry.Field, raw string) Value {
	switch f.Type.Normalize() {
	case registry.TypeRepeater:
		var rows []map[string]any
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return Zero(f)
		}
		out := make([]Record, 0, len(rows))
		for _, row := range rows {
			if row == nil {
				continue
			}
			out = append(out, toRecord(row))
		}
		return List(out)
	case registry.TypeGroup:
		var row map[string]any
		if err := json.Unmarshal([]byte(raw), &row); err != nil || row == nil {
			return Zero(f)
		}
		return RecordValue(toRecord(row))
	default:
		return Scalar(raw)
	}
}

func toRecord(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = stringify(v)
	}
	return r
}

// stringify flattens a decoded JSON or form scalar.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []any:
		// multi-value form input keeps the last entry
		if len(t) == 0 {
			return ""
		}
		return stringify(t[len(t)-1])
	default:
		return ""
	}
}

// sortedKeys is used wherever map iteration must be stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
