package interpreter

import (
	"encoding/json"
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/logger"
)

// Sanitizer cleans submitted values per field type.
type Sanitizer struct {
	text *bluemonday.Policy
	rich *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer with a tag stripping policy for plain text
// and the user generated content policy for rich text.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{text: bluemonday.StrictPolicy(), rich: bluemonday.UGCPolicy()}
}

var falsy = map[string]bool{"": true, "0": true, "false": true, "off": true, "no": true}

// Sanitize cleans raw for f. present reports whether the field was part of the
// submission. write is false when nothing should be stored: absent fields are
// left untouched, except booleans which are stored as "0".
func (s *Sanitizer) Sanitize(f registry.Field, raw any, present bool) (v Value, write bool) {
	if !present {
		if f.Type.Normalize() == registry.TypeBoolean {
			return Scalar("0"), true
		}
		return Value{}, false
	}
	return registry.Dispatch[Value](f, sanitizeCall{s: s, raw: raw}), true
}

type sanitizeCall struct {
	s   *Sanitizer
	raw any
}

func (c sanitizeCall) Text(f registry.Field) Value {
	return Scalar(c.s.plain(stringify(c.raw), false))
}

func (c sanitizeCall) Textarea(f registry.Field) Value {
	return Scalar(c.s.plain(stringify(c.raw), true))
}

func (c sanitizeCall) RichText(f registry.Field) Value {
	return Scalar(strings.TrimSpace(c.s.rich.Sanitize(stringify(c.raw))))
}

func (c sanitizeCall) Select(f registry.Field) Value {
	return Scalar(c.s.plain(stringify(c.raw), false))
}

func (c sanitizeCall) Boolean(f registry.Field) Value {
	if truthy(c.raw) {
		return Scalar("1")
	}
	return Scalar("0")
}

func (c sanitizeCall) Image(f registry.Field) Value {
	return Scalar(cleanURL(stringify(c.raw)))
}

func (c sanitizeCall) Repeater(f registry.Field) Value {
	items, ok := sequence(c.raw)
	if !ok {
		return List([]Record{})
	}
	subs := f.SubFieldList()
	out := make([]Record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, c.s.record(subs, m))
	}
	return List(out)
}

func (c sanitizeCall) Group(f registry.Field) Value {
	m, ok := c.raw.(map[string]any)
	if !ok {
		if s, isStr := c.raw.(string); isStr && strings.TrimSpace(s) != "" {
			if err := json.Unmarshal([]byte(s), &m); err != nil {
				logger.L.Warn("malformed group payload", "field_key", f.Key, "err", err)
				m = nil
			}
		}
	}
	return RecordValue(c.s.record(f.SubFieldList(), m))
}

// record keeps declared sub-keys only.
func (s *Sanitizer) record(subs []registry.Field, m map[string]any) Record {
	rec := make(Record, len(subs))
	for _, sf := range subs {
		raw, ok := m[sf.Key]
		if !ok {
			rec[sf.Key] = ""
			continue
		}
		rec[sf.Key] = registry.Dispatch[Value](sf, sanitizeCall{s: s, raw: raw}).Scalar
	}
	return rec
}

// maxPlainPasses bounds plain. Each pass decodes one level of entity escaping,
// so text escaped more than maxPlainPasses times is not guaranteed to come out
// stable.
const maxPlainPasses = 32

// plain strips tags and decodes entities until the text is stable, so a
// second pass is a no-op.
func (s *Sanitizer) plain(in string, multiline bool) string {
	out := in
	for i := 0; i < maxPlainPasses; i++ {
		next := html.UnescapeString(s.text.Sanitize(out))
		if multiline {
			next = strings.ReplaceAll(next, "\r\n", "\n")
		} else {
			next = strings.Join(strings.Fields(next), " ")
		}
		next = strings.TrimSpace(next)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		return !falsy[strings.ToLower(strings.TrimSpace(t))]
	case []any:
		return len(t) > 0 && truthy(t[len(t)-1])
	default:
		return true
	}
}

// cleanURL accepts absolute http(s) URLs and root relative paths.
func cleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		if u.Host == "" {
			return ""
		}
	case u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(raw, "//"):
	default:
		return ""
	}
	return u.String()
}

// sequence accepts a list, a map with numeric keys or a JSON string encoding
// either. Map entries are ordered by key and compacted, so gaps left by removed
// rows do not drop the remaining records.
func sequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		if len(t) == 0 {
			return []any{}, true
		}
		byIndex := make(map[int]any, len(t))
		idx := make([]int, 0, len(t))
		for k, item := range t {
			n, err := strconv.Atoi(k)
			if err != nil || n < 0 {
				return nil, false
			}
			byIndex[n] = item
			idx = append(idx, n)
		}
		sort.Ints(idx)
		out := make([]any, len(idx))
		for i, n := range idx {
			out[i] = byIndex[n]
		}
		return out, true
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(t), &decoded); err != nil {
			return nil, false
		}
		if _, isStr := decoded.(string); isStr {
			return nil, false
		}
		return sequence(decoded)
	default:
		return nil, false
	}
}
