package interpreter

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Bag holds the values of one submission keyed by field key. Nested inputs
// are maps and lists as produced by ParseForm or a JSON body.
type Bag map[string]any

// Lookup returns the raw value for key and whether it was submitted.
func (b Bag) Lookup(key string) (any, bool) {
	v, ok := b[key]
	return v, ok
}

// BagFromJSON decodes a JSON object into a bag.
func BagFromJSON(data []byte) (Bag, error) {
	var b Bag
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b == nil {
		b = Bag{}
	}
	return b, nil
}

// ParseForm builds a bag from form values, decoding bracketed names:
// key[0][sub] and key[sub] become nested maps, key[] becomes a list. When a
// name repeats, the last value wins.
func ParseForm(form url.Values) Bag {
	bag := Bag{}
	for _, name := range sortedKeys(map[string][]string(form)) {
		vals := form[name]
		if len(vals) == 0 {
			continue
		}
		path := splitName(name)
		if path == nil {
			continue
		}
		if path[len(path)-1] == "" {
			list := make([]any, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			assign(bag, path[:len(path)-1], list)
			continue
		}
		assign(bag, path, vals[len(vals)-1])
	}
	return bag
}

// splitName turns a[b][c] into [a b c]. Malformed names are kept whole.
func splitName(name string) []string {
	open := strings.IndexByte(name, '[')
	if open <= 0 {
		if name == "" {
			return nil
		}
		return []string{name}
	}
	path := []string{name[:open]}
	rest := name[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{name}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{name}
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path
}

func assign(root map[string]any, path []string, v any) {
	m := root
	for _, seg := range path[:len(path)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}
