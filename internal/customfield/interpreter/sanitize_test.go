package interpreter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

func field(t registry.FieldType) registry.Field {
	return registry.Field{Key: "k", Label: "K", Type: t}
}

func TestSanitizeText(t *testing.T) {
	s := NewSanitizer()
	cases := []struct {
		name string
		typ  registry.FieldType
		in   any
		want string
	}{
		{"strip tags", registry.TypeText, "  <b>Hello</b>\n world  ", "Hello world"},
		{"decode entities", registry.TypeText, "Tom &amp; Jerry", "Tom & Jerry"},
		{"escaped markup", registry.TypeText, "a &lt;b&gt;x&lt;/b&gt;", "a x"},
		{"number", registry.TypeText, float64(42), "42"},
		{"textarea keeps lines", registry.TypeTextarea, "line1\r\nline2", "line1\nline2"},
		{"select", registry.TypeSelect, " 1 ", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, write := s.Sanitize(field(tc.typ), tc.in, true)
			if !write {
				t.Fatal("expected write")
			}
			if v.Scalar != tc.want {
				t.Fatalf("got %q, want %q", v.Scalar, tc.want)
			}
		})
	}
}

func TestSanitizeScriptRemoved(t *testing.T) {
	s := NewSanitizer()
	v, _ := s.Sanitize(field(registry.TypeText), "<script>alert(1)</script>hi", true)
	if strings.Contains(v.Scalar, "<") || !strings.HasSuffix(v.Scalar, "hi") {
		t.Fatalf("unexpected %q", v.Scalar)
	}

	v, _ = s.Sanitize(field(registry.TypeRichText), `<p onclick="x()">Hi <script>bad()</script><strong>there</strong></p>`, true)
	if !strings.Contains(v.Scalar, "<strong>there</strong>") {
		t.Fatalf("allowed markup dropped: %q", v.Scalar)
	}
	if strings.Contains(v.Scalar, "onclick") || strings.Contains(v.Scalar, "<script") {
		t.Fatalf("unsafe markup kept: %q", v.Scalar)
	}
}

func TestSanitizeBoolean(t *testing.T) {
	s := NewSanitizer()
	f := field(registry.TypeBoolean)
	truthy := []any{"1", "yes", "on", "true", true, float64(1), "anything"}
	falsy := []any{"", "0", "false", "FALSE", "off", " 0 ", false, float64(0), nil}
	for _, in := range truthy {
		if v, _ := s.Sanitize(f, in, true); v.Scalar != "1" {
			t.Errorf("%#v: got %q, want 1", in, v.Scalar)
		}
	}
	for _, in := range falsy {
		if v, _ := s.Sanitize(f, in, true); v.Scalar != "0" {
			t.Errorf("%#v: got %q, want 0", in, v.Scalar)
		}
	}
	v, write := s.Sanitize(f, nil, false)
	if !write || v.Scalar != "0" {
		t.Fatalf("absent boolean: got %q write=%v", v.Scalar, write)
	}
	for _, in := range append(truthy, falsy...) {
		once, _ := s.Sanitize(f, in, true)
		twice, _ := s.Sanitize(f, once.Scalar, true)
		if once.Scalar != twice.Scalar {
			t.Errorf("%#v: not idempotent %q -> %q", in, once.Scalar, twice.Scalar)
		}
	}
}

func TestSanitizeAbsentLeavesValue(t *testing.T) {
	s := NewSanitizer()
	for _, typ := range []registry.FieldType{registry.TypeText, registry.TypeImage, registry.TypeRepeater, registry.TypeGroup} {
		if _, write := s.Sanitize(field(typ), nil, false); write {
			t.Errorf("%s: absent field should not be written", typ)
		}
	}
}

func TestSanitizeImage(t *testing.T) {
	s := NewSanitizer()
	cases := map[string]string{
		"https://example.com/a.png":  "https://example.com/a.png",
		" http://example.com/b.jpg ": "http://example.com/b.jpg",
		"/uploads/c.png":             "/uploads/c.png",
		"javascript:alert(1)":        "",
		"//evil.example.com/x.png":   "",
		"ftp://example.com/file.png": "",
		"relative/path.png":          "",
		"":                           "",
	}
	for in, want := range cases {
		if v, _ := s.Sanitize(field(registry.TypeImage), in, true); v.Scalar != want {
			t.Errorf("%q: got %q, want %q", in, v.Scalar, want)
		}
	}
}

func repeaterField() registry.Field {
	return registry.Field{Key: "features", Label: "Features", Type: registry.TypeRepeater, Options: registry.Options{
		SubFields: []registry.SubField{
			{Key: "feature_title", Label: "Title", Type: registry.TypeText},
			{Key: "feature_description", Label: "Description", Type: registry.TypeTextarea},
		},
	}}
}

func TestSanitizeRepeater(t *testing.T) {
	s := NewSanitizer()
	f := repeaterField()
	in := []any{
		map[string]any{"feature_title": "<i>Fast</i>", "feature_description": "Quick", "extra": "drop"},
		"not a record",
		map[string]any{"feature_title": "Cheap"},
	}
	v, write := s.Sanitize(f, in, true)
	if !write {
		t.Fatal("expected write")
	}
	want := []Record{
		{"feature_title": "Fast", "feature_description": "Quick"},
		{"feature_title": "Cheap", "feature_description": ""},
	}
	if diff := cmp.Diff(want, v.List); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
}

func TestSanitizeRepeaterShapes(t *testing.T) {
	s := NewSanitizer()
	f := repeaterField()

	indexed := map[string]any{
		"1": map[string]any{"feature_title": "B"},
		"0": map[string]any{"feature_title": "A"},
	}
	v, _ := s.Sanitize(f, indexed, true)
	if len(v.List) != 2 || v.List[0]["feature_title"] != "A" || v.List[1]["feature_title"] != "B" {
		t.Fatalf("indexed map: %+v", v.List)
	}

	gap := map[string]any{
		"2":  map[string]any{"feature_title": "C"},
		"0":  map[string]any{"feature_title": "A"},
		"10": map[string]any{"feature_title": "K"},
	}
	v, _ = s.Sanitize(f, gap, true)
	var titles []string
	for _, r := range v.List {
		titles = append(titles, r["feature_title"])
	}
	if diff := cmp.Diff([]string{"A", "C", "K"}, titles); diff != "" {
		t.Fatalf("gapped keys (-want +got):\n%s", diff)
	}

	named := map[string]any{"0": map[string]any{}, "x": map[string]any{}}
	if v, _ := s.Sanitize(f, named, true); len(v.List) != 0 {
		t.Fatalf("non numeric keys should be rejected, got %+v", v.List)
	}

	v, _ = s.Sanitize(f, `[{"feature_title":"J"}]`, true)
	if len(v.List) != 1 || v.List[0]["feature_title"] != "J" {
		t.Fatalf("json string: %+v", v.List)
	}

	if v, _ := s.Sanitize(f, "plain", true); v.Kind != KindList || len(v.List) != 0 {
		t.Fatalf("scalar input: %+v", v)
	}
}

func TestSanitizeGroup(t *testing.T) {
	s := NewSanitizer()
	f := registry.Field{Key: "seo", Type: registry.TypeGroup, Options: registry.Options{
		SubFields: []registry.SubField{{Key: "robots", Type: registry.TypeText}},
	}}
	v, _ := s.Sanitize(f, map[string]any{"robots": " noindex ", "other": "x"}, true)
	if diff := cmp.Diff(Record{"robots": "noindex"}, v.Record); diff != "" {
		t.Fatalf("group (-want +got):\n%s", diff)
	}
}

func TestSanitizeGroupMalformedJSON(t *testing.T) {
	s := NewSanitizer()
	f := registry.Field{Key: "seo", Type: registry.TypeGroup, Options: registry.Options{
		SubFields: []registry.SubField{{Key: "robots", Type: registry.TypeText}},
	}}
	v, write := s.Sanitize(f, `{"robots":`, true)
	if !write {
		t.Fatal("expected write")
	}
	if diff := cmp.Diff(Record{"robots": ""}, v.Record); diff != "" {
		t.Fatalf("group (-want +got):\n%s", diff)
	}
	v, _ = s.Sanitize(f, `{"robots":" index "}`, true)
	if v.Record["robots"] != "index" {
		t.Fatalf("json group: %+v", v.Record)
	}
}

func TestSanitizeNestedEscapes(t *testing.T) {
	s := NewSanitizer()
	in := "&amp;amp;amp;amp;lt;b&amp;amp;amp;amp;gt;x"
	v, _ := s.Sanitize(field(registry.TypeText), in, true)
	again, _ := s.Sanitize(field(registry.TypeText), v.Scalar, true)
	if again.Scalar != v.Scalar {
		t.Fatalf("not stable: %q then %q", v.Scalar, again.Scalar)
	}
}

// raw converts a sanitized value back into submission form.
func raw(v Value) any {
	switch v.Kind {
	case KindList:
		out := make([]any, len(v.List))
		for i, r := range v.List {
			m := map[string]any{}
			for k, s := range r {
				m[k] = s
			}
			out[i] = m
		}
		return out
	case KindRecord:
		m := map[string]any{}
		for k, s := range v.Record {
			m[k] = s
		}
		return m
	default:
		return v.Scalar
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	s := NewSanitizer()
	cases := []struct {
		f  registry.Field
		in any
	}{
		{field(registry.TypeText), "a &lt;b&gt; &amp;amp; <i>c</i>"},
		{field(registry.TypeTextarea), "x\n\n<b>y</b>"},
		{field(registry.TypeRichText), `<a href="https://example.com" onclick="x">link</a><p>para</p>`},
		{field(registry.TypeSelect), "<b>1</b>"},
		{field(registry.TypeImage), "https://example.com/a.png?x=1"},
		{repeaterField(), []any{map[string]any{"feature_title": "&lt;t&gt;", "feature_description": "d"}}},
	}
	for _, tc := range cases {
		once, _ := s.Sanitize(tc.f, tc.in, true)
		twice, _ := s.Sanitize(tc.f, raw(once), true)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("%s not idempotent (-once +twice):\n%s", tc.f.Type, diff)
		}
	}
}
