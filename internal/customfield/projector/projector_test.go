package projector

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

type memMeta struct {
	slots  map[int64]map[string]string
	writes int
	err    error
}

func newMemMeta() *memMeta { return &memMeta{slots: map[int64]map[string]string{}} }

func (m *memMeta) GetAll(_ context.Context, pageID int64) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.slots[pageID] {
		out[k] = v
	}
	return out, nil
}

func (m *memMeta) SetMany(_ context.Context, pageID int64, slots map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.writes++
	if m.slots[pageID] == nil {
		m.slots[pageID] = map[string]string{}
	}
	for k, v := range slots {
		m.slots[pageID][k] = v
	}
	return nil
}

type imageMap map[string]Image

func (m imageMap) ResolveImage(_ context.Context, url string) (Image, bool, error) {
	img, ok := m[url]
	return img, ok, nil
}

func schema() []registry.Field {
	return []registry.Field{
		{Key: "service_name", Type: registry.TypeText},
		{Key: "is_featured", Type: registry.TypeBoolean},
		{Key: "banner_image", Type: registry.TypeImage},
		{Key: "features", Type: registry.TypeRepeater, Options: registry.Options{SubFields: []registry.SubField{
			{Key: "feature_title", Type: registry.TypeText},
			{Key: "feature_description", Type: registry.TypeTextarea},
		}}},
	}
}

func TestRepeaterRoundTrip(t *testing.T) {
	meta := newMemMeta()
	p := New(meta, nil)
	ctx := context.Background()

	bag := interpreter.Bag{"features": []any{
		map[string]any{"feature_title": "Fast", "feature_description": "Very"},
		map[string]any{"feature_title": "Cheap", "feature_description": "Always"},
	}}
	if _, err := p.Save(ctx, 7, schema(), bag); err != nil {
		t.Fatalf("Save: %v", err)
	}
	vals, err := p.Load(ctx, 7, schema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []interpreter.Record{
		{"feature_title": "Fast", "feature_description": "Very"},
		{"feature_title": "Cheap", "feature_description": "Always"},
	}
	if diff := cmp.Diff(want, vals["features"].List); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestSaveRepeaterWithRemovedRow(t *testing.T) {
	meta := newMemMeta()
	meta.slots[7] = map[string]string{
		"features": `[{"feature_title":"a"},{"feature_title":"b"},{"feature_title":"c"}]`,
	}
	p := New(meta, nil)
	ctx := context.Background()

	form := url.Values{
		"features[0][feature_title]": {"a"},
		"features[2][feature_title]": {"c"},
	}
	if _, err := p.Save(ctx, 7, schema(), interpreter.ParseForm(form)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	vals, err := p.Load(ctx, 7, schema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []interpreter.Record{
		{"feature_title": "a", "feature_description": ""},
		{"feature_title": "c", "feature_description": ""},
	}
	if diff := cmp.Diff(want, vals["features"].List); diff != "" {
		t.Fatalf("records after removing the middle row (-want +got):\n%s", diff)
	}
}

func TestSaveAbsentFields(t *testing.T) {
	meta := newMemMeta()
	meta.slots[3] = map[string]string{"service_name": "Plumbing", "is_featured": "1"}
	p := New(meta, nil)

	written, err := p.Save(context.Background(), 3, schema(), interpreter.Bag{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"is_featured": "0"}, written); diff != "" {
		t.Fatalf("written (-want +got):\n%s", diff)
	}
	want := map[string]string{"service_name": "Plumbing", "is_featured": "0"}
	if diff := cmp.Diff(want, meta.slots[3]); diff != "" {
		t.Fatalf("stored (-want +got):\n%s", diff)
	}
}

func TestSaveNothingSkipsWrite(t *testing.T) {
	meta := newMemMeta()
	p := New(meta, nil)
	fields := []registry.Field{{Key: "service_name", Type: registry.TypeText}}
	if _, err := p.Save(context.Background(), 1, fields, interpreter.Bag{}); err != nil {
		t.Fatal(err)
	}
	if meta.writes != 0 {
		t.Fatalf("want no writes, got %d", meta.writes)
	}
}

func TestSaveError(t *testing.T) {
	meta := newMemMeta()
	meta.err = errors.New("disk full")
	p := New(meta, nil)
	_, err := p.Save(context.Background(), 1, schema(), interpreter.Bag{"service_name": "x"})
	if !errors.Is(err, meta.err) {
		t.Fatalf("want wrapped store error, got %v", err)
	}
}

func TestLoadZeroValues(t *testing.T) {
	meta := newMemMeta()
	meta.slots[1] = map[string]string{"features": "{broken"}
	vals, err := New(meta, nil).Load(context.Background(), 1, schema())
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(vals)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"banner_image":"","features":[],"is_featured":"0","service_name":""}`
	if string(b) != want {
		t.Fatalf("want %s, got %s", want, b)
	}
}

func TestExpandImages(t *testing.T) {
	p := New(newMemMeta(), imageMap{
		"https://cdn.example.com/a.png": {ID: 4, URL: "https://cdn.example.com/a.png", Width: 640, Height: 480, Alt: "A"},
	})
	fields := []registry.Field{
		{Key: "known", Type: registry.TypeImage},
		{Key: "unknown", Type: registry.TypeImage},
		{Key: "empty", Type: registry.TypeImage},
		{Key: "title", Type: registry.TypeText},
	}
	out := p.Expand(context.Background(), fields, interpreter.Values{
		"known":   interpreter.Scalar("https://cdn.example.com/a.png"),
		"unknown": interpreter.Scalar("/uploads/b.png"),
		"empty":   interpreter.Scalar(""),
		"title":   interpreter.Scalar("Hi"),
	})
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"empty":null,"known":{"id":4,"url":"https://cdn.example.com/a.png","width":640,"height":480,"alt":"A"},"title":"Hi","unknown":{"id":0,"url":"/uploads/b.png","width":0,"height":0,"alt":""}}`
	if string(b) != want {
		t.Fatalf("want %s\ngot  %s", want, b)
	}
}
