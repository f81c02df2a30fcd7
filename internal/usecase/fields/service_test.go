package fields

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/guidecms/internal/customfield/audit"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/pkg/migrator"
)

type postTypes map[string]bool

func (p postTypes) IsPostType(k string) bool { return p[k] }

type recordingCache struct{ calls [][]string }

func (c *recordingCache) Invalidate(pts ...string) { c.calls = append(c.calls, pts) }

func newService(t *testing.T) (*Service, *sql.DB, *recordingCache) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	m, err := migrator.New("sqlite3", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Up(context.Background(), db, 0); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := &registry.Store{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}
	cache := &recordingCache{}
	svc := &Service{
		Store:     store,
		Mover:     &ordering.Resolver{Store: store},
		Audit:     &audit.Recorder{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix},
		Cache:     cache,
		PostTypes: postTypes{"guide_page": true, "service_page": true},
	}
	return svc, db, cache
}

var admin = capability.Principal{Subject: "alice", Roles: []string{"admin"}}

func auditActions(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT action FROM " + migrator.DefaultPrefix + "audit_logs ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			t.Fatal(err)
		}
		out = append(out, a)
	}
	return out
}

func TestAddDerivesKeyAndAudits(t *testing.T) {
	svc, db, cache := newService(t)
	ctx := context.Background()
	f, err := svc.Add(ctx, admin, registry.Field{
		PostType: "guide_page",
		Label:    "Hero Image",
		Type:     "image",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if f.Key != "hero_image" {
		t.Fatalf("derived key = %q", f.Key)
	}
	got, err := svc.Store.GetField(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Fatalf("stored field mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"add"}, auditActions(t, db)); diff != "" {
		t.Fatalf("audit mismatch:\n%s", diff)
	}
	if len(cache.calls) != 1 || cache.calls[0][0] != "guide_page" {
		t.Fatalf("cache not invalidated: %v", cache.calls)
	}
}

func TestAddRejects(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	cases := []struct {
		name string
		f    registry.Field
		want error
	}{
		{"unknown post type", registry.Field{PostType: "blog", Label: "A", Type: "text"}, ErrUnknownPostType},
		{"empty label", registry.Field{PostType: "guide_page", Key: "a", Type: "text"}, registry.ErrInvalid},
		{"unknown type", registry.Field{PostType: "guide_page", Label: "A", Type: "colour"}, registry.ErrInvalid},
		{"select without options", registry.Field{PostType: "guide_page", Label: "A", Type: "select"}, registry.ErrInvalid},
		{"nested sub field", registry.Field{PostType: "guide_page", Label: "A", Type: "repeater", Options: registry.Options{
			SubFields: []registry.SubField{{Key: "img", Label: "Img", Type: registry.TypeImage}},
		}}, registry.ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, admin, tc.f); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestForbidden(t *testing.T) {
	svc, _, _ := newService(t)
	svc.Checker = capability.CheckerFunc(func(p capability.Principal, c capability.Name) bool {
		return p.Subject == "alice"
	})
	_, err := svc.Add(context.Background(), capability.Principal{Subject: "bob"}, registry.Field{PostType: "guide_page", Label: "A", Type: "text"})
	if !errors.Is(err, capability.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	f, err := svc.Add(ctx, admin, registry.Field{PostType: "guide_page", Key: "intro", Label: "Intro", Type: "text"})
	if err != nil {
		t.Fatal(err)
	}
	typ := registry.FieldType("wysiwyg")
	label := "Introduction"
	got, err := svc.Update(ctx, admin, f.ID, registry.Patch{Type: &typ, Label: &label})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Type != registry.TypeRichText || got.Label != "Introduction" || got.Key != "intro" {
		t.Fatalf("unexpected update result %+v", got)
	}
	stored, _ := svc.Store.GetField(ctx, f.ID)
	if stored.Type != registry.TypeRichText {
		t.Fatalf("alias stored as %q", stored.Type)
	}

	if _, err := svc.Update(ctx, admin, 999, registry.Patch{Label: &label}); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if _, err := svc.Delete(ctx, admin, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Store.GetField(ctx, f.ID); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("field still present: %v", err)
	}
	if diff := cmp.Diff([]string{"add", "update", "delete"}, auditActions(t, db)); diff != "" {
		t.Fatalf("audit mismatch:\n%s", diff)
	}
}

func TestMove(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	a, _ := svc.Add(ctx, admin, registry.Field{PostType: "guide_page", Key: "a", Label: "A", Type: "text", Order: 0})
	b, _ := svc.Add(ctx, admin, registry.Field{PostType: "guide_page", Key: "b", Label: "B", Type: "text", Order: 1})

	res, err := svc.Move(ctx, admin, a.ID, ordering.Up)
	if err != nil || res.Moved {
		t.Fatalf("boundary move: moved=%v err=%v", res.Moved, err)
	}
	res, err = svc.Move(ctx, admin, b.ID, ordering.Up)
	if err != nil || !res.Moved {
		t.Fatalf("move: moved=%v err=%v", res.Moved, err)
	}
	list, _ := svc.Store.ListFields(ctx, "guide_page")
	if list[0].Key != "b" || list[1].Key != "a" {
		t.Fatalf("unexpected order %s, %s", list[0].Key, list[1].Key)
	}
	if _, err := svc.Move(ctx, admin, 404, ordering.Down); !errors.Is(err, ordering.ErrFieldNotFound) {
		t.Fatalf("want ErrFieldNotFound, got %v", err)
	}
	if diff := cmp.Diff([]string{"add", "add", "move"}, auditActions(t, db)); diff != "" {
		t.Fatalf("audit mismatch:\n%s", diff)
	}
}

func TestReplaceAndReset(t *testing.T) {
	svc, db, cache := newService(t)
	ctx := context.Background()
	if _, err := svc.Add(ctx, admin, registry.Field{PostType: "service_page", Key: "old", Label: "Old", Type: "text"}); err != nil {
		t.Fatal(err)
	}
	out, err := svc.Replace(ctx, admin, "service_page", []registry.Field{
		{Key: "price", Label: "Price", Type: "text"},
		{Label: "Featured", Type: "checkbox"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if out[1].Key != "featured" || out[1].Type != registry.TypeBoolean || out[1].Order != 1 {
		t.Fatalf("unexpected replaced field %+v", out[1])
	}
	list, _ := svc.Store.ListFields(ctx, "service_page")
	if len(list) != 2 || list[0].Key != "price" {
		t.Fatalf("unexpected schema after replace: %+v", list)
	}

	_, err = svc.Replace(ctx, admin, "service_page", []registry.Field{
		{Key: "dup", Label: "A", Type: "text"},
		{Key: "dup", Label: "B", Type: "text"},
	})
	if !errors.Is(err, registry.ErrInvalid) {
		t.Fatalf("duplicate keys accepted: %v", err)
	}

	n, err := svc.Reset(ctx, admin, "service_page")
	if err != nil || n != 2 {
		t.Fatalf("Reset: n=%d err=%v", n, err)
	}
	list, _ = svc.Store.ListFields(ctx, "service_page")
	if len(list) != 0 {
		t.Fatalf("fields left after reset: %+v", list)
	}
	// add, replace x3 (old deleted, two added), replace x2 (reset)
	if got := len(auditActions(t, db)); got != 6 {
		t.Fatalf("audit rows = %d", got)
	}
	if len(cache.calls) != 3 {
		t.Fatalf("cache invalidations = %d", len(cache.calls))
	}
}
