package handler

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/audit"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/usecase/fields"
	"github.com/faciam-dev/guidecms/pkg/migrator"
)

var (
	adminCtx  = capability.WithPrincipal(context.Background(), capability.Principal{Subject: "1", Roles: []string{"admin"}})
	editorCtx = capability.WithPrincipal(context.Background(), capability.Principal{Subject: "2", Roles: []string{"editor"}})
)

// adminsOnly grants every capability to admins and page editing to editors.
var adminsOnly = capability.CheckerFunc(func(p capability.Principal, c capability.Name) bool {
	for _, r := range p.Roles {
		if r == "admin" || (r == "editor" && c != capability.ManageFields) {
			return true
		}
	}
	return false
})

func openDB(t *testing.T) *sql.DB {
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
	return db
}

func newTemplates(t *testing.T) (*TemplatesHandler, *content.MetaStore) {
	t.Helper()
	db := openDB(t)
	static, err := registry.NewStaticProvider()
	if err != nil {
		t.Fatal(err)
	}
	store := &registry.Store{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}
	resolver := &registry.Resolver{DB: store, Static: static}
	meta := &content.MetaStore{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}
	svc := &fields.Service{
		Store:     store,
		Mover:     &ordering.Resolver{Store: store},
		Audit:     &audit.Recorder{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix},
		PostTypes: resolver,
		Checker:   adminsOnly,
	}
	return &TemplatesHandler{Schema: resolver, PostTypes: resolver, Fields: svc, Projector: projector.New(meta, nil)}, meta
}

func wantStatus(t *testing.T, err error, code int) {
	t.Helper()
	var se huma.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want status %d, got %v", code, err)
	}
	if se.GetStatus() != code {
		t.Fatalf("status = %d, want %d (%v)", se.GetStatus(), code, err)
	}
}
