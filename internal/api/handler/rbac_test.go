package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/faciam-dev/guidecms/internal/auth"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/rbac"
	"github.com/faciam-dev/guidecms/pkg/migrator"
)

func newRBAC(t *testing.T) *RBACHandler {
	t.Helper()
	e, err := rbac.NewEnforcer()
	if err != nil {
		t.Fatal(err)
	}
	db := openDB(t)
	users := &auth.UserRepo{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}
	if _, err := users.Create(context.Background(), "root", "hunter22", "admin"); err != nil {
		t.Fatal(err)
	}
	return &RBACHandler{Enforcer: e, Users: users, Checker: rbac.Checker{E: e}}
}

func TestListRoles(t *testing.T) {
	h := newRBAC(t)
	out, err := h.listRoles(adminCtx, nil)
	if err != nil {
		t.Fatalf("listRoles: %v", err)
	}
	var names []string
	for _, r := range out.Body {
		names = append(names, r.Name)
	}
	if len(names) != 3 || names[0] != "admin" || names[1] != capability.AnonymousRole || names[2] != "editor" {
		t.Fatalf("roles = %v", names)
	}
	if p := out.Body[0].Policies; len(p) != 1 || p[0].Path != "/*" || p[0].Method != "*" {
		t.Fatalf("admin policies = %+v", p)
	}

	_, err = h.listRoles(editorCtx, nil)
	wantStatus(t, err, http.StatusForbidden)
}

func TestListUsers(t *testing.T) {
	h := newRBAC(t)
	out, err := h.listUsers(adminCtx, nil)
	if err != nil {
		t.Fatalf("listUsers: %v", err)
	}
	if len(out.Body) != 1 || out.Body[0].Username != "root" || out.Body[0].Role != "admin" {
		t.Fatalf("users = %+v", out.Body)
	}
	_, err = h.listUsers(context.Background(), nil)
	wantStatus(t, err, http.StatusForbidden)
}

func TestCapabilities(t *testing.T) {
	h := newRBAC(t)
	cases := []struct {
		name string
		ctx  context.Context
		want map[string]bool
	}{
		{"admin", adminCtx, map[string]bool{"manage_fields": true, "edit_pages": true, "read_private_pages": true, "upload_media": true}},
		{"editor", editorCtx, map[string]bool{"manage_fields": false, "edit_pages": true, "read_private_pages": true, "upload_media": true}},
		{"anonymous", context.Background(), map[string]bool{"manage_fields": false, "edit_pages": false, "read_private_pages": false, "upload_media": false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := h.capabilities(tc.ctx, nil)
			if err != nil {
				t.Fatal(err)
			}
			for k, v := range tc.want {
				if out.Body.Capabilities[k] != v {
					t.Errorf("%s = %v, want %v", k, out.Body.Capabilities[k], v)
				}
			}
		})
	}
}
