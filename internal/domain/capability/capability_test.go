package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrincipalContext(t *testing.T) {
	if got := FromContext(context.Background()); !got.IsAnonymous() || got.Roles[0] != AnonymousRole {
		t.Fatalf("want anonymous, got %+v", got)
	}
	p := Principal{Subject: "alice", Roles: []string{"editor"}}
	got := FromContext(WithPrincipal(context.Background(), p))
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("principal (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alice", "editor"}, got.Subjects()); diff != "" {
		t.Fatalf("subjects (-want +got):\n%s", diff)
	}
}

func TestRequire(t *testing.T) {
	editorsOnly := CheckerFunc(func(p Principal, c Name) bool {
		for _, r := range p.Roles {
			if r == "editor" && c == EditPages {
				return true
			}
		}
		return false
	})
	if err := Require(editorsOnly, Principal{Roles: []string{"editor"}}, EditPages); err != nil {
		t.Fatalf("editor denied: %v", err)
	}
	if err := Require(editorsOnly, Anonymous(), EditPages); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if err := Require(nil, Anonymous(), ManageFields); err != nil {
		t.Fatalf("nil checker should allow: %v", err)
	}
}
