package ordering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/pkg/migrator"
)

func setup(t *testing.T) (*registry.Store, *sql.DB) {
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
	return &registry.Store{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}, db
}

func seed(t *testing.T, s *registry.Store, orders ...int) []int64 {
	t.Helper()
	var ids []int64
	for i, o := range orders {
		id, err := s.AddField(context.Background(), registry.Field{
			PostType: "guide_page",
			Key:      fmt.Sprintf("f%d", i),
			Label:    fmt.Sprintf("F%d", i),
			Type:     registry.TypeText,
			Order:    o,
		})
		if err != nil {
			t.Fatalf("AddField: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

type slot struct {
	ID    int64
	Order int
}

func snapshot(t *testing.T, s *registry.Store) []slot {
	t.Helper()
	fields, err := s.ListFields(context.Background(), "guide_page")
	if err != nil {
		t.Fatalf("ListFields: %v", err)
	}
	out := make([]slot, 0, len(fields))
	for _, f := range fields {
		out = append(out, slot{f.ID, f.Order})
	}
	return out
}

func TestMoveSwapsWithNeighbor(t *testing.T) {
	s, _ := setup(t)
	ids := seed(t, s, 0, 1, 2)
	r := &Resolver{Store: s}

	res, err := r.Move(context.Background(), ids[1], Up)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Moved || res.Neighbor == nil || res.Neighbor.ID != ids[0] {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []slot{{ids[1], 0}, {ids[0], 1}, {ids[2], 2}}
	if diff := cmp.Diff(want, snapshot(t, s)); diff != "" {
		t.Fatalf("orders mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.Move(context.Background(), ids[1], Down); err != nil {
		t.Fatalf("Move back: %v", err)
	}
	want = []slot{{ids[0], 0}, {ids[1], 1}, {ids[2], 2}}
	if diff := cmp.Diff(want, snapshot(t, s)); diff != "" {
		t.Fatalf("orders after round trip (-want +got):\n%s", diff)
	}
}

func TestMoveAtBoundaryIsNoop(t *testing.T) {
	s, _ := setup(t)
	ids := seed(t, s, 0, 1)
	r := &Resolver{Store: s}
	before := snapshot(t, s)

	for _, tc := range []struct {
		id  int64
		dir Direction
	}{{ids[0], Up}, {ids[1], Down}} {
		res, err := r.Move(context.Background(), tc.id, tc.dir)
		if err != nil {
			t.Fatalf("Move(%d, %s): %v", tc.id, tc.dir, err)
		}
		if res.Moved {
			t.Fatalf("Move(%d, %s) reported a move", tc.id, tc.dir)
		}
	}
	if diff := cmp.Diff(before, snapshot(t, s)); diff != "" {
		t.Fatalf("orders changed (-want +got):\n%s", diff)
	}
}

func TestMoveRenumbersTiedOrders(t *testing.T) {
	s, _ := setup(t)
	ids := seed(t, s, 5, 5, 5)
	r := &Resolver{Store: s}

	if _, err := r.Move(context.Background(), ids[2], Up); err != nil {
		t.Fatalf("Move: %v", err)
	}
	want := []slot{{ids[0], 0}, {ids[2], 1}, {ids[1], 2}}
	if diff := cmp.Diff(want, snapshot(t, s)); diff != "" {
		t.Fatalf("orders mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveNotFound(t *testing.T) {
	s, _ := setup(t)
	ids := seed(t, s, 0, 1)
	r := &Resolver{Store: s}

	if _, err := r.Move(context.Background(), 9999, Up); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("want ErrFieldNotFound, got %v", err)
	}

	inactive := false
	if err := s.UpdateField(context.Background(), ids[1], registry.Patch{Active: &inactive}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Move(context.Background(), ids[1], Up); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("inactive field: want ErrFieldNotFound, got %v", err)
	}
}

func TestMoveRollsBackOnSecondWrite(t *testing.T) {
	s, db := setup(t)
	ids := seed(t, s, 0, 1)
	r := &Resolver{Store: s}

	// the neighbour is written first, so failing on the moved row
	// exercises the rollback of an already applied update
	trigger := fmt.Sprintf(`CREATE TRIGGER fail_move BEFORE UPDATE OF field_order ON %sfield_templates
WHEN NEW.id = %d BEGIN SELECT RAISE(ABORT, 'boom'); END;`, migrator.DefaultPrefix, ids[1])
	if _, err := db.Exec(trigger); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	before := snapshot(t, s)

	if _, err := r.Move(context.Background(), ids[1], Up); err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff(before, snapshot(t, s)); diff != "" {
		t.Fatalf("orders changed after failed move (-want +got):\n%s", diff)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("down"); err != nil || d != Down {
		t.Fatalf("got %q %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatal("expected error")
	}
}
