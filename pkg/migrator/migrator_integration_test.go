//go:build integration
// +build integration

package migrator_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/pkg/migrator"
)

func TestMigrateAndReorder_Postgres(t *testing.T) {
	ctx := context.Background()
	container, err := func() (c *postgres.PostgresContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return postgres.Run(ctx, "postgres:16", postgres.WithDatabase("testdb"), postgres.WithUsername("user"), postgres.WithPassword("pass"))
	}()
	if err != nil {
		t.Skipf("container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	exercise(t, "postgres", dsn)
}

func TestMigrateAndReorder_MySQL(t *testing.T) {
	ctx := context.Background()
	container, err := func() (c *mysql.MySQLContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return mysql.Run(ctx, "mysql:8.4", mysql.WithDatabase("testdb"), mysql.WithUsername("user"), mysql.WithPassword("pass"))
	}()
	if err != nil {
		t.Skipf("container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })
	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	exercise(t, "mysql", dsn)
}

func exercise(t *testing.T, driver, dsn string) {
	t.Helper()
	ctx := context.Background()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	m, err := migrator.New(driver, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Up(ctx, db, 0); err != nil {
		t.Fatalf("up: %v", err)
	}
	if v, err := m.Current(ctx, db); err != nil || v != m.Latest() {
		t.Fatalf("current = %d, %v", v, err)
	}

	store := &registry.Store{DB: db, Driver: driver, TablePrefix: migrator.DefaultPrefix}
	var ids []int64
	for i, key := range []string{"price", "area"} {
		id, err := store.AddField(ctx, registry.Field{PostType: "guide_page", Key: key, Label: key, Type: registry.TypeText, Order: i})
		if err != nil {
			t.Fatalf("add %s: %v", key, err)
		}
		ids = append(ids, id)
	}
	res, err := (&ordering.Resolver{Store: store}).Move(ctx, ids[1], ordering.Up)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !res.Moved {
		t.Fatal("expected a swap")
	}
	fields, err := store.ListFields(ctx, "guide_page")
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 || fields[0].Key != "area" {
		t.Fatalf("order after move: %+v", fields)
	}

	if err := m.Down(ctx, db, 0); err != nil {
		t.Fatalf("down: %v", err)
	}
}
