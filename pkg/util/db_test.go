package util

import (
	"testing"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
)

func TestDetectDriver(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@localhost/db", "postgres"},
		{"postgresql://localhost/db", "postgres"},
		{"mysql://u:p@tcp(localhost:3306)/db", "mysql"},
		{"mysql://root@tcp(127.0.0.1:3306)/cms?parseTime=true", "mysql"},
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "postgres"},
		{"file:cms.db?cache=shared", "sqlite3"},
		{"sqlite3://cms.db", "sqlite3"},
		{":memory:", "sqlite3"},
	}
	for _, c := range cases {
		got, err := DetectDriver(c.dsn)
		if err != nil {
			t.Fatalf("DetectDriver(%q): %v", c.dsn, err)
		}
		if got != c.want {
			t.Errorf("DetectDriver(%q)=%q want %q", c.dsn, got, c.want)
		}
	}
	for _, bad := range []string{"redis://localhost", "u:p@tcp(localhost:3306)/db", ""} {
		if _, err := DetectDriver(bad); err == nil {
			t.Errorf("DetectDriver(%q): expected error", bad)
		}
	}
}

func TestDialectFromDriver(t *testing.T) {
	if _, ok := DialectFromDriver("postgres").(ormdriver.PostgresDialect); !ok {
		t.Fatalf("postgres dialect expected")
	}
	if _, ok := DialectFromDriver("mysql").(ormdriver.MySQLDialect); !ok {
		t.Fatalf("mysql dialect expected")
	}
	if _, ok := DialectFromDriver("sqlite3").(UnsupportedDialect); !ok {
		t.Fatalf("fallback dialect expected")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders("postgres", 2, 3); got != "$2, $3, $4" {
		t.Fatalf("postgres placeholders: %q", got)
	}
	if got := Placeholders("mysql", 1, 2); got != "?, ?" {
		t.Fatalf("mysql placeholders: %q", got)
	}
}

func TestOpenDSN(t *testing.T) {
	if got := OpenDSN("mysql", "mysql://u:p@tcp(db:3306)/cms"); got != "u:p@tcp(db:3306)/cms?parseTime=true" {
		t.Fatalf("mysql dsn: %q", got)
	}
	if got := OpenDSN("mysql", "u:p@tcp(db:3306)/cms?charset=utf8mb4"); got != "u:p@tcp(db:3306)/cms?charset=utf8mb4&parseTime=true" {
		t.Fatalf("mysql dsn with params: %q", got)
	}
	if got := OpenDSN("mysql", "u:p@/cms?parseTime=false"); got != "u:p@/cms?parseTime=false" {
		t.Fatalf("explicit parseTime: %q", got)
	}
	if got := OpenDSN("postgres", "postgres://db/cms"); got != "postgres://db/cms" {
		t.Fatalf("postgres dsn: %q", got)
	}
}
