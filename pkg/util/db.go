package util

import (
	"fmt"
	"strconv"
	"strings"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
)

// UnsupportedDialect is returned when a driver has no corresponding goquent dialect.
// It renders plain `?` placeholders, which is what sqlite3 expects.
type UnsupportedDialect struct{ Driver string }

func (UnsupportedDialect) Placeholder(int) string { return "?" }

func (UnsupportedDialect) QuoteIdent(ident string) string { return ident }

// DetectDriver returns the driver name based on the DSN scheme.
// Supported schemes: mysql, postgres/postgresql and sqlite/file. The scheme is
// read before any URL parsing because go-sql-driver DSNs such as
// mysql://u:p@tcp(host:3306)/db are not valid URLs.
func DetectDriver(dsn string) (string, error) {
	if dsn == ":memory:" {
		return "sqlite3", nil
	}
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		scheme, _, ok = strings.Cut(dsn, ":")
	}
	if !ok || scheme == "" {
		return "", fmt.Errorf("dsn has no scheme")
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3", "file":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unknown scheme: %s", scheme)
	}
}

// OpenDSN strips the mysql:// scheme that go-sql-driver/mysql does not accept
// and makes MySQL scan DATETIME columns into time.Time.
func OpenDSN(driver, dsn string) string {
	switch driver {
	case "mysql":
		dsn = strings.TrimPrefix(dsn, "mysql://")
		if strings.Contains(dsn, "parseTime=") {
			return dsn
		}
		if strings.Contains(dsn, "?") {
			return dsn + "&parseTime=true"
		}
		return dsn + "?parseTime=true"
	case "sqlite3":
		return strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite3://"), "sqlite://")
	}
	return dsn
}

// DialectFromDriver returns the goquent dialect corresponding to a driver.
func DialectFromDriver(d string) ormdriver.Dialect {
	switch d {
	case "postgres":
		return ormdriver.PostgresDialect{}
	case "mysql":
		return ormdriver.MySQLDialect{}
	default:
		return UnsupportedDialect{Driver: d}
	}
}

// Placeholder returns the n-th (1-based) bind parameter for driver.
func Placeholder(driver string, n int) string {
	if driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns a comma separated list of count bind parameters
// starting at position start.
func Placeholders(driver string, start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = Placeholder(driver, start+i)
	}
	return strings.Join(parts, ", ")
}
