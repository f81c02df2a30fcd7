package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/lib/pq"
)

// DefaultPrefix is the table prefix the embedded SQL is written with.
const DefaultPrefix = "guide_cms_"

// Migration holds migration data for one version.
type Migration struct {
	Version int
	SemVer  string
	UpSQL   string
	DownSQL string
}

// Migrator applies the embedded schema migrations for one driver.
type Migrator struct {
	migrations  []Migration
	TablePrefix string
	Driver      string
	// Log receives every executed statement when set.
	Log io.Writer
}

// New returns a Migrator for driver (mysql, postgres or sqlite3) using
// prefix for every table name.
func New(driver, prefix string) (*Migrator, error) {
	dir := driver
	switch driver {
	case "mysql", "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	migs, err := loadMigrations(dir)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Migrator{migrations: withPrefix(migs, prefix), TablePrefix: prefix, Driver: driver}, nil
}

func withPrefix(migs []Migration, prefix string) []Migration {
	res := make([]Migration, len(migs))
	for i, m := range migs {
		m.UpSQL = strings.ReplaceAll(m.UpSQL, DefaultPrefix, prefix)
		m.DownSQL = strings.ReplaceAll(m.DownSQL, DefaultPrefix, prefix)
		res[i] = m
	}
	return res
}

// Latest returns the highest known version.
func (m *Migrator) Latest() int { return len(m.migrations) }

// SemVer returns the schema semver after version v. Version 0 is "0.0.0".
func (m *Migrator) SemVer(v int) string {
	if v <= 0 || v > len(m.migrations) {
		return "0.0.0"
	}
	return m.migrations[v-1].SemVer
}

// Resolve turns "latest", an integer version or a semver string into a
// version number.
func (m *Migrator) Resolve(target string) (int, error) {
	target = strings.TrimSpace(target)
	if target == "" || target == "latest" {
		return m.Latest(), nil
	}
	if n, err := strconv.Atoi(target); err == nil {
		if n < 0 || n > m.Latest() {
			return 0, fmt.Errorf("version %d out of range 0..%d", n, m.Latest())
		}
		return n, nil
	}
	want, err := semver.NewVersion(target)
	if err != nil {
		return 0, fmt.Errorf("invalid target %q: %w", target, err)
	}
	for _, mig := range m.migrations {
		have, err := semver.NewVersion(mig.SemVer)
		if err != nil {
			continue
		}
		if have.Equal(want) {
			return mig.Version, nil
		}
	}
	return 0, fmt.Errorf("no migration for version %s", want)
}

func (m *Migrator) versionTable() string {
	tbl := m.TablePrefix + "schema_migrations"
	switch m.Driver {
	case "postgres":
		return pq.QuoteIdentifier(tbl)
	case "mysql":
		return "`" + tbl + "`"
	default:
		return `"` + tbl + `"`
	}
}

func (m *Migrator) ensureVersionTable(ctx context.Context, db *sql.DB) error {
	var stmt string
	switch m.Driver {
	case "postgres":
		stmt = "CREATE TABLE IF NOT EXISTS %s (version INTEGER PRIMARY KEY, semver VARCHAR(32) NOT NULL, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())"
	case "mysql":
		stmt = "CREATE TABLE IF NOT EXISTS %s (version INT PRIMARY KEY, semver VARCHAR(32) NOT NULL, applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)"
	default:
		stmt = "CREATE TABLE IF NOT EXISTS %s (version INTEGER PRIMARY KEY, semver VARCHAR(32) NOT NULL, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)"
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(stmt, m.versionTable())) // #nosec G201 -- table name derived from trusted prefix
	return err
}

// Current returns the applied version, creating the version table if needed.
func (m *Migrator) Current(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureVersionTable(ctx, db); err != nil {
		return 0, fmt.Errorf("version table: %w", err)
	}
	row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(version) FROM %s", m.versionTable())) // #nosec G201
	var v sql.NullInt64
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

func splitSQL(src string) []string {
	var (
		res      []string
		buf      strings.Builder
		inSingle bool
		inDouble bool
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '-':
			if !inSingle && !inDouble && i+1 < len(src) && src[i+1] == '-' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				continue
			}
		case ';':
			if !inSingle && !inDouble {
				if s := strings.TrimSpace(buf.String()); s != "" {
					res = append(res, s)
				}
				buf.Reset()
				continue
			}
		}
		buf.WriteByte(c)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		res = append(res, s)
	}
	return res
}

func (m *Migrator) execAll(ctx context.Context, tx *sql.Tx, src string) error {
	for _, stmt := range splitSQL(src) {
		if m.Log != nil {
			fmt.Fprintln(m.Log, stmt+";")
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func (m *Migrator) ph(n int) string {
	if m.Driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Up migrates the schema up to target. target=0 means latest.
func (m *Migrator) Up(ctx context.Context, db *sql.DB, target int) error {
	if target == 0 || target > m.Latest() {
		target = m.Latest()
	}
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	for i := cur; i < target; i++ {
		mig := m.migrations[i]
		if err := m.step(ctx, db, mig.UpSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (version, semver) VALUES (%s, %s)", m.versionTable(), m.ph(1), m.ph(2)), mig.Version, mig.SemVer) // #nosec G201
			return err
		}); err != nil {
			return fmt.Errorf("migrate up to %d: %w", mig.Version, err)
		}
	}
	return nil
}

// Down migrates the schema down to target version.
func (m *Migrator) Down(ctx context.Context, db *sql.DB, target int) error {
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	for i := cur - 1; i >= target; i-- {
		mig := m.migrations[i]
		if err := m.step(ctx, db, mig.DownSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = %s", m.versionTable(), m.ph(1)), mig.Version) // #nosec G201
			return err
		}); err != nil {
			return fmt.Errorf("migrate down from %d: %w", mig.Version, err)
		}
	}
	return nil
}

func (m *Migrator) step(ctx context.Context, db *sql.DB, src string, record func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := m.execAll(ctx, tx, src); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v: %w", rbErr, err)
		}
		return err
	}
	if err := record(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SQLForRange returns SQL statements needed to migrate from->to.
func (m *Migrator) SQLForRange(from, to int) []string {
	var res []string
	if to > from {
		for i := from; i < to; i++ {
			res = append(res, splitSQL(m.migrations[i].UpSQL)...)
		}
	} else if to < from {
		for i := from - 1; i >= to; i-- {
			res = append(res, splitSQL(m.migrations[i].DownSQL)...)
		}
	}
	return res
}
