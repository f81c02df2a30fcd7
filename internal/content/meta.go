package content

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// MetaStore keeps one metadata slot per (page, key).
type MetaStore struct {
	DB          *sql.DB
	Driver      string
	TablePrefix string
}

func (s *MetaStore) table() string { return s.TablePrefix + "page_meta" }

func (s *MetaStore) ph(n int) string { return pkgutil.Placeholder(s.Driver, n) }

func (s *MetaStore) ready() error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("meta store not initialized")
	}
	return nil
}

// GetAll returns every slot of pageID.
func (s *MetaStore) GetAll(ctx context.Context, pageID int64) (map[string]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("SELECT meta_key, meta_value FROM %s WHERE page_id = %s", s.table(), s.ph(1)), pageID)
	if err != nil {
		return nil, fmt.Errorf("select meta: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v.String
	}
	return out, rows.Err()
}

// SetMany upserts slots in a single transaction.
func (s *MetaStore) SetMany(ctx context.Context, pageID int64, slots map[string]string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(slots) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, k := range slices.Sorted(maps.Keys(slots)) {
		if _, err := stmt.ExecContext(ctx, pageID, k, slots[k]); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *MetaStore) upsertSQL() string {
	base := fmt.Sprintf("INSERT INTO %s (page_id, meta_key, meta_value) VALUES (%s)", s.table(), pkgutil.Placeholders(s.Driver, 1, 3))
	if s.Driver == "mysql" {
		return base + " ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)"
	}
	return base + " ON CONFLICT (page_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value"
}

// Delete removes the given keys of pageID.
func (s *MetaStore) Delete(ctx context.Context, pageID int64, keys ...string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, pageID)
	for _, k := range keys {
		args = append(args, k)
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE page_id = %s AND meta_key IN (%s)",
		s.table(), s.ph(1), pkgutil.Placeholders(s.Driver, 2, len(keys)))
	res, err := s.DB.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete meta: %w", err)
	}
	return res.RowsAffected()
}

// KeyRef identifies one stored slot together with its page's post type.
type KeyRef struct {
	PageID   int64
	PostType string
	Key      string
}

// Keys lists every stored slot joined with its page's post type.
func (s *MetaStore) Keys(ctx context.Context) ([]KeyRef, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	pages := s.TablePrefix + "pages"
	stmt := fmt.Sprintf("SELECT m.page_id, p.post_type, m.meta_key FROM %s m JOIN %s p ON p.id = m.page_id ORDER BY m.page_id, m.meta_key", s.table(), pages)
	rows, err := s.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list meta keys: %w", err)
	}
	defer rows.Close()
	var out []KeyRef
	for rows.Next() {
		var r KeyRef
		if err := rows.Scan(&r.PageID, &r.PostType, &r.Key); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
