package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/faciam-dev/guidecms/internal/logger"
	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// Patch lists the columns UpdateField should change. Nil members are left as is.
type Patch struct {
	PostType *string
	Key      *string
	Label    *string
	Type     *FieldType
	Options  *Options
	Order    *int
	Active   *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.PostType == nil && p.Key == nil && p.Label == nil && p.Type == nil &&
		p.Options == nil && p.Order == nil && p.Active == nil
}

// Apply returns f with the patch applied.
func (p Patch) Apply(f Field) Field {
	if p.PostType != nil {
		f.PostType = *p.PostType
	}
	if p.Key != nil {
		f.Key = *p.Key
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Options != nil {
		f.Options = *p.Options
	}
	if p.Order != nil {
		f.Order = *p.Order
	}
	if p.Active != nil {
		f.Active = *p.Active
	}
	return f
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists field templates in the field_templates table.
type Store struct {
	DB          *sql.DB
	Driver      string // mysql, postgres or sqlite3
	TablePrefix string
}

// Tx exposes the store operations that must run inside one transaction.
type Tx interface {
	GetField(ctx context.Context, id int64) (Field, error)
	ListFields(ctx context.Context, postType string) ([]Field, error)
	SetOrder(ctx context.Context, id int64, order int) error
}

type txStore struct {
	s  *Store
	tx *sql.Tx
}

func (t txStore) GetField(ctx context.Context, id int64) (Field, error) {
	return t.s.getField(ctx, t.tx, id)
}

func (t txStore) ListFields(ctx context.Context, postType string) ([]Field, error) {
	return t.s.listFields(ctx, t.tx, postType)
}

func (t txStore) SetOrder(ctx context.Context, id int64, order int) error {
	return t.s.setOrder(ctx, t.tx, id, order)
}

const fieldColumns = "id, post_type, field_key, field_label, field_type, field_options, field_order, is_active"

func (s *Store) table() string { return s.TablePrefix + "field_templates" }

func (s *Store) ph(n int) string { return pkgutil.Placeholder(s.Driver, n) }

func (s *Store) ready() error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("store not initialized")
	}
	return nil
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(txStore{s: s, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListFields returns the active fields of postType ordered by
// (field_order, id).
func (s *Store) ListFields(ctx context.Context, postType string) ([]Field, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.listFields(ctx, s.DB, postType)
}

// ListAll returns every active field grouped by post type, each group in
// canonical order.
func (s *Store) ListAll(ctx context.Context) (map[string][]Field, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE is_active = %s ORDER BY post_type ASC, field_order ASC, id ASC", fieldColumns, s.table(), s.ph(1))
	fields, err := s.query(ctx, s.DB, q, true)
	if err != nil {
		return nil, err
	}
	out := map[string][]Field{}
	for _, f := range fields {
		out[f.PostType] = append(out[f.PostType], f)
	}
	return out, nil
}

func (s *Store) listFields(ctx context.Context, q querier, postType string) ([]Field, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE post_type = %s AND is_active = %s ORDER BY field_order ASC, id ASC", fieldColumns, s.table(), s.ph(1), s.ph(2))
	return s.query(ctx, q, stmt, postType, true)
}

func (s *Store) query(ctx context.Context, q querier, stmt string, args ...any) ([]Field, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var out []Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanField(r rowScanner) (Field, error) {
	var (
		f       Field
		typ     string
		options sql.NullString
	)
	if err := r.Scan(&f.ID, &f.PostType, &f.Key, &f.Label, &typ, &options, &f.Order, &f.Active); err != nil {
		return Field{}, err
	}
	f.Type = FieldType(typ).Normalize()
	opts, ok := DecodeOptions(options.String)
	if !ok {
		logger.L.Warn("malformed field options", "id", f.ID, "field_key", f.Key)
	}
	f.Options = opts
	return f, nil
}

// GetField returns the template with the given id regardless of is_active.
func (s *Store) GetField(ctx context.Context, id int64) (Field, error) {
	if err := s.ready(); err != nil {
		return Field{}, err
	}
	return s.getField(ctx, s.DB, id)
}

func (s *Store) getField(ctx context.Context, q querier, id int64) (Field, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", fieldColumns, s.table(), s.ph(1))
	f, err := scanField(q.QueryRowContext(ctx, stmt, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Field{}, ErrNotFound
	}
	if err != nil {
		return Field{}, fmt.Errorf("get field: %w", err)
	}
	return f, nil
}

// AddField inserts an active template and returns its id. Key uniqueness is
// not checked here.
func (s *Store) AddField(ctx context.Context, f Field) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.addField(ctx, s.DB, f)
}

func (s *Store) addField(ctx context.Context, q querier, f Field) (int64, error) {
	opts, err := EncodeOptions(f.Options)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}
	cols := "post_type, field_key, field_label, field_type, field_options, field_order, is_active"
	args := []any{f.PostType, f.Key, f.Label, string(f.Type), opts, f.Order, true}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table(), cols, pkgutil.Placeholders(s.Driver, 1, len(args)))
	if s.Driver == "postgres" {
		var id int64
		if err := q.QueryRowContext(ctx, stmt+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert field: %w", err)
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("insert field: %w", err)
	}
	return res.LastInsertId()
}

// UpdateField applies p to the template with the given id.
func (s *Store) UpdateField(ctx context.Context, id int64, p Patch) error {
	if err := s.ready(); err != nil {
		return err
	}
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, s.ph(len(args))))
	}
	if p.PostType != nil {
		add("post_type", *p.PostType)
	}
	if p.Key != nil {
		add("field_key", *p.Key)
	}
	if p.Label != nil {
		add("field_label", *p.Label)
	}
	if p.Type != nil {
		add("field_type", string(*p.Type))
	}
	if p.Options != nil {
		opts, err := EncodeOptions(*p.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		add("field_options", opts)
	}
	if p.Order != nil {
		add("field_order", *p.Order)
	}
	if p.Active != nil {
		add("is_active", *p.Active)
	}
	if len(sets) == 0 {
		_, err := s.GetField(ctx, id)
		return err
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", s.table(), strings.Join(sets, ", "), s.ph(len(args)))
	res, err := s.DB.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update field: %w", err)
	}
	// mysql reports 0 affected rows when nothing changed
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := s.GetField(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) setOrder(ctx context.Context, q querier, id int64, order int) error {
	stmt := fmt.Sprintf("UPDATE %s SET field_order = %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s", s.table(), s.ph(1), s.ph(2))
	if _, err := q.ExecContext(ctx, stmt, order, id); err != nil {
		return fmt.Errorf("set order: %w", err)
	}
	return nil
}

// DeleteField removes the row. Page metadata stored under its key is kept.
func (s *Store) DeleteField(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = %s", s.table(), s.ph(1))
	res, err := s.DB.ExecContext(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete field: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplacePostType swaps the whole schema of postType for fields in one
// transaction. Orders are taken from the slice position.
func (s *Store) ReplacePostType(ctx context.Context, postType string, fields []Field) ([]int64, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	ids, err := s.replace(ctx, tx, postType, fields)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return nil, fmt.Errorf("rollback: %v: %w", rbErr, err)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

func (s *Store) replace(ctx context.Context, tx *sql.Tx, postType string, fields []Field) ([]int64, error) {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE post_type = %s", s.table(), s.ph(1)), postType); err != nil {
		return nil, fmt.Errorf("clear post type: %w", err)
	}
	ids := make([]int64, 0, len(fields))
	for i, f := range fields {
		f.PostType = postType
		f.Order = i
		id, err := s.addField(ctx, tx, f)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteByPostType removes every template of postType and returns how many
// rows were deleted.
func (s *Store) DeleteByPostType(ctx context.Context, postType string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE post_type = %s", s.table(), s.ph(1)), postType)
	if err != nil {
		return 0, fmt.Errorf("delete post type: %w", err)
	}
	return res.RowsAffected()
}

// CountByPostType returns the number of active fields per post type.
func (s *Store) CountByPostType(ctx context.Context) (map[string]int, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("SELECT post_type, COUNT(*) FROM %s WHERE is_active = %s GROUP BY post_type", s.table(), s.ph(1)), true)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var pt string
		var n int
		if err := rows.Scan(&pt, &n); err != nil {
			return nil, err
		}
		res[pt] = n
	}
	return res, rows.Err()
}
