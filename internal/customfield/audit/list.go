package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
)

// ErrNotFound is returned by Find for unknown ids.
var ErrNotFound = errors.New("audit log not found")

// Entry is one stored audit row.
type Entry struct {
	ID        int64           `json:"id"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	PostType  string          `json:"post_type"`
	FieldKey  string          `json:"field_key"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	AppliedAt time.Time       `json:"applied_at"`
}

var entryColumns = []string{"id", "actor", "action", "post_type", "field_key", "before_json", "after_json", "applied_at"}

type row struct {
	ID        int64          `db:"id"`
	Actor     string         `db:"actor"`
	Action    string         `db:"action"`
	PostType  string         `db:"post_type"`
	FieldKey  string         `db:"field_key"`
	Before    sql.NullString `db:"before_json"`
	After     sql.NullString `db:"after_json"`
	AppliedAt time.Time      `db:"applied_at"`
}

func (r row) entry() Entry {
	e := Entry{ID: r.ID, Actor: r.Actor, Action: r.Action, PostType: r.PostType, FieldKey: r.FieldKey, AppliedAt: r.AppliedAt}
	if r.Before.Valid {
		e.Before = json.RawMessage(r.Before.String)
	}
	if r.After.Valid {
		e.After = json.RawMessage(r.After.String)
	}
	return e
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	PostType string
	Actor    string
	Limit    int
}

// List returns the newest entries first.
func List(ctx context.Context, db *sql.DB, d ormdriver.Dialect, prefix string, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := query.New(db, prefix+"audit_logs", d).
		Select(entryColumns...)
	if f.PostType != "" {
		q.Where("post_type", f.PostType)
	}
	if f.Actor != "" {
		q.Where("actor", f.Actor)
	}
	q.OrderBy("applied_at", "desc").OrderBy("id", "desc").Limit(limit)

	var rows []row
	if err := q.WithContext(ctx).Get(&rows); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// Find returns the entry with the given id or ErrNotFound.
func Find(ctx context.Context, db *sql.DB, d ormdriver.Dialect, prefix string, id int64) (Entry, error) {
	var r row
	err := query.New(db, prefix+"audit_logs", d).
		Select(entryColumns...).
		Where("id", id).
		WithContext(ctx).
		First(&r)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("find audit log: %w", err)
	}
	return r.entry(), nil
}

