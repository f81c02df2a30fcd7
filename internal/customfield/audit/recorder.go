// Package audit records who changed which field template.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/pkg/metrics"
	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// Action is the kind of change recorded.
type Action string

const (
	ActionAdd     Action = "add"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionMove    Action = "move"
	ActionReplace Action = "replace"
)

// ActionFor infers add, update or delete from which side is present.
func ActionFor(old, new *registry.Field) Action {
	switch {
	case old == nil && new != nil:
		return ActionAdd
	case old != nil && new == nil:
		return ActionDelete
	default:
		return ActionUpdate
	}
}

// Recorder writes audit logs to the database.
type Recorder struct {
	DB          *sql.DB
	Driver      string
	TablePrefix string
}

// Write records a single field change. A nil recorder is a no-op.
func (r *Recorder) Write(ctx context.Context, actor string, action Action, old, new *registry.Field) error {
	if r == nil || r.DB == nil {
		return nil
	}
	before, err := marshal(old)
	if err != nil {
		return err
	}
	after, err := marshal(new)
	if err != nil {
		return err
	}
	ref := new
	if ref == nil {
		ref = old
	}
	var postType, key string
	if ref != nil {
		postType, key = ref.PostType, ref.Key
	}
	if actor == "" {
		actor = "anonymous"
	}
	stmt := fmt.Sprintf("INSERT INTO %saudit_logs (actor, action, post_type, field_key, before_json, after_json) VALUES (%s)",
		r.TablePrefix, pkgutil.Placeholders(r.Driver, 1, 6))
	if _, err := r.DB.ExecContext(ctx, stmt, actor, string(action), postType, key, before, after); err != nil {
		metrics.AuditErrors.WithLabelValues(string(action)).Inc()
		return fmt.Errorf("write audit log: %w", err)
	}
	metrics.AuditEvents.WithLabelValues(string(action)).Inc()
	return nil
}

func marshal(f *registry.Field) (any, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
