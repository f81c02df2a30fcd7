package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/faciam-dev/goquent/orm/driver"

	"github.com/faciam-dev/guidecms/internal/customfield/audit"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	hh "github.com/faciam-dev/guidecms/internal/huma"
)

type AuditHandler struct {
	DB          *sql.DB
	Dialect     driver.Dialect
	TablePrefix string
	Checker     capability.Checker
}

type auditListParams struct {
	PostType string `query:"post_type"`
	Actor    string `query:"actor"`
	Limit    int    `query:"limit" minimum:"0" maximum:"200"`
}

type auditListOutput struct {
	Body []audit.Entry
}

// auditDiffOutput represents the diff response body.
type auditDiffOutput struct {
	Body struct {
		Unified string `json:"unified"`
	}
}

func RegisterAudit(api huma.API, h *AuditHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listAuditLogs",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/audit",
		Summary:     "List field template changes",
		Tags:        []string{"Audit"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID: "getAuditDiff",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/audit/{id}/diff",
		Summary:     "Unified diff of one change",
		Tags:        []string{"Audit"},
		Errors:      []int{http.StatusNotFound},
	}, h.getDiff)
}

func (h *AuditHandler) list(ctx context.Context, p *auditListParams) (*auditListOutput, error) {
	if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.ManageFields); err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	entries, err := audit.List(ctx, h.DB, h.Dialect, h.TablePrefix, audit.Filter{PostType: p.PostType, Actor: p.Actor, Limit: p.Limit})
	if err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	return &auditListOutput{Body: entries}, nil
}

// getDiff returns a unified diff between the before and after snapshots.
func (h *AuditHandler) getDiff(ctx context.Context, p *struct {
	ID int64 `path:"id"`
}) (*auditDiffOutput, error) {
	if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.ManageFields); err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	e, err := audit.Find(ctx, h.DB, h.Dialect, h.TablePrefix, p.ID)
	if errors.Is(err, audit.ErrNotFound) {
		return nil, hh.Error404("not_found", "audit log not found")
	}
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	before, err := snapshotYAML(e.Before)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	after, err := snapshotYAML(e.After)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	name := e.PostType + "." + e.FieldKey + "@" + strconv.FormatInt(e.ID, 10)
	out := &auditDiffOutput{}
	out.Body.Unified = registry.UnifiedDiff("a/"+name, "b/"+name, before, after)
	return out, nil
}

// snapshotYAML renders a stored field snapshot the way schema files look so
// diffs read like `fieldctl diff`.
func snapshotYAML(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return registry.FieldYAML(raw)
}
