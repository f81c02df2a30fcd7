package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
)

var auditColumns = []string{"id", "actor", "action", "post_type", "field_key", "before_json", "after_json", "applied_at"}

func newAudit(t *testing.T) (*AuditHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return &AuditHandler{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "guide_cms_", Checker: adminsOnly}, mock
}

func TestAuditList(t *testing.T) {
	h, mock := newAudit(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM .?guide_cms_audit_logs.? WHERE .*post_type`).
		WillReturnRows(sqlmock.NewRows(auditColumns).
			AddRow(int64(4), "1", "add", "guide_page", "price", nil, `{"field_key":"price"}`, now))

	out, err := h.list(adminCtx, &auditListParams{PostType: "guide_page"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Body) != 1 || out.Body[0].FieldKey != "price" || out.Body[0].Before != nil {
		t.Fatalf("entries = %+v", out.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAuditForbidden(t *testing.T) {
	h, _ := newAudit(t)
	_, err := h.list(editorCtx, &auditListParams{})
	wantStatus(t, err, http.StatusForbidden)
}

func TestAuditDiff(t *testing.T) {
	h, mock := newAudit(t)
	before := `{"post_type":"guide_page","field_key":"price","field_label":"Price","field_type":"text","field_order":1}`
	after := `{"post_type":"guide_page","field_key":"price","field_label":"Cost","field_type":"text","field_order":1}`
	mock.ExpectQuery(`SELECT .+ FROM .?guide_cms_audit_logs.? WHERE .*id`).
		WillReturnRows(sqlmock.NewRows(auditColumns).
			AddRow(int64(9), "1", "update", "guide_page", "price", before, after, time.Now()))

	out, err := h.getDiff(adminCtx, &struct {
		ID int64 `path:"id"`
	}{ID: 9})
	if err != nil {
		t.Fatalf("getDiff: %v", err)
	}
	u := out.Body.Unified
	if !strings.Contains(u, "a/guide_page.price@9") || !strings.Contains(u, "-label: Price") || !strings.Contains(u, "+label: Cost") {
		t.Fatalf("unexpected diff:\n%s", u)
	}
}

func TestAuditDiffNotFound(t *testing.T) {
	h, mock := newAudit(t)
	mock.ExpectQuery(`SELECT .+ FROM .?guide_cms_audit_logs.?`).WillReturnRows(sqlmock.NewRows(auditColumns))
	_, err := h.getDiff(context.Background(), &struct {
		ID int64 `path:"id"`
	}{ID: 1})
	wantStatus(t, err, http.StatusForbidden)

	_, err = h.getDiff(adminCtx, &struct {
		ID int64 `path:"id"`
	}{ID: 1})
	wantStatus(t, err, http.StatusNotFound)
}
