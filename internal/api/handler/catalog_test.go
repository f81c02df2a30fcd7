package handler

import (
	"context"
	"net/http"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"

	"github.com/faciam-dev/guidecms/internal/content"
)

func newCatalog(t *testing.T) (*CatalogHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return &CatalogHandler{
		Categories: &content.CategoryStore{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "guide_cms_"},
		Media:      &content.MediaStore{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "guide_cms_"},
		PostTypes:  testPostTypes,
		Checker:    adminsOnly,
	}, mock
}

func TestListCategories(t *testing.T) {
	h, mock := newCatalog(t)
	mock.ExpectQuery(`SELECT .+ FROM .?guide_cms_categories.?`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_type", "name", "slug"}).
			AddRow(int64(1), "guide_page", "Plumbing", "plumbing"))

	out, err := h.listCategories(context.Background(), &categoryListInput{PostType: "guide_page"})
	if err != nil {
		t.Fatalf("listCategories: %v", err)
	}
	if len(out.Body) != 1 || out.Body[0].Taxonomy != "guide_page_category" || out.Body[0].Slug != "plumbing" {
		t.Fatalf("unexpected categories %+v", out.Body)
	}

	_, err = h.listCategories(context.Background(), &categoryListInput{PostType: "post"})
	wantStatus(t, err, http.StatusNotFound)
}

func TestCatalogWritesNeedCapabilities(t *testing.T) {
	h, _ := newCatalog(t)
	in := &categoryCreateInput{PostType: "guide_page"}
	in.Body.Name = "Roofing"
	_, err := h.createCategory(context.Background(), in)
	wantStatus(t, err, http.StatusForbidden)

	m := &mediaCreateInput{}
	m.Body.URL = "https://cdn.example.com/a.png"
	_, err = h.registerMedia(context.Background(), m)
	wantStatus(t, err, http.StatusForbidden)
}
