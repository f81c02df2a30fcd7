package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/pkg/migrator"
	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

type staticSchema map[string][]registry.Field

func (s staticSchema) Resolve(_ context.Context, pt string) ([]registry.Field, registry.Source, error) {
	return s[pt], registry.SourceStatic, nil
}

type postTypeList []registry.PostType

func (l postTypeList) PostTypes() []registry.PostType { return l }

func (l postTypeList) IsPostType(k string) bool { return l.Label(k) != "" }

func (l postTypeList) Label(k string) string {
	for _, pt := range l {
		if pt.Key == k {
			return pt.Label
		}
	}
	return ""
}

var testPostTypes = postTypeList{{Key: "guide_page", Label: "Guide Page"}}

var pageCols = []string{
	"id", "post_type", "slug", "title", "content", "excerpt", "status",
	"category_id", "author", "created_at", "updated_at", "published_at",
}

func newPages(t *testing.T) (*PagesHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	schema := staticSchema{"guide_page": {
		{PostType: "guide_page", Key: "h1_title", Label: "H1 Title", Type: registry.TypeText},
	}}
	meta := &content.MetaStore{DB: db, Driver: "mysql", TablePrefix: "guide_cms_"}
	proj := projector.New(meta, nil)
	return &PagesHandler{
		Pages:      &content.PageStore{DB: db, Dialect: ormdriver.MySQLDialect{}, Driver: "mysql", TablePrefix: "guide_cms_"},
		Categories: &content.CategoryStore{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "guide_cms_"},
		Schema:     schema,
		Projector:  proj,
		Hook:       &content.Hook{Schema: schema, Projector: proj, Checker: adminsOnly},
		Checker:    adminsOnly,
		PostTypes:  testPostTypes,
	}, mock
}

func TestPagesUnknownPostType(t *testing.T) {
	h, _ := newPages(t)
	_, err := h.list(context.Background(), &pageListInput{PostType: "post"})
	wantStatus(t, err, http.StatusNotFound)
	_, err = h.get(context.Background(), &pageGetInput{PostType: "post", IDOrSlug: "1"})
	wantStatus(t, err, http.StatusNotFound)
}

func TestPagesPrivateListing(t *testing.T) {
	h, _ := newPages(t)
	_, err := h.list(context.Background(), &pageListInput{PostType: "guide_page", Status: "draft"})
	wantStatus(t, err, http.StatusForbidden)
	_, err = h.list(context.Background(), &pageListInput{PostType: "guide_page", Status: "bogus"})
	wantStatus(t, err, http.StatusUnprocessableEntity)
}

func TestPagesGetBySlug(t *testing.T) {
	h, mock := newPages(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM .?guide_cms_pages.? WHERE .*slug`).
		WillReturnRows(sqlmock.NewRows(pageCols).
			AddRow(int64(3), "guide_page", "welcome", "Welcome", "", "", "publish", nil, "1", now, now, now))
	mock.ExpectQuery(`SELECT meta_key, meta_value FROM guide_cms_page_meta WHERE page_id = \?`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"meta_key", "meta_value"}).AddRow("h1_title", "Hello there"))

	out, err := h.get(context.Background(), &pageGetInput{PostType: "guide_page", IDOrSlug: "welcome"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	v, ok := out.Body.Fields["h1_title"].(interpreter.Value)
	if out.Body.ID != 3 || !ok || v.Scalar != "Hello there" {
		t.Fatalf("unexpected view %+v", out.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPagesGetMissing(t *testing.T) {
	h, mock := newPages(t)
	mock.ExpectQuery(`SELECT .+ FROM .?guide_cms_pages.?`).WillReturnRows(sqlmock.NewRows(pageCols))
	_, err := h.get(context.Background(), &pageGetInput{PostType: "guide_page", IDOrSlug: "missing"})
	wantStatus(t, err, http.StatusNotFound)
}

func TestPagesWritesNeedEditPages(t *testing.T) {
	h, _ := newPages(t)
	title := "Hello"
	_, err := h.create(context.Background(), &pageCreateInput{PostType: "guide_page", Body: pageWriteBody{Title: &title}})
	wantStatus(t, err, http.StatusForbidden)
	_, err = h.update(context.Background(), &pageUpdateInput{PostType: "guide_page", ID: 1})
	wantStatus(t, err, http.StatusForbidden)
	_, err = h.delete(context.Background(), &pageDeleteInput{PostType: "guide_page", ID: 1})
	wantStatus(t, err, http.StatusForbidden)
}

func TestPagesDelete(t *testing.T) {
	h, mock := newPages(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM guide_cms_pages WHERE id = \? AND post_type = \?`).
		WithArgs(int64(5), "guide_page").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM guide_cms_page_meta WHERE page_id = \?`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	out, err := h.delete(editorCtx, &pageDeleteInput{PostType: "guide_page", ID: 5})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out.Body.Message != "Page deleted successfully" {
		t.Fatalf("message = %q", out.Body.Message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func newSQLitePages(t *testing.T) http.Handler {
	t.Helper()
	db := openDB(t)
	for _, slug := range []string{"plumbing", "roofing"} {
		if _, err := db.Exec(`INSERT INTO guide_cms_categories (post_type, name, slug) VALUES ('guide_page', ?, ?)`, slug, slug); err != nil {
			t.Fatal(err)
		}
	}
	for i, r := range []struct {
		slug, title, body string
		cat               any
	}{
		{"plumbing-basics", "Plumbing Basics", "pipes", 1},
		{"roof-repair", "Roof Repair", "call a plumber first", 2},
		{"gutters", "Gutters", "rain", 1},
		{"windows", "Windows", "glass", nil},
	} {
		created := fmt.Sprintf("2026-01-0%d 00:00:00", i+1)
		_, err := db.Exec(`INSERT INTO guide_cms_pages (post_type, slug, title, content, status, category_id, created_at, updated_at)
			VALUES ('guide_page', ?, ?, ?, 'publish', ?, ?, ?)`, r.slug, r.title, r.body, r.cat, created, created)
		if err != nil {
			t.Fatal(err)
		}
	}
	dialect := pkgutil.DialectFromDriver("sqlite3")
	schema := staticSchema{"guide_page": {
		{PostType: "guide_page", Key: "h1_title", Label: "H1 Title", Type: registry.TypeText},
	}}
	h := &PagesHandler{
		Pages:      &content.PageStore{DB: db, Dialect: dialect, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix},
		Categories: &content.CategoryStore{DB: db, Dialect: dialect, TablePrefix: migrator.DefaultPrefix},
		Schema:     schema,
		Projector:  projector.New(&content.MetaStore{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}, nil),
		Checker:    adminsOnly,
		PostTypes:  testPostTypes,
	}
	mux := chi.NewMux()
	RegisterPages(humachi.New(mux, huma.DefaultConfig("Guide CMS API", "1.0.0")), h)
	return mux
}

func TestPagesListFiltersAndHeaders(t *testing.T) {
	srv := newSQLitePages(t)
	cases := []struct {
		query      string
		want       []string
		total      string
		totalPages string
	}{
		{"", []string{"windows", "gutters", "roof-repair", "plumbing-basics"}, "4", "1"},
		{"?per_page=3", []string{"windows", "gutters", "roof-repair"}, "4", "2"},
		{"?per_page=3&page=2", []string{"plumbing-basics"}, "4", "2"},
		{"?search=plumb", []string{"roof-repair", "plumbing-basics"}, "2", "1"},
		{"?category=plumbing", []string{"gutters", "plumbing-basics"}, "2", "1"},
		{"?category=2", []string{"roof-repair"}, "1", "1"},
		{"?category=missing", nil, "0", "0"},
		{"?slug=gutters", []string{"gutters"}, "1", "1"},
		{"?orderby=title&order=asc&per_page=2", []string{"gutters", "plumbing-basics"}, "4", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guide-cms/v1/guide_page"+tc.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("X-WP-Total"); got != tc.total {
				t.Errorf("X-WP-Total = %q, want %q", got, tc.total)
			}
			if got := rec.Header().Get("X-WP-TotalPages"); got != tc.totalPages {
				t.Errorf("X-WP-TotalPages = %q, want %q", got, tc.totalPages)
			}
			var body struct {
				Items []struct {
					Slug string `json:"slug"`
				} `json:"items"`
				Total int `json:"total"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, it := range body.Items {
				got = append(got, it.Slug)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("slugs (-want +got):\n%s", diff)
			}
			if strconv.Itoa(body.Total) != tc.total {
				t.Fatalf("body total = %d", body.Total)
			}
		})
	}
}
