package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"github.com/iancoleman/strcase"

	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// ErrSlugTaken is returned when an explicit slug is used by another page.
var ErrSlugTaken = errors.New("slug already in use")

var pageColumns = []string{
	"id", "post_type", "slug", "title", "content", "excerpt", "status",
	"category_id", "author", "created_at", "updated_at", "published_at",
}

type pageRow struct {
	ID          int64         `db:"id"`
	PostType    string        `db:"post_type"`
	Slug        string        `db:"slug"`
	Title       string        `db:"title"`
	Content     string        `db:"content"`
	Excerpt     string        `db:"excerpt"`
	Status      string        `db:"status"`
	CategoryID  sql.NullInt64 `db:"category_id"`
	Author      string        `db:"author"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
	PublishedAt sql.NullTime  `db:"published_at"`
}

func (r pageRow) page() Page {
	p := Page{
		ID:        r.ID,
		PostType:  r.PostType,
		Slug:      r.Slug,
		Title:     r.Title,
		Content:   r.Content,
		Excerpt:   r.Excerpt,
		Status:    Status(r.Status),
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.Int64
		p.CategoryID = &id
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time
		p.PublishedAt = &t
	}
	return p
}

// PageStore persists pages through goquent.
type PageStore struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	Driver      string
	TablePrefix string
}

func (s *PageStore) table() string     { return s.TablePrefix + "pages" }
func (s *PageStore) metaTable() string { return s.TablePrefix + "page_meta" }

func (s *PageStore) ready() error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("page store not initialized")
	}
	return nil
}

func (s *PageStore) applyFilters(q *query.Query, p ListParams) {
	q.Where("post_type", p.PostType)
	if p.Status != StatusAny {
		q.Where("status", string(p.Status))
	}
	if p.Slug != "" {
		q.Where("slug", p.Slug)
	}
	if p.CategoryID > 0 {
		q.Where("category_id", p.CategoryID)
	}
	if p.Search != "" {
		like := "%" + p.Search + "%"
		q.WhereGroup(func(g *query.Query) {
			g.WhereRaw("title LIKE :s", map[string]any{"s": like}).
				OrWhereRaw("content LIKE :s", map[string]any{"s": like})
		})
	}
}

// List returns one page of results and the total number of matches.
func (s *PageStore) List(ctx context.Context, p ListParams) ([]Page, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	p = p.Normalize()
	q := query.New(s.DB, s.table(), s.Dialect).Select(pageColumns...)
	s.applyFilters(q, p)
	q.OrderBy(orderColumns[p.OrderBy], p.Order).OrderBy("id", p.Order).
		Limit(p.PerPage).Offset((p.Page - 1) * p.PerPage)

	var rows []pageRow
	if err := q.WithContext(ctx).Get(&rows); err != nil {
		return nil, 0, fmt.Errorf("list pages: %w", err)
	}
	items := make([]Page, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.page())
	}

	cq := query.New(s.DB, s.table(), s.Dialect)
	s.applyFilters(cq, p)
	cnt, err := cq.WithContext(ctx).Count("*")
	if err != nil {
		return nil, 0, fmt.Errorf("count pages: %w", err)
	}
	return items, int(cnt), nil
}

// Get fetches a page of postType by id.
func (s *PageStore) Get(ctx context.Context, postType string, id int64) (Page, error) {
	if err := s.ready(); err != nil {
		return Page{}, err
	}
	return s.first(ctx, query.New(s.DB, s.table(), s.Dialect).
		Select(pageColumns...).
		Where("post_type", postType).
		Where("id", id))
}

// Find fetches a page by id whatever its post type.
func (s *PageStore) Find(ctx context.Context, id int64) (Page, error) {
	if err := s.ready(); err != nil {
		return Page{}, err
	}
	return s.first(ctx, query.New(s.DB, s.table(), s.Dialect).
		Select(pageColumns...).
		Where("id", id))
}

// GetBySlug fetches a page by slug. Only pages with one of statuses match;
// no statuses means any.
func (s *PageStore) GetBySlug(ctx context.Context, postType, slug string, statuses ...Status) (Page, error) {
	if err := s.ready(); err != nil {
		return Page{}, err
	}
	q := query.New(s.DB, s.table(), s.Dialect).
		Select(pageColumns...).
		Where("post_type", postType).
		Where("slug", slug)
	if len(statuses) > 0 {
		vals := make([]string, len(statuses))
		for i, st := range statuses {
			vals[i] = string(st)
		}
		q.WhereIn("status", vals)
	}
	return s.first(ctx, q)
}

func (s *PageStore) first(ctx context.Context, q *query.Query) (Page, error) {
	var r pageRow
	if err := q.WithContext(ctx).First(&r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}
	return r.page(), nil
}

// Create inserts p and returns its id. An empty slug is derived from the
// title and made unique within the post type.
func (s *PageStore) Create(ctx context.Context, p Page) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(p.Title) == "" {
		return 0, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Status == StatusAny {
		return 0, fmt.Errorf("%w: status %q", ErrInvalid, p.Status)
	}
	slug, err := s.resolveSlug(ctx, p.PostType, p.Slug, p.Title, 0)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	data := map[string]any{
		"post_type":  p.PostType,
		"slug":       slug,
		"title":      p.Title,
		"content":    p.Content,
		"excerpt":    p.Excerpt,
		"status":     string(p.Status),
		"author":     p.Author,
		"created_at": now,
		"updated_at": now,
	}
	if p.CategoryID != nil {
		data["category_id"] = *p.CategoryID
	}
	if p.Status == StatusPublish {
		data["published_at"] = now
	}
	id, err := query.New(s.DB, s.table(), s.Dialect).WithContext(ctx).InsertGetId(data)
	if err != nil {
		return 0, fmt.Errorf("insert page: %w", err)
	}
	return id, nil
}

// Update applies patch to the page. published_at is set on the first
// transition to publish.
func (s *PageStore) Update(ctx context.Context, postType string, id int64, patch PagePatch) (Page, error) {
	cur, err := s.Get(ctx, postType, id)
	if err != nil {
		return Page{}, err
	}
	if patch.Empty() {
		return cur, nil
	}
	now := time.Now().UTC()
	data := map[string]any{"updated_at": now}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return Page{}, fmt.Errorf("%w: title is required", ErrInvalid)
		}
		data["title"] = *patch.Title
	}
	if patch.Slug != nil && *patch.Slug != cur.Slug {
		slug, err := s.resolveSlug(ctx, postType, *patch.Slug, cur.Title, id)
		if err != nil {
			return Page{}, err
		}
		data["slug"] = slug
	}
	if patch.Content != nil {
		data["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		data["excerpt"] = *patch.Excerpt
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID == 0 {
			data["category_id"] = nil
		} else {
			data["category_id"] = *patch.CategoryID
		}
	}
	if patch.Status != nil {
		if *patch.Status == StatusAny {
			return Page{}, fmt.Errorf("%w: status %q", ErrInvalid, *patch.Status)
		}
		data["status"] = string(*patch.Status)
		if *patch.Status == StatusPublish && cur.PublishedAt == nil {
			data["published_at"] = now
		}
	}
	q := query.New(s.DB, s.table(), s.Dialect).
		Where("post_type", postType).
		Where("id", id).
		WithContext(ctx)
	if _, err := q.Update(data); err != nil {
		return Page{}, fmt.Errorf("update page: %w", err)
	}
	return s.Get(ctx, postType, id)
}

// Delete removes the page and all of its metadata in one transaction.
func (s *PageStore) Delete(ctx context.Context, postType string, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ph := func(n int) string { return pkgutil.Placeholder(s.Driver, n) }
	res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = %s AND post_type = %s", s.table(), ph(1), ph(2)), id, postType)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE page_id = %s", s.metaTable(), ph(1)), id); err != nil {
		return fmt.Errorf("delete page meta: %w", err)
	}
	return tx.Commit()
}

// resolveSlug validates an explicit slug or derives a unique one from title.
func (s *PageStore) resolveSlug(ctx context.Context, postType, slug, title string, exclude int64) (string, error) {
	explicit := strings.TrimSpace(slug) != ""
	base := Slugify(slug)
	if !explicit {
		base = Slugify(title)
	}
	if base == "" {
		return "", fmt.Errorf("%w: slug is empty", ErrInvalid)
	}
	candidate := base
	for i := 2; i < 100; i++ {
		taken, err := s.slugTaken(ctx, postType, candidate, exclude)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if explicit {
			return "", fmt.Errorf("%w: %q", ErrSlugTaken, candidate)
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("%w: %q", ErrSlugTaken, base)
}

func (s *PageStore) slugTaken(ctx context.Context, postType, slug string, exclude int64) (bool, error) {
	q := query.New(s.DB, s.table(), s.Dialect).
		Where("post_type", postType).
		Where("slug", slug)
	if exclude > 0 {
		q.Where("id", "!=", exclude)
	}
	cnt, err := q.WithContext(ctx).Count("*")
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return cnt > 0, nil
}

// Slugify lowercases s into a URL segment: "Hello World!" becomes
// "hello-world".
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strcase.ToKebab(strings.Join(strings.Fields(b.String()), " "))
}
