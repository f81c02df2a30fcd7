package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
)

// Category groups pages of one post type.
type Category struct {
	ID       int64  `json:"id" db:"id"`
	PostType string `json:"post_type" db:"post_type"`
	Name     string `json:"name" db:"name"`
	Slug     string `json:"slug" db:"slug"`
}

// Taxonomy is the name of the category taxonomy of the post type.
func (c Category) Taxonomy() string { return TaxonomyFor(c.PostType) }

// TaxonomyFor returns "<post_type>_category".
func TaxonomyFor(postType string) string { return postType + "_category" }

// CategoryStore persists categories.
type CategoryStore struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

func (s *CategoryStore) table() string { return s.TablePrefix + "categories" }

// List returns the categories of postType ordered by name.
func (s *CategoryStore) List(ctx context.Context, postType string) ([]Category, error) {
	var res []Category
	q := query.New(s.DB, s.table(), s.Dialect).
		Select("id", "post_type", "name", "slug").
		Where("post_type", postType).
		OrderBy("name", "asc").
		WithContext(ctx)
	if err := q.Get(&res); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return res, nil
}

// Resolve finds a category by numeric id or by slug.
func (s *CategoryStore) Resolve(ctx context.Context, postType, idOrSlug string) (Category, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	q := query.New(s.DB, s.table(), s.Dialect).
		Select("id", "post_type", "name", "slug").
		Where("post_type", postType)
	if id, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil {
		q.Where("id", id)
	} else {
		q.Where("slug", idOrSlug)
	}
	var c Category
	if err := q.WithContext(ctx).First(&c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// Create inserts c, deriving the slug from the name when empty.
func (s *CategoryStore) Create(ctx context.Context, c Category) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Category{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if c.Slug = Slugify(c.Slug); c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Slug == "" {
		return Category{}, fmt.Errorf("%w: slug is empty", ErrInvalid)
	}
	if _, err := s.Resolve(ctx, c.PostType, c.Slug); err == nil {
		return Category{}, fmt.Errorf("%w: %q", ErrSlugTaken, c.Slug)
	} else if !errors.Is(err, ErrNotFound) {
		return Category{}, err
	}
	id, err := query.New(s.DB, s.table(), s.Dialect).WithContext(ctx).InsertGetId(map[string]any{
		"post_type": c.PostType,
		"name":      c.Name,
		"slug":      c.Slug,
	})
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	c.ID = id
	return c, nil
}
