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

	"github.com/faciam-dev/guidecms/internal/customfield/projector"
)

// Media is a registered image.
type Media struct {
	ID        int64     `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	Alt       string    `json:"alt" db:"alt"`
	MimeType  string    `json:"mime_type" db:"mime_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Image converts m to the expanded field representation.
func (m Media) Image() projector.Image {
	return projector.Image{ID: m.ID, URL: m.URL, Width: m.Width, Height: m.Height, Alt: m.Alt}
}

var mediaColumns = []string{"id", "url", "width", "height", "alt", "mime_type", "created_at"}

// MediaStore persists media items.
type MediaStore struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

func (s *MediaStore) table() string { return s.TablePrefix + "media" }

// Get fetches a media item by id.
func (s *MediaStore) Get(ctx context.Context, id int64) (Media, error) {
	return s.first(ctx, query.New(s.DB, s.table(), s.Dialect).Select(mediaColumns...).Where("id", id))
}

// ByURL fetches a media item by its URL.
func (s *MediaStore) ByURL(ctx context.Context, url string) (Media, error) {
	return s.first(ctx, query.New(s.DB, s.table(), s.Dialect).Select(mediaColumns...).Where("url", url))
}

func (s *MediaStore) first(ctx context.Context, q *query.Query) (Media, error) {
	var m Media
	if err := q.WithContext(ctx).First(&m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Media{}, ErrNotFound
		}
		return Media{}, err
	}
	return m, nil
}

// Register stores m. Registering a known URL updates its attributes and
// returns the existing id.
func (s *MediaStore) Register(ctx context.Context, m Media) (Media, error) {
	m.URL = strings.TrimSpace(m.URL)
	if !strings.HasPrefix(m.URL, "/") && !strings.HasPrefix(m.URL, "http://") && !strings.HasPrefix(m.URL, "https://") {
		return Media{}, fmt.Errorf("%w: url must be absolute http(s) or root relative", ErrInvalid)
	}
	if m.Width < 0 || m.Height < 0 {
		return Media{}, fmt.Errorf("%w: negative dimensions", ErrInvalid)
	}
	data := map[string]any{
		"width":     m.Width,
		"height":    m.Height,
		"alt":       m.Alt,
		"mime_type": m.MimeType,
	}
	existing, err := s.ByURL(ctx, m.URL)
	switch {
	case err == nil:
		q := query.New(s.DB, s.table(), s.Dialect).Where("id", existing.ID).WithContext(ctx)
		if _, err := q.Update(data); err != nil {
			return Media{}, fmt.Errorf("update media: %w", err)
		}
		return s.Get(ctx, existing.ID)
	case !errors.Is(err, ErrNotFound):
		return Media{}, err
	}
	data["url"] = m.URL
	data["created_at"] = time.Now().UTC()
	id, err := query.New(s.DB, s.table(), s.Dialect).WithContext(ctx).InsertGetId(data)
	if err != nil {
		return Media{}, fmt.Errorf("insert media: %w", err)
	}
	return s.Get(ctx, id)
}

// ResolveImage implements projector.ImageResolver.
func (s *MediaStore) ResolveImage(ctx context.Context, url string) (projector.Image, bool, error) {
	m, err := s.ByURL(ctx, url)
	if errors.Is(err, ErrNotFound) {
		return projector.Image{}, false, nil
	}
	if err != nil {
		return projector.Image{}, false, err
	}
	return m.Image(), true, nil
}
