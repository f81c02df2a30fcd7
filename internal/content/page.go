// Package content stores pages, their metadata, categories and media.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a page, category or media item is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps rejected input.
	ErrInvalid = errors.New("invalid input")
)

// Status is the publication state of a page.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPublish Status = "publish"
	StatusPrivate Status = "private"
	// StatusAny disables status filtering in listings.
	StatusAny Status = "any"
)

// ParseStatus validates s. An empty string yields def.
func ParseStatus(s string, def Status) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return def, nil
	case StatusDraft, StatusPublish, StatusPrivate, StatusAny:
		return st, nil
	}
	return "", fmt.Errorf("%w: status %q", ErrInvalid, s)
}

// Page is one content item of a post type.
type Page struct {
	ID          int64      `json:"id"`
	PostType    string     `json:"post_type"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt"`
	Status      Status     `json:"status"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Author      string     `json:"author"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// PagePatch holds the attributes of an update; nil fields are left alone.
type PagePatch struct {
	Slug       *string
	Title      *string
	Content    *string
	Excerpt    *string
	Status     *Status
	CategoryID *int64
}

// Empty reports whether p changes nothing.
func (p PagePatch) Empty() bool {
	return p.Slug == nil && p.Title == nil && p.Content == nil && p.Excerpt == nil && p.Status == nil && p.CategoryID == nil
}

// Order columns accepted by listings.
var orderColumns = map[string]string{
	"created": "created_at",
	"date":    "created_at",
	"title":   "title",
	"updated": "updated_at",
	"id":      "id",
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ListParams filters a page listing.
type ListParams struct {
	PostType   string
	Search     string
	Status     Status
	CategoryID int64
	Slug       string
	Page       int
	PerPage    int
	OrderBy    string
	Order      string
}

// Normalize applies defaults and clamps paging.
func (p ListParams) Normalize() ListParams {
	if p.Status == "" {
		p.Status = StatusPublish
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	if _, ok := orderColumns[p.OrderBy]; !ok {
		p.OrderBy = "created"
	}
	if o := strings.ToLower(p.Order); o == "asc" {
		p.Order = "asc"
	} else {
		p.Order = "desc"
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// TotalPages returns the page count for total rows.
func (p ListParams) TotalPages(total int) int {
	if total == 0 || p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}
