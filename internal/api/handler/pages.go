package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/events"
	hh "github.com/faciam-dev/guidecms/internal/huma"
	"github.com/faciam-dev/guidecms/internal/logger"
)

// PostTypeRegistry lists the registered content types.
type PostTypeRegistry interface {
	PostTypes() []registry.PostType
	IsPostType(key string) bool
	Label(key string) string
}

// PagesHandler serves the page read and write API of every content type.
type PagesHandler struct {
	Pages      *content.PageStore
	Categories *content.CategoryStore
	Schema     content.Schema
	Projector  *projector.Projector
	Hook       *content.Hook
	Checker    capability.Checker
	PostTypes  PostTypeRegistry
}

// PageView is a page with its projected field values.
type PageView struct {
	content.Page
	Fields map[string]any `json:"fields"`
}

type pageListInput struct {
	PostType string `path:"post_type"`
	Search   string `query:"search"`
	Category string `query:"category"`
	Status   string `query:"status" enum:"publish,draft,private,any"`
	Slug     string `query:"slug"`
	Page     int    `query:"page" minimum:"1" default:"1"`
	PerPage  int    `query:"per_page" minimum:"1" default:"10"`
	OrderBy  string `query:"orderby" enum:"created,date,title,updated,id"`
	Order    string `query:"order" enum:"asc,desc"`
}

type pageListBody struct {
	Items      []PageView `json:"items"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

type pageListOutput struct {
	Total      int `header:"X-WP-Total"`
	TotalPages int `header:"X-WP-TotalPages"`
	Body       pageListBody
}

type pageGetInput struct {
	PostType string `path:"post_type"`
	IDOrSlug string `path:"id" doc:"Numeric id or slug"`
}

type pageOutput struct {
	Body PageView
}

type pageWriteBody struct {
	Title      *string        `json:"title,omitempty"`
	Slug       *string        `json:"slug,omitempty"`
	Content    *string        `json:"content,omitempty"`
	Excerpt    *string        `json:"excerpt,omitempty"`
	Status     *string        `json:"status,omitempty" enum:"publish,draft,private"`
	CategoryID *int64         `json:"category_id,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

type pageCreateInput struct {
	PostType string `path:"post_type"`
	Body     pageWriteBody
}

type pageCreateOutput struct {
	Body struct {
		Message string `json:"message"`
		PageID  int64  `json:"page_id"`
	}
}

type pageUpdateInput struct {
	PostType string `path:"post_type"`
	ID       int64  `path:"id"`
	Body     pageWriteBody
}

type pageUpdateOutput struct {
	Body struct {
		Message string   `json:"message"`
		Page    PageView `json:"page"`
	}
}

type pageDeleteInput struct {
	PostType string `path:"post_type"`
	ID       int64  `path:"id"`
}

type messageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func RegisterPages(api huma.API, h *PagesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listPages",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/{post_type}",
		Summary:     "List pages of a content type",
		Tags:        []string{"Pages"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID: "getPage",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/{post_type}/{id}",
		Summary:     "Get a page by id or slug",
		Tags:        []string{"Pages"},
		Errors:      []int{http.StatusNotFound},
	}, h.get)
	huma.Register(api, huma.Operation{
		OperationID:   "createPage",
		Method:        http.MethodPost,
		Path:          "/guide-cms/v1/{post_type}",
		Summary:       "Create a page",
		Tags:          []string{"Pages"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusConflict, http.StatusUnprocessableEntity},
	}, h.create)
	huma.Register(api, huma.Operation{
		OperationID: "updatePage",
		Method:      http.MethodPut,
		Path:        "/guide-cms/v1/{post_type}/{id}",
		Summary:     "Update a page and its fields",
		Tags:        []string{"Pages"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, h.update)
	huma.Register(api, huma.Operation{
		OperationID: "deletePage",
		Method:      http.MethodDelete,
		Path:        "/guide-cms/v1/{post_type}/{id}",
		Summary:     "Delete a page and its metadata",
		Tags:        []string{"Pages"},
		Errors:      []int{http.StatusNotFound},
	}, h.delete)
}

func (h *PagesHandler) checkPostType(pt string) error {
	if !h.PostTypes.IsPostType(pt) {
		return hh.Error404("rest_no_route", "unknown content type "+strconv.Quote(pt))
	}
	return nil
}

func (h *PagesHandler) list(ctx context.Context, in *pageListInput) (*pageListOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	status, err := content.ParseStatus(in.Status, content.StatusPublish)
	if err != nil {
		return nil, hh.Error422("query.status", err.Error())
	}
	if status != content.StatusPublish {
		if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.ReadPrivate); err != nil {
			return nil, hh.FromError(err, "list_failed")
		}
	}
	params := content.ListParams{
		PostType: in.PostType,
		Search:   in.Search,
		Status:   status,
		Slug:     in.Slug,
		Page:     in.Page,
		PerPage:  in.PerPage,
		OrderBy:  in.OrderBy,
		Order:    in.Order,
	}.Normalize()
	out := &pageListOutput{Body: pageListBody{Items: []PageView{}}}
	if in.Category != "" {
		cat, err := h.Categories.Resolve(ctx, in.PostType, in.Category)
		if errors.Is(err, content.ErrNotFound) {
			return out, nil
		}
		if err != nil {
			return nil, hh.FromError(err, "list_failed")
		}
		params.CategoryID = cat.ID
	}
	pages, total, err := h.Pages.List(ctx, params)
	if err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	fields, _, err := h.Schema.Resolve(ctx, in.PostType)
	if err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	for _, p := range pages {
		v, err := h.view(ctx, p, fields)
		if err != nil {
			return nil, hh.FromError(err, "list_failed")
		}
		out.Body.Items = append(out.Body.Items, v)
	}
	out.Total = total
	out.TotalPages = params.TotalPages(total)
	out.Body.Total = out.Total
	out.Body.TotalPages = out.TotalPages
	return out, nil
}

func (h *PagesHandler) get(ctx context.Context, in *pageGetInput) (*pageOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	p, err := h.lookup(ctx, in.PostType, in.IDOrSlug)
	if errors.Is(err, content.ErrNotFound) {
		return nil, hh.Error404("rest_post_invalid_id", "Invalid post ID or slug.")
	}
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	v, err := h.render(ctx, p)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	return &pageOutput{Body: v}, nil
}

// lookup resolves a numeric id or a slug. Unpublished pages are only
// visible to principals that may read private content.
func (h *PagesHandler) lookup(ctx context.Context, pt, idOrSlug string) (content.Page, error) {
	canPrivate := capability.Require(h.Checker, capability.FromContext(ctx), capability.ReadPrivate) == nil
	if id, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil && id > 0 {
		p, err := h.Pages.Get(ctx, pt, id)
		if err != nil {
			return content.Page{}, err
		}
		if p.Status != content.StatusPublish && !canPrivate {
			return content.Page{}, content.ErrNotFound
		}
		return p, nil
	}
	statuses := []content.Status{content.StatusPublish}
	if canPrivate {
		statuses = append(statuses, content.StatusDraft, content.StatusPrivate)
	}
	return h.Pages.GetBySlug(ctx, pt, strings.TrimSpace(idOrSlug), statuses...)
}

func (h *PagesHandler) render(ctx context.Context, p content.Page) (PageView, error) {
	fields, _, err := h.Schema.Resolve(ctx, p.PostType)
	if err != nil {
		return PageView{}, err
	}
	return h.view(ctx, p, fields)
}

func (h *PagesHandler) view(ctx context.Context, p content.Page, fields []registry.Field) (PageView, error) {
	vals, err := h.Projector.Load(ctx, p.ID, fields)
	if err != nil {
		return PageView{}, err
	}
	return PageView{Page: p, Fields: h.Projector.Expand(ctx, fields, vals)}, nil
}

func (h *PagesHandler) create(ctx context.Context, in *pageCreateInput) (*pageCreateOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	pr := capability.FromContext(ctx)
	if err := capability.Require(h.Checker, pr, capability.EditPages); err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	b := in.Body
	page := content.Page{PostType: in.PostType, Author: pr.Subject, CategoryID: b.CategoryID}
	page.Title = deref(b.Title)
	page.Slug = deref(b.Slug)
	page.Content = deref(b.Content)
	page.Excerpt = deref(b.Excerpt)
	if b.Status != nil {
		page.Status = content.Status(*b.Status)
	}
	id, err := h.Pages.Create(ctx, page)
	if err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	if b.Meta != nil {
		if _, err := h.Hook.OnSave(ctx, pr, content.SaveEvent{PageID: id, PostType: in.PostType, Bag: interpreter.Bag(b.Meta)}); err != nil {
			return nil, hh.FromError(err, "create_failed")
		}
	}
	events.Emit(ctx, events.For(events.PageCreated, in.PostType, pr.Subject, map[string]any{"page_id": id}))
	out := &pageCreateOutput{}
	out.Body.Message = "Page created successfully"
	out.Body.PageID = id
	return out, nil
}

func (h *PagesHandler) update(ctx context.Context, in *pageUpdateInput) (*pageUpdateOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	pr := capability.FromContext(ctx)
	if err := capability.Require(h.Checker, pr, capability.EditPages); err != nil {
		return nil, hh.FromError(err, "update_failed")
	}
	b := in.Body
	patch := content.PagePatch{Title: b.Title, Slug: b.Slug, Content: b.Content, Excerpt: b.Excerpt, CategoryID: b.CategoryID}
	if b.Status != nil {
		st := content.Status(*b.Status)
		patch.Status = &st
	}
	p, err := h.Pages.Update(ctx, in.PostType, in.ID, patch)
	if err != nil {
		return nil, hh.FromError(err, "update_failed")
	}
	if b.Meta != nil {
		if _, err := h.Hook.OnSave(ctx, pr, content.SaveEvent{PageID: p.ID, PostType: p.PostType, Bag: interpreter.Bag(b.Meta)}); err != nil {
			return nil, hh.FromError(err, "update_failed")
		}
	}
	events.Emit(ctx, events.For(events.PageUpdated, p.PostType, pr.Subject, map[string]any{"page_id": p.ID}))
	v, err := h.render(ctx, p)
	if err != nil {
		return nil, hh.FromError(err, "update_failed")
	}
	out := &pageUpdateOutput{}
	out.Body.Message = "Page updated successfully"
	out.Body.Page = v
	return out, nil
}

func (h *PagesHandler) delete(ctx context.Context, in *pageDeleteInput) (*messageOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	pr := capability.FromContext(ctx)
	if err := capability.Require(h.Checker, pr, capability.EditPages); err != nil {
		return nil, hh.FromError(err, "delete_failed")
	}
	if err := h.Pages.Delete(ctx, in.PostType, in.ID); err != nil {
		return nil, hh.FromError(err, "delete_failed")
	}
	logger.L.Info("page deleted", "post_type", in.PostType, "id", in.ID, "actor", pr.Subject)
	events.Emit(ctx, events.For(events.PageDeleted, in.PostType, pr.Subject, map[string]any{"page_id": in.ID}))
	out := &messageOutput{}
	out.Body.Message = "Page deleted successfully"
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
