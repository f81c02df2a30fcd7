package handler

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	hh "github.com/faciam-dev/guidecms/internal/huma"
)

// CatalogHandler serves categories and media.
type CatalogHandler struct {
	Categories *content.CategoryStore
	Media      *content.MediaStore
	PostTypes  PostTypeRegistry
	Checker    capability.Checker
}

type categoryListInput struct {
	PostType string `path:"post_type"`
}

type categoryView struct {
	content.Category
	Taxonomy string `json:"taxonomy"`
}

type categoryListOutput struct {
	Body []categoryView
}

type categoryCreateInput struct {
	PostType string `path:"post_type"`
	Body     struct {
		Name string `json:"name" minLength:"1"`
		Slug string `json:"slug,omitempty"`
	}
}

type categoryOutput struct {
	Body categoryView
}

type mediaCreateInput struct {
	Body struct {
		URL      string `json:"url" minLength:"1"`
		Width    int    `json:"width,omitempty" minimum:"0"`
		Height   int    `json:"height,omitempty" minimum:"0"`
		Alt      string `json:"alt,omitempty"`
		MimeType string `json:"mime_type,omitempty"`
	}
}

type mediaGetInput struct {
	ID int64 `path:"id"`
}

type mediaOutput struct {
	Body content.Media
}

func RegisterCatalog(api huma.API, h *CatalogHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/{post_type}/categories",
		Summary:     "List categories of a content type",
		Tags:        []string{"Categories"},
		Errors:      []int{http.StatusNotFound},
	}, h.listCategories)
	huma.Register(api, huma.Operation{
		OperationID:   "createCategory",
		Method:        http.MethodPost,
		Path:          "/guide-cms/v1/{post_type}/categories",
		Summary:       "Create a category",
		Tags:          []string{"Categories"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, h.createCategory)
	huma.Register(api, huma.Operation{
		OperationID:   "registerMedia",
		Method:        http.MethodPost,
		Path:          "/guide-cms/v1/media",
		Summary:       "Register a media item",
		Tags:          []string{"Media"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, h.registerMedia)
	huma.Register(api, huma.Operation{
		OperationID: "getMedia",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/media/{id}",
		Summary:     "Get a media item",
		Tags:        []string{"Media"},
		Errors:      []int{http.StatusNotFound},
	}, h.getMedia)
}

func (h *CatalogHandler) listCategories(ctx context.Context, in *categoryListInput) (*categoryListOutput, error) {
	if !h.PostTypes.IsPostType(in.PostType) {
		return nil, hh.Error404("rest_no_route", "unknown content type "+in.PostType)
	}
	cats, err := h.Categories.List(ctx, in.PostType)
	if err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	out := &categoryListOutput{Body: make([]categoryView, 0, len(cats))}
	for _, c := range cats {
		out.Body = append(out.Body, categoryView{Category: c, Taxonomy: c.Taxonomy()})
	}
	return out, nil
}

func (h *CatalogHandler) createCategory(ctx context.Context, in *categoryCreateInput) (*categoryOutput, error) {
	if !h.PostTypes.IsPostType(in.PostType) {
		return nil, hh.Error404("rest_no_route", "unknown content type "+in.PostType)
	}
	if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.EditPages); err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	c, err := h.Categories.Create(ctx, content.Category{PostType: in.PostType, Name: in.Body.Name, Slug: in.Body.Slug})
	if err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	return &categoryOutput{Body: categoryView{Category: c, Taxonomy: c.Taxonomy()}}, nil
}

func (h *CatalogHandler) registerMedia(ctx context.Context, in *mediaCreateInput) (*mediaOutput, error) {
	if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.UploadMedia); err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	b := in.Body
	m, err := h.Media.Register(ctx, content.Media{URL: b.URL, Width: b.Width, Height: b.Height, Alt: b.Alt, MimeType: b.MimeType})
	if err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	return &mediaOutput{Body: m}, nil
}

func (h *CatalogHandler) getMedia(ctx context.Context, in *mediaGetInput) (*mediaOutput, error) {
	m, err := h.Media.Get(ctx, in.ID)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	return &mediaOutput{Body: m}, nil
}
