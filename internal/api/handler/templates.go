package handler

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jinzhu/inflection"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	hh "github.com/faciam-dev/guidecms/internal/huma"
	"github.com/faciam-dev/guidecms/internal/usecase/fields"
)

// TemplatesHandler exposes the resolved schemas and the field write API.
type TemplatesHandler struct {
	Schema    content.Schema
	PostTypes PostTypeRegistry
	Fields    *fields.Service
	Projector *projector.Projector
}

// TemplateSummary describes one content type.
type TemplateSummary struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	LabelPlural string          `json:"label_plural"`
	Taxonomy    string          `json:"taxonomy"`
	FieldCount  int             `json:"field_count"`
	Source      registry.Source `json:"source"`
}

// TemplateDetail is the resolved schema of a content type.
type TemplateDetail struct {
	PostType string           `json:"post_type"`
	Label    string           `json:"label"`
	Source   registry.Source  `json:"source"`
	Fields   []registry.Field `json:"fields"`
}

// FieldBody is the writable part of a field template.
type FieldBody struct {
	Key     string            `json:"field_key,omitempty" doc:"Derived from the label when empty"`
	Label   string            `json:"field_label"`
	Type    string            `json:"field_type" example:"text"`
	Options *registry.Options `json:"field_options,omitempty"`
	Order   int               `json:"field_order,omitempty"`
}

func (b FieldBody) field(postType string) registry.Field {
	f := registry.Field{PostType: postType, Key: b.Key, Label: b.Label, Type: registry.FieldType(b.Type), Order: b.Order}
	if b.Options != nil {
		f.Options = *b.Options
	}
	return f
}

// FieldPatchBody updates the members that are present.
type FieldPatchBody struct {
	PostType *string           `json:"post_type,omitempty"`
	Key      *string           `json:"field_key,omitempty"`
	Label    *string           `json:"field_label,omitempty"`
	Type     *string           `json:"field_type,omitempty"`
	Options  *registry.Options `json:"field_options,omitempty"`
	Order    *int              `json:"field_order,omitempty"`
	Active   *bool             `json:"is_active,omitempty"`
}

func (b FieldPatchBody) patch() registry.Patch {
	p := registry.Patch{PostType: b.PostType, Key: b.Key, Label: b.Label, Options: b.Options, Order: b.Order, Active: b.Active}
	if b.Type != nil {
		t := registry.FieldType(*b.Type)
		p.Type = &t
	}
	return p
}

type templateListOutput struct {
	Body []TemplateSummary
}

type templatePathInput struct {
	PostType string `path:"post_type"`
}

type templateOutput struct {
	Body TemplateDetail
}

type templateReplaceInput struct {
	PostType string `path:"post_type"`
	Body     struct {
		Fields []FieldBody `json:"fields"`
	}
}

type templateResetOutput struct {
	Body struct {
		Message string `json:"message"`
		Removed int64  `json:"removed"`
	}
}

type templateFormInput struct {
	PostType string `path:"post_type"`
	PageID   int64  `query:"page_id" doc:"Fill the form with the values of this page"`
}

type templateFormOutput struct {
	Body interpreter.Form
}

type fieldCreateInput struct {
	PostType string `path:"post_type"`
	Body     FieldBody
}

type fieldOutput struct {
	Body registry.Field
}

type fieldUpdateInput struct {
	ID   int64 `path:"id"`
	Body FieldPatchBody
}

type fieldIDInput struct {
	ID int64 `path:"id"`
}

type fieldMoveInput struct {
	ID   int64 `path:"id"`
	Body struct {
		Direction string `json:"direction" enum:"up,down"`
	}
}

type fieldMoveOutput struct {
	Body ordering.Result
}

func RegisterTemplates(api huma.API, h *TemplatesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listTemplates",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/templates",
		Summary:     "List content types",
		Tags:        []string{"Templates"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID: "getTemplate",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/templates/{post_type}",
		Summary:     "Get the resolved schema of a content type",
		Tags:        []string{"Templates"},
		Errors:      []int{http.StatusNotFound},
	}, h.get)
	huma.Register(api, huma.Operation{
		OperationID: "replaceTemplate",
		Method:      http.MethodPut,
		Path:        "/guide-cms/v1/templates/{post_type}",
		Summary:     "Replace the stored schema of a content type",
		Tags:        []string{"Templates"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.replace)
	huma.Register(api, huma.Operation{
		OperationID: "resetTemplate",
		Method:      http.MethodDelete,
		Path:        "/guide-cms/v1/templates/{post_type}",
		Summary:     "Drop stored fields so the defaults apply again",
		Tags:        []string{"Templates"},
		Errors:      []int{http.StatusNotFound},
	}, h.reset)
	huma.Register(api, huma.Operation{
		OperationID: "renderTemplateForm",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/templates/{post_type}/form",
		Summary:     "Render the field form as a node tree",
		Tags:        []string{"Templates"},
		Errors:      []int{http.StatusNotFound},
	}, h.form)
	huma.Register(api, huma.Operation{
		OperationID:   "createField",
		Method:        http.MethodPost,
		Path:          "/guide-cms/v1/templates/{post_type}/fields",
		Summary:       "Add a field",
		Tags:          []string{"Fields"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.createField)
	huma.Register(api, huma.Operation{
		OperationID: "updateField",
		Method:      http.MethodPut,
		Path:        "/guide-cms/v1/fields/{id}",
		Summary:     "Update a field",
		Tags:        []string{"Fields"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.updateField)
	huma.Register(api, huma.Operation{
		OperationID: "deleteField",
		Method:      http.MethodDelete,
		Path:        "/guide-cms/v1/fields/{id}",
		Summary:     "Delete a field",
		Tags:        []string{"Fields"},
		Errors:      []int{http.StatusNotFound},
	}, h.deleteField)
	huma.Register(api, huma.Operation{
		OperationID: "moveField",
		Method:      http.MethodPost,
		Path:        "/guide-cms/v1/fields/{id}/move",
		Summary:     "Move a field up or down",
		Tags:        []string{"Fields"},
		Errors:      []int{http.StatusNotFound},
	}, h.moveField)
}

func (h *TemplatesHandler) checkPostType(pt string) error {
	if !h.PostTypes.IsPostType(pt) {
		return hh.Error404("rest_no_route", "unknown content type "+pt)
	}
	return nil
}

func (h *TemplatesHandler) list(ctx context.Context, _ *struct{}) (*templateListOutput, error) {
	out := &templateListOutput{Body: []TemplateSummary{}}
	for _, pt := range h.PostTypes.PostTypes() {
		fs, src, err := h.Schema.Resolve(ctx, pt.Key)
		if err != nil {
			return nil, hh.FromError(err, "list_failed")
		}
		out.Body = append(out.Body, TemplateSummary{
			Key:         pt.Key,
			Label:       pt.Label,
			LabelPlural: inflection.Plural(pt.Label),
			Taxonomy:    content.TaxonomyFor(pt.Key),
			FieldCount:  len(fs),
			Source:      src,
		})
	}
	return out, nil
}

func (h *TemplatesHandler) detail(ctx context.Context, pt string) (TemplateDetail, error) {
	fs, src, err := h.Schema.Resolve(ctx, pt)
	if err != nil {
		return TemplateDetail{}, err
	}
	if fs == nil {
		fs = []registry.Field{}
	}
	return TemplateDetail{PostType: pt, Label: h.PostTypes.Label(pt), Source: src, Fields: fs}, nil
}

func (h *TemplatesHandler) get(ctx context.Context, in *templatePathInput) (*templateOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	d, err := h.detail(ctx, in.PostType)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	return &templateOutput{Body: d}, nil
}

func (h *TemplatesHandler) replace(ctx context.Context, in *templateReplaceInput) (*templateOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	fs := make([]registry.Field, len(in.Body.Fields))
	for i, b := range in.Body.Fields {
		fs[i] = b.field(in.PostType)
	}
	if _, err := h.Fields.Replace(ctx, capability.FromContext(ctx), in.PostType, fs); err != nil {
		return nil, hh.FromError(err, "update_failed")
	}
	d, err := h.detail(ctx, in.PostType)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	return &templateOutput{Body: d}, nil
}

func (h *TemplatesHandler) reset(ctx context.Context, in *templatePathInput) (*templateResetOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	n, err := h.Fields.Reset(ctx, capability.FromContext(ctx), in.PostType)
	if err != nil {
		return nil, hh.FromError(err, "delete_failed")
	}
	out := &templateResetOutput{}
	out.Body.Message = "Template reset"
	out.Body.Removed = n
	return out, nil
}

func (h *TemplatesHandler) form(ctx context.Context, in *templateFormInput) (*templateFormOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	fs, _, err := h.Schema.Resolve(ctx, in.PostType)
	if err != nil {
		return nil, hh.FromError(err, "get_failed")
	}
	var vals interpreter.Values
	if in.PageID > 0 {
		if vals, err = h.Projector.Load(ctx, in.PageID, fs); err != nil {
			return nil, hh.FromError(err, "get_failed")
		}
	}
	return &templateFormOutput{Body: interpreter.Render(in.PostType, fs, vals)}, nil
}

func (h *TemplatesHandler) createField(ctx context.Context, in *fieldCreateInput) (*fieldOutput, error) {
	if err := h.checkPostType(in.PostType); err != nil {
		return nil, err
	}
	f, err := h.Fields.Add(ctx, capability.FromContext(ctx), in.Body.field(in.PostType))
	if err != nil {
		return nil, hh.FromError(err, "create_failed")
	}
	return &fieldOutput{Body: f}, nil
}

func (h *TemplatesHandler) updateField(ctx context.Context, in *fieldUpdateInput) (*fieldOutput, error) {
	f, err := h.Fields.Update(ctx, capability.FromContext(ctx), in.ID, in.Body.patch())
	if err != nil {
		return nil, hh.FromError(err, "update_failed")
	}
	return &fieldOutput{Body: f}, nil
}

func (h *TemplatesHandler) deleteField(ctx context.Context, in *fieldIDInput) (*messageOutput, error) {
	if _, err := h.Fields.Delete(ctx, capability.FromContext(ctx), in.ID); err != nil {
		return nil, hh.FromError(err, "delete_failed")
	}
	out := &messageOutput{}
	out.Body.Message = "Field deleted"
	return out, nil
}

func (h *TemplatesHandler) moveField(ctx context.Context, in *fieldMoveInput) (*fieldMoveOutput, error) {
	dir, err := ordering.ParseDirection(in.Body.Direction)
	if err != nil {
		return nil, hh.Error422("body.direction", err.Error())
	}
	res, err := h.Fields.Move(ctx, capability.FromContext(ctx), in.ID, dir)
	if err != nil {
		return nil, hh.FromError(err, "move_failed")
	}
	return &fieldMoveOutput{Body: res}, nil
}
