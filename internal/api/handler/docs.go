package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	hh "github.com/faciam-dev/guidecms/internal/huma"
)

// DocsHandler describes the REST surface and the fields of each content type.
type DocsHandler struct {
	API       huma.API
	Schema    content.Schema
	PostTypes PostTypeRegistry
}

type docEndpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

type docField struct {
	Key         string             `json:"key"`
	Label       string             `json:"label"`
	Type        registry.FieldType `json:"type"`
	Description string             `json:"description,omitempty"`
	SubFields   []docField         `json:"sub_fields,omitempty"`
}

type docContentType struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Endpoint string          `json:"endpoint"`
	Source   registry.Source `json:"source"`
	Fields   []docField      `json:"fields"`
}

type docsOutput struct {
	Body struct {
		Namespace    string           `json:"namespace"`
		Endpoints    []docEndpoint    `json:"endpoints"`
		ContentTypes []docContentType `json:"content_types"`
	}
}

const namespace = "guide-cms/v1"

func RegisterDocs(api huma.API, h *DocsHandler) {
	h.API = api
	huma.Register(api, huma.Operation{
		OperationID: "getDocs",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/docs",
		Summary:     "REST API documentation",
		Tags:        []string{"Docs"},
	}, h.docs)
}

func (h *DocsHandler) docs(ctx context.Context, _ *struct{}) (*docsOutput, error) {
	out := &docsOutput{}
	out.Body.Namespace = namespace
	out.Body.Endpoints = h.endpoints()
	out.Body.ContentTypes = []docContentType{}
	for _, pt := range h.PostTypes.PostTypes() {
		fs, src, err := h.Schema.Resolve(ctx, pt.Key)
		if err != nil {
			return nil, hh.FromError(err, "get_failed")
		}
		ct := docContentType{Key: pt.Key, Label: pt.Label, Endpoint: "/" + namespace + "/" + pt.Key, Source: src, Fields: []docField{}}
		for _, f := range fs {
			df := docField{Key: f.Key, Label: f.Label, Type: f.Type, Description: f.Options.Description}
			for _, sf := range f.Options.SubFields {
				df.SubFields = append(df.SubFields, docField{Key: sf.Key, Label: sf.Label, Type: sf.Type})
			}
			ct.Fields = append(ct.Fields, df)
		}
		out.Body.ContentTypes = append(out.Body.ContentTypes, ct)
	}
	return out, nil
}

func (h *DocsHandler) endpoints() []docEndpoint {
	var eps []docEndpoint
	if h.API == nil {
		return eps
	}
	for path, item := range h.API.OpenAPI().Paths {
		if !strings.HasPrefix(path, "/"+namespace) {
			continue
		}
		for method, op := range map[string]*huma.Operation{
			http.MethodGet:    item.Get,
			http.MethodPost:   item.Post,
			http.MethodPut:    item.Put,
			http.MethodDelete: item.Delete,
		} {
			if op != nil {
				eps = append(eps, docEndpoint{Method: method, Path: path, Summary: op.Summary})
			}
		}
	}
	slices.SortFunc(eps, func(a, b docEndpoint) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return eps
}
