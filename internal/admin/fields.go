package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/logger"
)

type fieldRow struct {
	registry.Field
	OptionsJSON string
}

type fieldsView struct {
	Title     string
	Principal capability.Principal
	Notices   []notice
	PostTypes []registry.PostType
	Selected  string
	Source    registry.Source
	ReadOnly  bool
	Rows      []fieldRow
	Types     []registry.FieldType
	Preview   template.HTML
	Nonces    map[string]string
}

// selectedPostType falls back to the default for empty or unknown values.
func (h *Handler) selectedPostType(pt string) string {
	if pt == "" || !h.PostTypes.IsPostType(pt) {
		return DefaultPostType
	}
	return pt
}

func (h *Handler) listFields(w http.ResponseWriter, r *http.Request) {
	p := capability.FromContext(r.Context())
	q := r.URL.Query()
	pt := h.selectedPostType(q.Get("post_type"))

	fs, src, err := h.Schema.Resolve(r.Context(), pt)
	if err != nil {
		logger.L.Error("resolve schema", "post_type", pt, "err", err)
		http.Error(w, "failed to load field templates", http.StatusInternalServerError)
		return
	}
	rows := make([]fieldRow, 0, len(fs))
	for _, f := range fs {
		row := fieldRow{Field: f}
		if !f.Options.IsZero() {
			if raw, err := registry.EncodeOptions(f.Options); err == nil {
				row.OptionsJSON = raw
			}
		}
		rows = append(rows, row)
	}
	preview, err := interpreter.HTML(interpreter.Render(pt, fs, nil))
	if err != nil {
		logger.L.Error("render preview", "post_type", pt, "err", err)
	}
	h.render(w, http.StatusOK, "fields", fieldsView{
		Title:     "Field Templates",
		Principal: p,
		Notices:   notices(q),
		PostTypes: h.PostTypes.PostTypes(),
		Selected:  pt,
		Source:    src,
		ReadOnly:  src == registry.SourceStatic,
		Rows:      rows,
		Types:     registry.AllTypes(),
		Preview:   preview,
		Nonces: map[string]string{
			"add":    h.nonce(p, ActionAddField),
			"delete": h.nonce(p, ActionDeleteField),
			"move":   h.nonce(p, ActionMoveField),
			"edit":   h.nonce(p, ActionEditField),
			"logout": h.nonce(p, ActionLogout),
		},
	})
}

// back redirects to the listing of pt with the given query pairs.
func back(w http.ResponseWriter, r *http.Request, pt string, kv ...string) {
	q := url.Values{"post_type": {pt}}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	http.Redirect(w, r, "/admin/field-templates?"+q.Encode(), http.StatusSeeOther)
}

// guard parses the form and checks the nonce for action. It answers the
// request itself and returns false when the action must not run.
func (h *Handler) guard(w http.ResponseWriter, r *http.Request, action string) (capability.Principal, string, bool) {
	p := capability.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		back(w, r, DefaultPostType, "error", "invalid_nonce")
		return p, "", false
	}
	pt := h.selectedPostType(r.PostFormValue("post_type"))
	if !h.verify(r, p, action) {
		back(w, r, pt, "error", "invalid_nonce")
		return p, pt, false
	}
	return p, pt, true
}

func (h *Handler) addField(w http.ResponseWriter, r *http.Request) {
	p, pt, ok := h.guard(w, r, ActionAddField)
	if !ok {
		return
	}
	f, err := fieldFromForm(r.PostForm)
	if err == nil {
		f.PostType = r.PostFormValue("post_type")
		_, err = h.Fields.Add(r.Context(), p, f)
	}
	if err != nil {
		logger.L.Warn("add field", "post_type", pt, "err", err)
		back(w, r, pt, "error", "create_failed")
		return
	}
	back(w, r, pt, "message", "added")
}

func (h *Handler) deleteField(w http.ResponseWriter, r *http.Request) {
	p, pt, ok := h.guard(w, r, ActionDeleteField)
	if !ok {
		return
	}
	id, err := formID(r, "id")
	if err == nil {
		_, err = h.Fields.Delete(r.Context(), p, id)
	}
	if err != nil {
		logger.L.Warn("delete field", "post_type", pt, "err", err)
		back(w, r, pt, "error", "delete_failed")
		return
	}
	back(w, r, pt, "message", "deleted")
}

func (h *Handler) moveField(w http.ResponseWriter, r *http.Request) {
	p, pt, ok := h.guard(w, r, ActionMoveField)
	if !ok {
		return
	}
	id, err := formID(r, "id")
	if err != nil {
		back(w, r, pt, "error", "field_not_found")
		return
	}
	dir, err := ordering.ParseDirection(r.PostFormValue("direction"))
	if err != nil {
		back(w, r, pt, "error", "move_failed")
		return
	}
	res, err := h.Fields.Move(r.Context(), p, id, dir)
	switch {
	case errors.Is(err, ordering.ErrFieldNotFound):
		back(w, r, pt, "error", "field_not_found")
	case err != nil:
		logger.L.Warn("move field", "id", id, "err", err)
		back(w, r, pt, "error", "move_failed")
	case !res.Moved:
		back(w, r, pt)
	default:
		back(w, r, pt, "message", "moved")
	}
}

func (h *Handler) editField(w http.ResponseWriter, r *http.Request) {
	p, pt, ok := h.guard(w, r, ActionEditField)
	if !ok {
		return
	}
	id, err := formID(r, "field_id")
	if err != nil {
		back(w, r, pt, "error", "field_not_found")
		return
	}
	f, err := fieldFromForm(r.PostForm)
	if err != nil {
		logger.L.Warn("edit field", "id", id, "err", err)
		back(w, r, pt, "error", "update_failed")
		return
	}
	patch := registry.Patch{Key: &f.Key, Label: &f.Label, Type: &f.Type, Options: &f.Options}
	if r.PostForm.Has("field_order") {
		patch.Order = &f.Order
	}
	_, err = h.Fields.Update(r.Context(), p, id, patch)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		back(w, r, pt, "error", "field_not_found")
	case err != nil:
		logger.L.Warn("edit field", "id", id, "err", err)
		back(w, r, pt, "error", "update_failed")
	default:
		back(w, r, pt, "message", "updated")
	}
}

func formID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, r.PostFormValue(name))
	}
	return id, nil
}

// fieldFromForm reads the field inputs of the add and edit forms. Options
// arrive either as JSON text in field_options or as bracketed inputs such
// as field_options[options][0][value].
func fieldFromForm(form url.Values) (registry.Field, error) {
	f := registry.Field{
		Key:   form.Get("field_key"),
		Label: form.Get("field_label"),
		Type:  registry.FieldType(form.Get("field_type")),
	}
	if s := strings.TrimSpace(form.Get("field_order")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("%w: field_order %q", registry.ErrInvalid, s)
		}
		f.Order = n
	}
	raw, ok := interpreter.ParseForm(form).Lookup("field_options")
	if !ok {
		return f, nil
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return f, nil
		}
		data = []byte(v)
	default:
		b, err := json.Marshal(listify(v))
		if err != nil {
			return f, err
		}
		data = b
	}
	if err := json.Unmarshal(data, &f.Options); err != nil {
		return f, fmt.Errorf("%w: field_options: %v", registry.ErrInvalid, err)
	}
	return f, nil
}

// listify turns maps whose keys are all indexes into lists, recursively.
func listify(v any) any {
	switch t := v.(type) {
	case map[string]any:
		idx := make([]int, 0, len(t))
		for k := range t {
			n, err := strconv.Atoi(k)
			if err != nil || n < 0 {
				idx = nil
				break
			}
			idx = append(idx, n)
		}
		if len(idx) == len(t) && len(t) > 0 {
			sort.Ints(idx)
			out := make([]any, len(idx))
			for i, n := range idx {
				out[i] = listify(t[strconv.Itoa(n)])
			}
			return out
		}
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = listify(item)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = listify(item)
		}
		return out
	}
	return v
}
