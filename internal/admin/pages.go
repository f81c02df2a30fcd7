package admin

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/logger"
)

type pageView struct {
	Title     string
	Principal capability.Principal
	Notices   []notice
	Page      content.Page
	TypeLabel string
	MetaBox   template.HTML
	Nonce     string
	Nonces    map[string]string
}

func pageID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) editPage(w http.ResponseWriter, r *http.Request) {
	p := capability.FromContext(r.Context())
	id, ok := pageID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, err := h.Pages.Find(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.L.Error("load page", "id", id, "err", err)
		http.Error(w, "failed to load page", http.StatusInternalServerError)
		return
	}
	fs, _, err := h.Schema.Resolve(r.Context(), page.PostType)
	if err != nil {
		logger.L.Error("resolve schema", "post_type", page.PostType, "err", err)
		http.Error(w, "failed to load page", http.StatusInternalServerError)
		return
	}
	vals, err := h.Projector.Load(r.Context(), page.ID, fs)
	if err != nil {
		logger.L.Error("load page meta", "id", id, "err", err)
		http.Error(w, "failed to load page", http.StatusInternalServerError)
		return
	}
	box, err := interpreter.HTML(interpreter.Render(page.PostType, fs, vals))
	if err != nil {
		logger.L.Error("render meta box", "id", id, "err", err)
	}
	h.render(w, http.StatusOK, "page", pageView{
		Title:     page.Title,
		Principal: p,
		Notices:   notices(r.URL.Query()),
		Page:      page,
		TypeLabel: h.PostTypes.Label(page.PostType),
		MetaBox:   box,
		Nonce:     h.nonce(p, ActionSavePage),
		Nonces:    map[string]string{"logout": h.nonce(p, ActionLogout)},
	})
}

// savePage runs the save hook for the submitted meta box.
func (h *Handler) savePage(w http.ResponseWriter, r *http.Request) {
	p := capability.FromContext(r.Context())
	id, ok := pageID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	target := "/admin/pages/" + strconv.FormatInt(id, 10)
	fail := func(code string) {
		http.Redirect(w, r, target+"?"+url.Values{"error": {code}}.Encode(), http.StatusSeeOther)
	}
	if err := r.ParseForm(); err != nil || !h.verify(r, p, ActionSavePage) {
		fail("invalid_nonce")
		return
	}
	page, err := h.Pages.Find(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.L.Error("load page", "id", id, "err", err)
		fail("save_failed")
		return
	}
	ev := content.SaveEvent{
		PageID:   page.ID,
		PostType: page.PostType,
		Autosave: r.PostFormValue("_autosave") == "1",
		Bag:      interpreter.ParseForm(fieldInputs(r.PostForm)),
	}
	if _, err := h.Hook.OnSave(r.Context(), p, ev); err != nil {
		logger.L.Warn("save page meta", "id", id, "err", err)
		fail("save_failed")
		return
	}
	http.Redirect(w, r, target+"?message=saved", http.StatusSeeOther)
}

// fieldInputs drops the control inputs of the form, leaving field values.
func fieldInputs(form url.Values) url.Values {
	out := make(url.Values, len(form))
	for k, v := range form {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}
