// Package admin serves the HTML screens: field template management, page
// editing with the rendered meta box, and the login form.
package admin

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faciam-dev/guidecms/internal/auth"
	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/internal/usecase/fields"
)

// Nonce actions of the admin forms.
const (
	ActionAddField    = "guide_cms_add_field"
	ActionDeleteField = "guide_cms_delete_field"
	ActionMoveField   = "guide_cms_move_field"
	ActionEditField   = "guide_cms_edit_field"
	ActionSavePage    = "guide_cms_save_page"
	ActionLogout      = "guide_cms_logout"
)

// DefaultPostType is shown when no or an unknown post type is requested.
const DefaultPostType = "guide_page"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pages = map[string]*template.Template{
	"fields": parsePage("fields"),
	"page":   parsePage("page"),
	"login":  parsePage("login"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html.tmpl", "templates/"+name+".html.tmpl"))
}

// PostTypes lists the registered content types.
type PostTypes interface {
	PostTypes() []registry.PostType
	IsPostType(key string) bool
	Label(key string) string
}

// Login authenticates a username and password pair.
type Login interface {
	Login(ctx context.Context, username, password string) (string, time.Time, *auth.User, error)
	Cookie(tok string, exp time.Time) http.Cookie
}

// PageFinder looks pages up by id.
type PageFinder interface {
	Find(ctx context.Context, id int64) (content.Page, error)
}

// Handler holds the dependencies of the admin screens.
type Handler struct {
	Fields    *fields.Service
	Schema    content.Schema
	PostTypes PostTypes
	Projector *projector.Projector
	Pages     PageFinder
	Hook      *content.Hook
	Nonces    *auth.Nonces
	Auth      Login
}

// Routes mounts the admin screens on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/admin/login", h.loginForm)
	r.Post("/admin/login", h.login)
	r.Post("/admin/logout", h.logout)

	r.Get("/admin/field-templates", h.listFields)
	r.Post("/admin/field-templates/add", h.addField)
	r.Post("/admin/field-templates/delete", h.deleteField)
	r.Post("/admin/field-templates/move", h.moveField)
	r.Post("/admin/field-templates/edit", h.editField)

	r.Get("/admin/pages/{id}", h.editPage)
	r.Post("/admin/pages/{id}", h.savePage)
}

// RequireLogin sends anonymous visitors of the admin screens to the login
// form. The login form itself stays reachable.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/login" && capability.FromContext(r.Context()).IsAnonymous() {
			q := url.Values{"redirect_to": {r.URL.RequestURI()}}
			http.Redirect(w, r, "/admin/login?"+q.Encode(), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		logger.L.Error("render admin page", "page", name, "err", err)
	}
}

// nonce issues a token for action, logging failures and returning an empty
// token which Verify will reject.
func (h *Handler) nonce(p capability.Principal, action string) string {
	tok, err := h.Nonces.Issue(action, p.Subject)
	if err != nil {
		logger.L.Error("issue nonce", "action", action, "err", err)
	}
	return tok
}

func (h *Handler) verify(r *http.Request, p capability.Principal, action string) bool {
	return h.Nonces.Verify(r.PostFormValue("_nonce"), action, p.Subject) == nil
}

// notice is a one line status message shown above a screen.
type notice struct {
	Kind string
	Text string
}

var messages = map[string]string{
	"added":   "Field added successfully.",
	"deleted": "Field deleted successfully.",
	"updated": "Field updated successfully.",
	"moved":   "Field moved.",
	"saved":   "Page saved.",
}

var errorMessages = map[string]string{
	"create_failed":   "Failed to add field.",
	"delete_failed":   "Failed to delete field.",
	"update_failed":   "Failed to update field.",
	"move_failed":     "Failed to move field.",
	"field_not_found": "Field not found.",
	"invalid_nonce":   "The link you followed has expired. Please try again.",
	"save_failed":     "Failed to save page.",
	"login_failed":    "Invalid username or password.",
}

func notices(q url.Values) []notice {
	var out []notice
	if text, ok := messages[q.Get("message")]; ok {
		out = append(out, notice{Kind: "success", Text: text})
	}
	if text, ok := errorMessages[q.Get("error")]; ok {
		out = append(out, notice{Kind: "error", Text: text})
	}
	return out
}
