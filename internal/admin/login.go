package admin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/faciam-dev/guidecms/internal/auth"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/logger"
)

type loginView struct {
	Title      string
	Principal  capability.Principal
	Notices    []notice
	RedirectTo string
	Username   string
	Nonces     map[string]string
}

// safeRedirect keeps post-login redirects on the admin screens.
func safeRedirect(to string) string {
	if strings.HasPrefix(to, "/admin/") && !strings.HasPrefix(to, "//") {
		return to
	}
	return "/admin/field-templates"
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.render(w, http.StatusOK, "login", loginView{
		Title:      "Log In",
		Notices:    notices(q),
		RedirectTo: safeRedirect(q.Get("redirect_to")),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	redirectTo := safeRedirect(r.PostFormValue("redirect_to"))
	tok, exp, _, err := h.Auth.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logger.L.Error("admin login", "username", username, "err", err)
		}
		h.render(w, http.StatusUnauthorized, "login", loginView{
			Title:      "Log In",
			Notices:    []notice{{Kind: "error", Text: errorMessages["login_failed"]}},
			RedirectTo: redirectTo,
			Username:   username,
		})
		return
	}
	c := h.Auth.Cookie(tok, exp)
	http.SetCookie(w, &c)
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	p := capability.FromContext(r.Context())
	if err := r.ParseForm(); err == nil && h.verify(r, p, ActionLogout) {
		c := h.Auth.Cookie("", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, &c)
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
