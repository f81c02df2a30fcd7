package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/logger"
)

type Handler struct {
	Repo *UserRepo
	JWT  *JWT
	// Secure marks the token cookie Secure.
	Secure bool
}

type loginBody struct {
	Username string `json:"username" minLength:"1"`
	Password string `json:"password" minLength:"1"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Roles       []string  `json:"roles"`
}

type loginInput struct {
	Body loginBody
}

type loginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      tokenResponse
}

type meOutput struct {
	Body capability.Principal
}

func Register(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/guide-cms/v1/auth/login",
		Summary:     "Login",
		Tags:        []string{"Auth"},
		Errors:      []int{http.StatusUnauthorized},
	}, h.login)

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/guide-cms/v1/auth/refresh",
		Summary:     "Refresh token",
		Tags:        []string{"Auth"},
		Errors:      []int{http.StatusUnauthorized},
	}, h.refresh)

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/auth/me",
		Summary:     "Current principal",
		Tags:        []string{"Auth"},
	}, h.me)
}

// Login checks credentials and returns a signed token for the user.
func (h *Handler) Login(ctx context.Context, username, password string) (string, time.Time, *User, error) {
	u, err := h.Repo.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	tok, exp, err := h.JWT.Generate(u.Subject(), []string{u.Role})
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return tok, exp, u, nil
}

// Cookie returns the cookie carrying tok for the admin screens.
func (h *Handler) Cookie(tok string, exp time.Time) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) login(ctx context.Context, in *loginInput) (*loginOutput, error) {
	tok, exp, u, err := h.Login(ctx, in.Body.Username, in.Body.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return nil, huma.Error401Unauthorized("invalid credentials")
	}
	if err != nil {
		logger.L.Error("login", "username", in.Body.Username, "err", err)
		return nil, err
	}
	return &loginOutput{
		SetCookie: h.Cookie(tok, exp),
		Body:      tokenResponse{AccessToken: tok, ExpiresAt: exp, Roles: []string{u.Role}},
	}, nil
}

type refreshInput struct{}

func (h *Handler) refresh(ctx context.Context, _ *refreshInput) (*loginOutput, error) {
	p := capability.FromContext(ctx)
	if p.IsAnonymous() {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	tok, exp, err := h.JWT.Generate(p.Subject, p.Roles)
	if err != nil {
		return nil, err
	}
	return &loginOutput{
		SetCookie: h.Cookie(tok, exp),
		Body:      tokenResponse{AccessToken: tok, ExpiresAt: exp, Roles: p.Roles},
	}, nil
}

func (h *Handler) me(ctx context.Context, _ *struct{}) (*meOutput, error) {
	return &meOutput{Body: capability.FromContext(ctx)}, nil
}
