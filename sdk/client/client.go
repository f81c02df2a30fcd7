// Package client is a REST client for the Guide CMS API.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
)

// BasePath is the prefix of every API route.
const BasePath = "/guide-cms/v1"

// Template summarizes one content type.
type Template struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	FieldCount int             `json:"field_count"`
	Source     registry.Source `json:"source"`
}

// Detail is the resolved schema of a content type.
type Detail struct {
	PostType string           `json:"post_type"`
	Label    string           `json:"label"`
	Source   registry.Source  `json:"source"`
	Fields   []registry.Field `json:"fields"`
}

// MoveResult reports a move.
type MoveResult struct {
	Field    registry.Field  `json:"field"`
	Neighbor *registry.Field `json:"neighbor,omitempty"`
	Moved    bool            `json:"moved"`
}

// Token is a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Roles       []string  `json:"roles"`
}

// Client talks to one API endpoint.
type Client struct {
	http *resty.Client
}

type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(tok string) Option {
	return func(c *Client) {
		if tok != "" {
			c.http.SetAuthToken(tok)
		}
	}
}

// WithInsecure skips TLS certificate verification.
func WithInsecure(insecure bool) Option {
	return func(c *Client) {
		if insecure {
			c.http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402 -- opt-in per profile
		}
	}
}

// WithTimeout overrides the 10s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// New returns a client for base, e.g. https://cms.example.com.
func New(base string, opts ...Option) *Client {
	c := &Client{http: resty.New().
		SetBaseURL(base).
		SetTimeout(10 * time.Second).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12})}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-2xx response.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &APIError{Method: resp.Request.Method, URL: resp.Request.URL, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Login exchanges a username and password for a token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var out Token
	err := check(c.http.R().SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post(BasePath + "/auth/login"))
	return out, err
}

// Me returns the principal the token acts for.
func (c *Client) Me(ctx context.Context) (capability.Principal, error) {
	var out capability.Principal
	err := check(c.http.R().SetContext(ctx).SetResult(&out).Get(BasePath + "/auth/me"))
	return out, err
}

// Templates lists the content types.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var out []Template
	err := check(c.http.R().SetContext(ctx).SetResult(&out).Get(BasePath + "/templates"))
	return out, err
}

// Template returns the resolved schema of postType.
func (c *Client) Template(ctx context.Context, postType string) (Detail, error) {
	var out Detail
	err := check(c.http.R().SetContext(ctx).
		SetPathParam("post_type", postType).
		SetResult(&out).
		Get(BasePath + "/templates/{post_type}"))
	return out, err
}

// AddField creates a field on f.PostType.
func (c *Client) AddField(ctx context.Context, f registry.Field) (registry.Field, error) {
	body := map[string]any{"field_key": f.Key, "field_label": f.Label, "field_type": f.Type, "field_order": f.Order}
	if !f.Options.IsZero() {
		body["field_options"] = f.Options
	}
	var out registry.Field
	err := check(c.http.R().SetContext(ctx).
		SetPathParam("post_type", f.PostType).
		SetBody(body).
		SetResult(&out).
		Post(BasePath + "/templates/{post_type}/fields"))
	return out, err
}

// MoveField moves a field one slot in dir, "up" or "down".
func (c *Client) MoveField(ctx context.Context, id int64, dir string) (MoveResult, error) {
	var out MoveResult
	err := check(c.http.R().SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetBody(map[string]string{"direction": dir}).
		SetResult(&out).
		Post(BasePath + "/fields/{id}/move"))
	return out, err
}

// DeleteField removes a field template.
func (c *Client) DeleteField(ctx context.Context, id int64) error {
	return check(c.http.R().SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Delete(BasePath + "/fields/{id}"))
}
