// Package capability names the permissions checked before writes and carries
// the principal a request acts for.
package capability

import (
	"context"
	"errors"
)

// Name is a capability checked through the policy enforcer.
type Name string

const (
	// ManageFields allows editing field templates and template schemas.
	ManageFields Name = "manage_fields"
	// EditPages allows creating, updating and deleting pages and their fields.
	EditPages Name = "edit_pages"
	// ReadPrivate allows reading drafts and private pages.
	ReadPrivate Name = "read_private_pages"
	// UploadMedia allows registering media items.
	UploadMedia Name = "upload_media"
)

// All lists every capability in display order.
var All = []Name{ManageFields, EditPages, ReadPrivate, UploadMedia}

// ErrForbidden is returned when a principal lacks a capability.
var ErrForbidden = errors.New("forbidden")

// AnonymousRole is the role of requests without credentials.
const AnonymousRole = "anonymous"

// Principal is the authenticated actor of a request.
type Principal struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles"`
}

// Anonymous returns the principal used when no credentials are present.
func Anonymous() Principal {
	return Principal{Roles: []string{AnonymousRole}}
}

// IsAnonymous reports whether p carries no subject.
func (p Principal) IsAnonymous() bool { return p.Subject == "" }

// Subjects lists the policy subjects of p: the subject itself, then roles.
func (p Principal) Subjects() []string {
	out := make([]string, 0, len(p.Roles)+1)
	if p.Subject != "" {
		out = append(out, p.Subject)
	}
	return append(out, p.Roles...)
}

// Checker decides whether a principal holds a capability.
type Checker interface {
	Can(p Principal, c Name) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(p Principal, c Name) bool

func (f CheckerFunc) Can(p Principal, c Name) bool { return f(p, c) }

// Require returns ErrForbidden unless p holds c. A nil checker allows
// everything.
func Require(ch Checker, p Principal, c Name) error {
	if ch == nil || ch.Can(p, c) {
		return nil
	}
	return ErrForbidden
}

type ctxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}
