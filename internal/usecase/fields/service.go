// Package fields coordinates field template writes: permission checks,
// validation, persistence, ordering, audit, events and cache invalidation.
package fields

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/faciam-dev/guidecms/internal/customfield/audit"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/events"
	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/pkg/metrics"
)

// ErrUnknownPostType is returned when a write targets an unregistered
// content type.
var ErrUnknownPostType = errors.New("unknown post type")

// Store is the subset of registry.Store the service writes through.
type Store interface {
	GetField(ctx context.Context, id int64) (registry.Field, error)
	ListFields(ctx context.Context, postType string) ([]registry.Field, error)
	AddField(ctx context.Context, f registry.Field) (int64, error)
	UpdateField(ctx context.Context, id int64, p registry.Patch) error
	DeleteField(ctx context.Context, id int64) error
	ReplacePostType(ctx context.Context, postType string, fields []registry.Field) ([]int64, error)
	DeleteByPostType(ctx context.Context, postType string) (int64, error)
}

// Auditor records field changes.
type Auditor interface {
	Write(ctx context.Context, actor string, action audit.Action, old, new *registry.Field) error
}

// Invalidator drops cached schemas.
type Invalidator interface {
	Invalidate(postTypes ...string)
}

// PostTypes reports registered content types.
type PostTypes interface {
	IsPostType(key string) bool
}

// Service is the single write path for field templates.
type Service struct {
	Store     Store
	Mover     *ordering.Resolver
	Audit     Auditor
	Cache     Invalidator
	PostTypes PostTypes
	Checker   capability.Checker
}

// Prepare canonicalizes f, derives a missing key from the label and
// validates the result.
func (s *Service) Prepare(f registry.Field) (registry.Field, error) {
	f = f.Canonical()
	if f.Key == "" && f.Label != "" {
		f.Key = strcase.ToSnake(f.Label)
	}
	if s.PostTypes != nil && f.PostType != "" && !s.PostTypes.IsPostType(f.PostType) {
		return registry.Field{}, fmt.Errorf("%w: %q", ErrUnknownPostType, f.PostType)
	}
	if err := f.Validate(); err != nil {
		return registry.Field{}, err
	}
	return f, nil
}

// Add inserts a new active field and returns it with its id.
func (s *Service) Add(ctx context.Context, p capability.Principal, f registry.Field) (registry.Field, error) {
	if err := capability.Require(s.Checker, p, capability.ManageFields); err != nil {
		return registry.Field{}, err
	}
	f, err := s.Prepare(f)
	if err != nil {
		return registry.Field{}, err
	}
	id, err := s.Store.AddField(ctx, f)
	if err != nil {
		return registry.Field{}, fmt.Errorf("add field: %w", err)
	}
	f.ID = id
	f.Active = true
	s.after(ctx, p, audit.ActionAdd, events.FieldCreated, nil, &f)
	return f, nil
}

// Update applies patch to the field with the given id and returns the
// stored result.
func (s *Service) Update(ctx context.Context, p capability.Principal, id int64, patch registry.Patch) (registry.Field, error) {
	if err := capability.Require(s.Checker, p, capability.ManageFields); err != nil {
		return registry.Field{}, err
	}
	old, err := s.Store.GetField(ctx, id)
	if err != nil {
		return registry.Field{}, err
	}
	next, err := s.Prepare(patch.Apply(old))
	if err != nil {
		return registry.Field{}, err
	}
	if err := s.Store.UpdateField(ctx, id, canonicalPatch(patch, next)); err != nil {
		return registry.Field{}, fmt.Errorf("update field: %w", err)
	}
	s.after(ctx, p, audit.ActionUpdate, events.FieldUpdated, &old, &next)
	if old.PostType != next.PostType {
		s.invalidate(old.PostType)
	}
	return next, nil
}

// canonicalPatch rewrites the set members of patch with their canonical
// values from next.
func canonicalPatch(patch registry.Patch, next registry.Field) registry.Patch {
	if patch.PostType != nil {
		patch.PostType = &next.PostType
	}
	if patch.Key != nil {
		patch.Key = &next.Key
	}
	if patch.Label != nil {
		patch.Label = &next.Label
	}
	if patch.Type != nil {
		patch.Type = &next.Type
	}
	if patch.Options != nil {
		patch.Options = &next.Options
	}
	return patch
}

// Delete hard-deletes the field. Page metadata stored under its key is left
// in place and shows up in the orphan scan.
func (s *Service) Delete(ctx context.Context, p capability.Principal, id int64) (registry.Field, error) {
	if err := capability.Require(s.Checker, p, capability.ManageFields); err != nil {
		return registry.Field{}, err
	}
	old, err := s.Store.GetField(ctx, id)
	if err != nil {
		return registry.Field{}, err
	}
	if err := s.Store.DeleteField(ctx, id); err != nil {
		return registry.Field{}, err
	}
	s.after(ctx, p, audit.ActionDelete, events.FieldDeleted, &old, nil)
	return old, nil
}

// Move shifts a field one slot up or down within its post type.
func (s *Service) Move(ctx context.Context, p capability.Principal, id int64, dir ordering.Direction) (ordering.Result, error) {
	if err := capability.Require(s.Checker, p, capability.ManageFields); err != nil {
		return ordering.Result{}, err
	}
	res, err := s.Mover.Move(ctx, id, dir)
	switch {
	case errors.Is(err, ordering.ErrFieldNotFound):
		metrics.FieldMoves.WithLabelValues("not_found").Inc()
		return ordering.Result{}, err
	case err != nil:
		metrics.FieldMoves.WithLabelValues("error").Inc()
		return ordering.Result{}, err
	case !res.Moved:
		metrics.FieldMoves.WithLabelValues("boundary").Inc()
		return res, nil
	}
	metrics.FieldMoves.WithLabelValues("moved").Inc()
	before := res.Field
	before.Order = res.Neighbor.Order
	s.after(ctx, p, audit.ActionMove, events.FieldMoved, &before, &res.Field)
	return res, nil
}

// Replace swaps the stored schema of postType for fields in one
// transaction. Orders follow the slice position.
func (s *Service) Replace(ctx context.Context, p capability.Principal, postType string, fields []registry.Field) ([]registry.Field, error) {
	if err := capability.Require(s.Checker, p, capability.ManageFields); err != nil {
		return nil, err
	}
	postType = strings.TrimSpace(postType)
	if s.PostTypes != nil && !s.PostTypes.IsPostType(postType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPostType, postType)
	}
	prepared := make([]registry.Field, 0, len(fields))
	seen := map[string]bool{}
	var errs []error
	for i, in := range fields {
		in.PostType = postType
		f, err := s.Prepare(in)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %d: %w", i, err))
			continue
		}
		if seen[f.Key] {
			errs = append(errs, fmt.Errorf("field %d: %w: duplicate field_key %q", i, registry.ErrInvalid, f.Key))
		}
		seen[f.Key] = true
		prepared = append(prepared, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	old, err := s.Store.ListFields(ctx, postType)
	if err != nil {
		return nil, err
	}
	ids, err := s.Store.ReplacePostType(ctx, postType, prepared)
	if err != nil {
		return nil, fmt.Errorf("replace template: %w", err)
	}
	for i := range prepared {
		prepared[i].ID = ids[i]
		prepared[i].Order = i
		prepared[i].Active = true
	}
	s.replaced(ctx, p, postType, old, prepared)
	return prepared, nil
}

// Reset drops every stored field of postType so the static defaults apply
// again. It returns the number of removed rows.
func (s *Service) Reset(ctx context.Context, p capability.Principal, postType string) (int64, error) {
	if err := capability.Require(s.Checker, p, capability.ManageFields); err != nil {
		return 0, err
	}
	old, err := s.Store.ListFields(ctx, postType)
	if err != nil {
		return 0, err
	}
	n, err := s.Store.DeleteByPostType(ctx, postType)
	if err != nil {
		return 0, fmt.Errorf("reset template: %w", err)
	}
	s.replaced(ctx, p, postType, old, nil)
	return n, nil
}

func (s *Service) replaced(ctx context.Context, p capability.Principal, postType string, old, next []registry.Field) {
	for _, c := range registry.Diff(old, next) {
		if c.Type == registry.ChangeUnchanged {
			continue
		}
		if s.Audit != nil {
			if err := s.Audit.Write(ctx, p.Subject, audit.ActionReplace, c.Old, c.New); err != nil {
				logger.L.Error("audit write", "action", audit.ActionReplace, "key", c.Key(), "err", err)
			}
		}
	}
	s.invalidate(postType)
	events.Emit(ctx, events.For(events.TemplateReplaced, postType, p.Subject, map[string]any{
		"fields": len(next),
	}))
}

func (s *Service) after(ctx context.Context, p capability.Principal, action audit.Action, name string, old, new *registry.Field) {
	if s.Audit != nil {
		if err := s.Audit.Write(ctx, p.Subject, action, old, new); err != nil {
			logger.L.Error("audit write", "action", action, "err", err)
		}
	}
	ref := new
	if ref == nil {
		ref = old
	}
	s.invalidate(ref.PostType)
	data := map[string]any{"field": *ref}
	if old != nil && new != nil && action == audit.ActionUpdate {
		data["previous"] = *old
	}
	events.Emit(ctx, events.For(name, ref.PostType, p.Subject, data))
}

func (s *Service) invalidate(postTypes ...string) {
	if s.Cache != nil {
		s.Cache.Invalidate(postTypes...)
	}
}
