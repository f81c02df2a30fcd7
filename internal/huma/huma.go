// Package huma re-exports the huma types used by the handlers and maps
// domain errors to structured responses.
package huma

import (
	"context"
	"errors"
	"net/http"

	base "github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/internal/usecase/fields"
)

type (
	API         = base.API
	Operation   = base.Operation
	StatusError = base.StatusError
	ErrorDetail = base.ErrorDetail
)

var (
	Error409Conflict   = base.Error409Conflict
	Error400BadRequest = base.Error400BadRequest
	NewError           = base.NewError
)

// Register wraps huma.Register to expose through this package.
func Register[I, O any](api API, op Operation, handler func(context.Context, *I) (*O, error)) {
	base.Register[I, O](api, op, handler)
}

// Error422 returns a 422 status error with field location information.
func Error422(field, msg string) StatusError {
	return base.NewError(http.StatusUnprocessableEntity, msg, &ErrorDetail{Location: field, Message: msg})
}

// Error404 returns a 404 carrying code as the error location, e.g.
// rest_post_invalid_id.
func Error404(code, msg string) StatusError {
	return base.NewError(http.StatusNotFound, msg, &ErrorDetail{Location: code, Message: msg})
}

// Error500 hides the cause behind an operation code such as update_failed.
func Error500(code, msg string) StatusError {
	return base.NewError(http.StatusInternalServerError, msg, &ErrorDetail{Location: code, Message: msg})
}

// FromError converts a domain error into a status error. code is used as
// the location of unexpected failures.
func FromError(err error, code string) error {
	var se StatusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return err
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, content.ErrNotFound), errors.Is(err, ordering.ErrFieldNotFound),
		errors.Is(err, fields.ErrUnknownPostType):
		return Error404("not_found", err.Error())
	case errors.Is(err, capability.ErrForbidden):
		return base.Error403Forbidden("forbidden")
	case errors.Is(err, content.ErrSlugTaken):
		return base.NewError(http.StatusConflict, err.Error(), &ErrorDetail{Location: "body.slug", Message: err.Error()})
	case errors.Is(err, registry.ErrInvalid), errors.Is(err, content.ErrInvalid):
		return Error422("body", err.Error())
	}
	logger.L.Error("request failed", "code", code, "err", err)
	return Error500(code, "internal error")
}
