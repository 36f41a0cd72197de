// Package errs defines the error taxonomy shared by the tally and capacity services. Errors are built with [New], [Newf] or [Wrap] and classified with a reference marker, so callers can test them with [errors.Is] no matter how deeply they are wrapped.
package errs

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Reference markers. Only use these with [Builder.Mark] and [errors.Is].
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrRecentlyTerminated = errors.New("subscription recently terminated")
	ErrAmbiguous          = errors.New("subscription cannot be determined")
	ErrExternalService    = errors.New("external service error")
	ErrUnsupported        = errors.New("unsupported")
	ErrForbidden          = errors.New("forbidden")
)

type Builder struct {
	err error
}

func New(msg string) *Builder {
	return &Builder{err: errors.New(msg)}
}

func Newf(format string, args ...any) *Builder {
	return &Builder{err: errors.Newf(format, args...)}
}

// Wrap annotates err with msg. The cause stays reachable through [errors.Is] and [errors.As].
func Wrap(err error, msg string) *Builder {
	return &Builder{err: errors.Wrap(err, msg)}
}

func (b *Builder) WithHint(hint string) *Builder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// Mark classifies the error as ref and returns it.
func (b *Builder) Mark(ref error) error {
	return errors.Mark(b.err, ref)
}

// Err returns the error without a classification.
func (b *Builder) Err() error {
	return b.err
}

// HTTPStatus maps the taxonomy onto HTTP status codes for the API layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, ErrRecentlyTerminated):
		return http.StatusGone
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err is classified as ref anywhere in its chain, including through wrappers created with fmt.Errorf.
func Is(err, ref error) bool {
	return errors.Is(err, ref)
}

// Hints returns every hint attached anywhere in the chain of err.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}
