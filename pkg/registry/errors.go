package registry

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/httputil"
)

var (
	// ErrNotFound is returned when the registry has no such package or archive.
	ErrNotFound = stderrors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = stderrors.New("network error")
)

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// fetchError converts a transport error into a FETCH_ERROR, nesting
// PACKAGE_NOT_FOUND for 404s.
func fetchError(err error, format string, args ...any) error {
	if stderrors.Is(err, ErrNotFound) {
		err = errors.Wrap(errors.ErrCodePackageNotFound, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeFetch, err, format, args...)
}
