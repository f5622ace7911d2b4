package shortlink

import "errors"

var (
	ErrInvalidURL = errors.New("invalid url")

	// ErrTokenCollision means a freshly generated token is already owned by
	// another link. The caller may retry the whole operation.
	ErrTokenCollision = errors.New("short token collision")

	// ErrBadRequest means neither a long URL nor a token was supplied.
	ErrBadRequest = errors.New("missing url and token")

	ErrNotFound = errors.New("link not found")

	// ErrStoreUnavailable wraps every other store failure. The wrapped cause
	// is for logs only and must not reach clients.
	ErrStoreUnavailable = errors.New("link store unavailable")
)
