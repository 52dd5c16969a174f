package adapter

import "errors"

var (
	// ErrNotFound reports a missing remote path. Drivers translate it into a
	// nil result for Stat and Get and into success for Delete.
	ErrNotFound = errors.New("remote path not found")
	// ErrUnauthorized reports rejected credentials. Never retried.
	ErrUnauthorized = errors.New("backend rejected credentials")
	// ErrTransient reports a failure worth retrying: timeouts, connection
	// resets, 5xx responses, throttling.
	ErrTransient = errors.New("transient backend failure")
	// ErrBadRequest reports a request the backend refused as malformed.
	ErrBadRequest = errors.New("backend rejected request")
	// ErrUnsupportedKind is returned by [NewDriver] for an unknown backend.
	ErrUnsupportedKind = errors.New("unsupported target kind")
	// ErrInvalidPath reports a path escaping the target root.
	ErrInvalidPath = errors.New("invalid remote path")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
