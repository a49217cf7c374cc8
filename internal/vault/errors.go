package vault

import "errors"

// Tagged failure outcomes surfaced to the UI and the page agent. Expired
// sessions and caches are not errors; they are valid states handled by
// transparent refresh or re-authentication.
var (
	// ErrUnauthenticated means there is no valid session; the user must
	// re-authenticate.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSourceUnavailable means the upstream fetch failed. Safe to retry
	// later; the cache is left untouched.
	ErrSourceUnavailable = errors.New("credential source unavailable")
	// ErrNotFound means the requested id is absent from the current cache
	// generation. Callers force a refresh.
	ErrNotFound = errors.New("credential not found")
	// ErrInvalidInput means a request is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials means the identity validation was denied.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
