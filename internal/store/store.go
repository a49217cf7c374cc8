package store

import (
	"context"
	"errors"
	"time"

	"github.com/org/credvault/pkg/models"
)

// ErrStorage is returned when the underlying storage fails. The store does
// not retry internally; retry policy belongs to the caller.
var ErrStorage = errors.New("storage failure")

const (
	// SessionTTL is how long a session stays valid after it is saved.
	SessionTTL = 30 * time.Minute
	// CacheTTL is how long cached credentials stay valid after a write.
	CacheTTL = 10 * time.Minute
	// autofillWindow is how long after a fill the same URL counts as
	// recently autofilled (double-fill guard).
	autofillWindow = 5 * time.Second
)

// Store holds the current identity's session record and the encrypted
// credential cache, each with its own expiry clock. Both are scoped to one
// browsing session and never survive teardown. Expiry is checked on every
// read; the store keeps no background clock.
type Store interface {
	// SaveSession overwrites any existing session with the record plus a
	// write timestamp. A new session token implicitly makes old cache
	// ciphertexts undecryptable, but callers still clear the cache
	// explicitly on logout.
	SaveSession(ctx context.Context, s *models.Session) error
	// GetSession returns the current session, or nil (self-clearing)
	// once SessionTTL has elapsed since the save.
	GetSession(ctx context.Context) (*models.Session, error)
	// IsAuthenticated reports whether a session exists with both a user
	// id and a session token.
	IsAuthenticated(ctx context.Context) (bool, error)
	ClearSession(ctx context.Context) error

	// CacheCredentials atomically replaces the cached list: either the
	// whole list is written or nothing.
	CacheCredentials(ctx context.Context, creds []models.CachedCredential) error
	// CachedCredentials returns the cached list, or nil (self-clearing)
	// once CacheTTL has elapsed since the write.
	CachedCredentials(ctx context.Context) ([]models.CachedCredential, error)
	ClearCache(ctx context.Context) error

	// RecordAutofill marks a URL as just filled.
	RecordAutofill(ctx context.Context, url string) error
	// RecentlyAutofilled reports whether the URL was filled within the
	// double-fill window.
	RecentlyAutofilled(ctx context.Context, url string) (bool, error)
}
