// Package vault coordinates the credential lifecycle: session state,
// cache fills, access resolution, and decrypt-for-use.
package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/org/credvault/internal/audit"
	"github.com/org/credvault/internal/crypto"
	"github.com/org/credvault/internal/page"
	"github.com/org/credvault/internal/store"
	"github.com/org/credvault/pkg/models"
	"github.com/rs/zerolog/log"
)

// Source returns the requester's authorized credential subset, in source
// row order. Implementations either filter remotely (directory backend)
// or resolve locally against the raw rows.
type Source interface {
	FetchCredentials(ctx context.Context, req models.Requester) ([]models.CredentialRecord, error)
}

// Authenticator validates an identity against the directory. A nil
// identity with a nil error means the validation was denied.
type Authenticator interface {
	Validate(ctx context.Context, userID, password string) (*models.Identity, error)
}

// LoginValues is the decrypted pair handed out for exactly one injection.
// The caller wipes Secret after use.
type LoginValues struct {
	Username string
	Secret   []byte
}

// Service is the credential cache orchestrator.
type Service struct {
	store  store.Store
	source Source
	auth   Authenticator
	audit  *audit.Log

	// refreshMu serializes the cache-miss fill so concurrent misses
	// collapse into one source fetch.
	refreshMu sync.Mutex
}

// New wires a Service.
func New(st store.Store, src Source, auth Authenticator, auditLog *audit.Log) *Service {
	return &Service{store: st, source: src, auth: auth, audit: auditLog}
}

// Login validates the identity, establishes a fresh session, and drops any
// cache left from a previous session (its ciphertexts are undecryptable
// under the new key anyway).
func (s *Service) Login(ctx context.Context, userID, password string) (*models.Session, error) {
	if userID == "" || password == "" {
		return nil, fmt.Errorf("%w: user id and password are required", ErrInvalidInput)
	}

	identity, err := s.auth.Validate(ctx, userID, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if identity == nil {
		return nil, ErrInvalidCredentials
	}

	token, err := crypto.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:    identity.UserID,
		FullName:  identity.FullName,
		Email:     identity.Email,
		Role:      identity.Role,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.ClearCache(ctx); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.audit.Record(audit.Entry{UserID: session.UserID, Action: "login"})
	log.Info().Str("user_id", session.UserID).Str("role", string(session.Role)).Msg("session established")
	return session, nil
}

// Logout clears the session and the cache together; both are gone before
// the call returns.
func (s *Service) Logout(ctx context.Context) error {
	session, err := s.store.GetSession(ctx)
	if err != nil {
		return err
	}
	if err := s.store.ClearCache(ctx); err != nil {
		return err
	}
	if err := s.store.ClearSession(ctx); err != nil {
		return err
	}
	if session != nil {
		s.audit.Record(audit.Entry{UserID: session.UserID, Action: "logout"})
	}
	return nil
}

// Authenticated reports whether a usable session exists.
func (s *Service) Authenticated(ctx context.Context) (bool, error) {
	return s.store.IsAuthenticated(ctx)
}

// Session returns the current session, or ErrUnauthenticated.
func (s *Service) Session(ctx context.Context) (*models.Session, error) {
	session, err := s.store.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID == "" || session.Token == "" {
		return nil, ErrUnauthenticated
	}
	return session, nil
}

// List returns the safe projection of the current cache generation,
// filling the cache from the source on miss. No secret is decrypted.
func (s *Service) List(ctx context.Context) ([]models.SafeCredential, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := s.store.CachedCredentials(ctx)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		cached, err = s.fillCache(ctx, session)
		if err != nil {
			return nil, err
		}
	}
	return safeProjection(cached), nil
}

// ListForPage returns the safe credentials whose URLs match the page.
func (s *Service) ListForPage(ctx context.Context, pageURL string) ([]models.SafeCredential, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("%w: page url is required", ErrInvalidInput)
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return page.FilterForPage(all, pageURL), nil
}

// Reveal decrypts one cached credential for a single injection. The caller
// wipes the secret after use. A decryption failure means the cache was
// written under a different session; callers force a refresh.
func (s *Service) Reveal(ctx context.Context, id int) (*LoginValues, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := s.store.CachedCredentials(ctx)
	if err != nil {
		return nil, err
	}
	var match *models.CachedCredential
	for i := range cached {
		if cached[i].ID == id {
			match = &cached[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: id %d not in current cache generation", ErrNotFound, id)
	}

	key := crypto.DeriveKey(session.Token)
	defer crypto.Wipe(key)

	secret, err := crypto.Decrypt(match.Ciphertext, match.Nonce, key)
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.Entry{UserID: session.UserID, CredentialID: id, Action: "reveal"})
	return &LoginValues{Username: match.Username, Secret: secret}, nil
}

// Refresh clears the cache and refills it from the source unconditionally.
// Returns the new generation's size.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.store.ClearCache(ctx); err != nil {
		return 0, err
	}
	cached, err := s.fillCache(ctx, session)
	if err != nil {
		return 0, err
	}
	s.audit.Record(audit.Entry{UserID: session.UserID, Action: "refresh"})
	return len(cached), nil
}

// RecordInjection marks a page URL as just filled, for the double-fill
// guard. URLs are normalized so scheme and query variants count as the
// same page.
func (s *Service) RecordInjection(ctx context.Context, pageURL string) error {
	return s.store.RecordAutofill(ctx, page.Normalize(pageURL))
}

// RecentlyInjected reports whether the page was filled moments ago.
func (s *Service) RecentlyInjected(ctx context.Context, pageURL string) (bool, error) {
	return s.store.RecentlyAutofilled(ctx, page.Normalize(pageURL))
}

// fillCache fetches the authorized set, encrypts each secret under the
// session key, and writes the full list atomically. Concurrent misses are
// serialized; the loser of the race reuses the winner's generation.
func (s *Service) fillCache(ctx context.Context, session *models.Session) ([]models.CachedCredential, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another request may have filled the cache while we waited.
	if cached, err := s.store.CachedCredentials(ctx); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	records, err := s.source.FetchCredentials(ctx, session.Requester())
	if err != nil {
		// Cache left untouched: never cache a failed or partial fetch.
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	key := crypto.DeriveKey(session.Token)
	defer crypto.Wipe(key)

	cached := make([]models.CachedCredential, 0, len(records))
	for _, rec := range records {
		ciphertext, nonce, err := crypto.Encrypt([]byte(rec.Password), key)
		if err != nil {
			return nil, fmt.Errorf("encrypting credential %d: %w", rec.ID, err)
		}
		cached = append(cached, models.CachedCredential{
			ID:         rec.ID,
			WebsiteURL: rec.WebsiteURL,
			Username:   rec.Username,
			Nonce:      nonce,
			Ciphertext: ciphertext,
		})
	}

	if err := s.store.CacheCredentials(ctx, cached); err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(cached)).Msg("credential cache filled")
	return cached, nil
}

func safeProjection(cached []models.CachedCredential) []models.SafeCredential {
	out := make([]models.SafeCredential, len(cached))
	for i, c := range cached {
		out[i] = c.Safe()
	}
	return out
}
