package store

import (
	"context"
	"testing"
	"time"

	"github.com/org/credvault/pkg/models"
)

// fixedClock returns a settable clock for expiry tests.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*MemoryStore, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.SetClock(clock.now)
	return s, clock
}

func testSession() *models.Session {
	return &models.Session{
		UserID:   "u1",
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Role:     models.RoleStaff,
		Token:    "abcdef0123456789",
	}
}

func TestSessionExpiry(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	clock.advance(29 * time.Minute)
	got, err := s.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.UserID != "u1" {
		t.Fatal("session should still be valid at 29 minutes")
	}

	clock.advance(2 * time.Minute) // 31 minutes total
	got, err = s.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("session should be expired at 31 minutes")
	}
}

func TestSessionExpiryClearsCache(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	s.SaveSession(ctx, testSession())
	s.CacheCredentials(ctx, []models.CachedCredential{{ID: 2, Username: "admin"}})

	clock.advance(31 * time.Minute)
	if got, _ := s.GetSession(ctx); got != nil {
		t.Fatal("session should be expired")
	}
	if cached, _ := s.CachedCredentials(ctx); cached != nil {
		t.Error("cache should be gone after session expiry")
	}
}

func TestIsAuthenticated(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if ok, _ := s.IsAuthenticated(ctx); ok {
		t.Error("empty store should not be authenticated")
	}

	s.SaveSession(ctx, &models.Session{UserID: "u1"}) // no token
	if ok, _ := s.IsAuthenticated(ctx); ok {
		t.Error("session without a token should not count as authenticated")
	}

	s.SaveSession(ctx, testSession())
	if ok, _ := s.IsAuthenticated(ctx); !ok {
		t.Error("expected authenticated")
	}

	s.ClearSession(ctx)
	if ok, _ := s.IsAuthenticated(ctx); ok {
		t.Error("cleared session should not be authenticated")
	}
}

func TestCacheExpiry(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	creds := []models.CachedCredential{
		{ID: 2, WebsiteURL: "example.com", Username: "admin", Nonce: []byte{1}, Ciphertext: []byte{2}},
		{ID: 3, WebsiteURL: "other.org", Username: "ops", Nonce: []byte{3}, Ciphertext: []byte{4}},
	}
	if err := s.CacheCredentials(ctx, creds); err != nil {
		t.Fatalf("CacheCredentials failed: %v", err)
	}

	clock.advance(9 * time.Minute)
	cached, err := s.CachedCredentials(ctx)
	if err != nil {
		t.Fatalf("CachedCredentials failed: %v", err)
	}
	if len(cached) != 2 || cached[0].ID != 2 || cached[1].Username != "ops" {
		t.Errorf("cache should be returned unchanged at 9 minutes, got %+v", cached)
	}

	clock.advance(2 * time.Minute) // 11 minutes total
	cached, err = s.CachedCredentials(ctx)
	if err != nil {
		t.Fatalf("CachedCredentials failed: %v", err)
	}
	if cached != nil {
		t.Error("cache should report absent at 11 minutes")
	}
}

func TestClearCacheKeepsSession(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.SaveSession(ctx, testSession())
	s.CacheCredentials(ctx, []models.CachedCredential{{ID: 2}})
	s.ClearCache(ctx)

	if cached, _ := s.CachedCredentials(ctx); cached != nil {
		t.Error("cache should be cleared")
	}
	if got, _ := s.GetSession(ctx); got == nil {
		t.Error("clearing the cache must not clear the session")
	}
}

func TestCachedCredentialsReturnsCopy(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.CacheCredentials(ctx, []models.CachedCredential{{ID: 2, Username: "a"}})
	first, _ := s.CachedCredentials(ctx)
	first[0].Username = "mutated"

	second, _ := s.CachedCredentials(ctx)
	if second[0].Username != "a" {
		t.Error("callers must not be able to mutate the cached list")
	}
}

func TestAutofillWindow(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	if ok, _ := s.RecentlyAutofilled(ctx, "example.com/login"); ok {
		t.Error("unfilled URL should not count as recent")
	}

	s.RecordAutofill(ctx, "example.com/login")
	if ok, _ := s.RecentlyAutofilled(ctx, "example.com/login"); !ok {
		t.Error("URL filled just now should count as recent")
	}

	clock.advance(6 * time.Second)
	if ok, _ := s.RecentlyAutofilled(ctx, "example.com/login"); ok {
		t.Error("URL filled 6 seconds ago should no longer count as recent")
	}
}
