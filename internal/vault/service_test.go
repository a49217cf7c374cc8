package vault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/org/credvault/internal/access"
	"github.com/org/credvault/internal/audit"
	"github.com/org/credvault/internal/crypto"
	"github.com/org/credvault/internal/store"
	"github.com/org/credvault/pkg/models"
)

// fakeSource applies access resolution locally and counts fetches.
type fakeSource struct {
	creds   []models.CredentialRecord
	grants  []models.PermissionGrant
	fail    error
	fetches atomic.Int64
	// gate, when set, blocks FetchCredentials until released. Used to
	// hold concurrent misses inside the fill path.
	gate chan struct{}
}

func (f *fakeSource) FetchCredentials(_ context.Context, req models.Requester) ([]models.CredentialRecord, error) {
	f.fetches.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return access.Resolve(f.creds, f.grants, req), nil
}

// fakeAuth validates a single known identity.
type fakeAuth struct {
	user     models.Identity
	password string
	fail     error
}

func (f *fakeAuth) Validate(_ context.Context, userID, password string) (*models.Identity, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if userID == f.user.UserID && password == f.password {
		u := f.user
		return &u, nil
	}
	return nil, nil
}

func testRecords() []models.CredentialRecord {
	return []models.CredentialRecord{
		{ID: 2, WebsiteURL: "https://example.com", Username: "admin", Password: "pw-one", Grantees: "Jane Doe"},
		{ID: 3, WebsiteURL: "https://granted.org", Username: "ops", Password: "pw-two"},
		{ID: 4, WebsiteURL: "https://hidden.net", Username: "svc", Password: "pw-three"},
	}
}

func newTestService(src Source) (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	auth := &fakeAuth{
		user:     models.Identity{UserID: "u1", FullName: "Jane Doe", Email: "jane@example.com", Role: models.RoleStaff},
		password: "secret",
	}
	return New(st, src, auth, audit.NewLog(16)), st
}

func login(t *testing.T, s *Service) *models.Session {
	t.Helper()
	session, err := s.Login(context.Background(), "u1", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return session
}

func TestLoginEstablishesSession(t *testing.T) {
	s, st := newTestService(&fakeSource{creds: testRecords()})
	session := login(t, s)

	if session.UserID != "u1" || session.Role != models.RoleStaff {
		t.Errorf("unexpected session: %+v", session)
	}
	if len(session.Token) != 64 {
		t.Errorf("session token should be 64 hex chars, got %d", len(session.Token))
	}
	if ok, _ := st.IsAuthenticated(context.Background()); !ok {
		t.Error("store should report authenticated after login")
	}
}

func TestLoginDenied(t *testing.T) {
	s, _ := newTestService(&fakeSource{})
	_, err := s.Login(context.Background(), "u1", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginMissingFields(t *testing.T) {
	s, _ := newTestService(&fakeSource{})
	if _, err := s.Login(context.Background(), "", "pw"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListUnauthenticated(t *testing.T) {
	s, _ := newTestService(&fakeSource{creds: testRecords()})
	if _, err := s.List(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestEndToEndStaffScenario(t *testing.T) {
	// Three records: one granted by name, one by explicit permission,
	// one granted to neither.
	src := &fakeSource{
		creds:  testRecords(),
		grants: []models.PermissionGrant{{CredentialID: 3, AllowedUserIDs: []string{"u1"}}},
	}
	s, st := newTestService(src)
	session := login(t, s)
	ctx := context.Background()

	safe, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(safe) != 2 || safe[0].ID != 2 || safe[1].ID != 3 {
		t.Fatalf("expected exactly records 2 and 3 in source order, got %+v", safe)
	}

	// The cache holds exactly those two, encrypted under the session key.
	cached, _ := st.CachedCredentials(ctx)
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached credentials, got %d", len(cached))
	}
	key := crypto.DeriveKey(session.Token)
	plaintext, err := crypto.Decrypt(cached[0].Ciphertext, cached[0].Nonce, key)
	if err != nil {
		t.Fatalf("cached secret should decrypt under the session key: %v", err)
	}
	if string(plaintext) != "pw-one" {
		t.Errorf("decrypted %q, want %q", plaintext, "pw-one")
	}

	// A use request for the un-granted id fails with NotFound.
	if _, err := s.Reveal(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for un-granted id, got %v", err)
	}
}

func TestListUsesCache(t *testing.T) {
	src := &fakeSource{creds: testRecords(), grants: []models.PermissionGrant{{CredentialID: 3, AllowedUserIDs: []string{"u1"}}}}
	s, _ := newTestService(src)
	login(t, s)
	ctx := context.Background()

	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if n := src.fetches.Load(); n != 1 {
		t.Errorf("second List should hit the cache; source fetched %d times", n)
	}
}

func TestConcurrentMissCollapse(t *testing.T) {
	src := &fakeSource{creds: testRecords(), gate: make(chan struct{})}
	s, _ := newTestService(src)
	login(t, s)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.List(ctx)
		}(i)
	}
	close(src.gate)
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Errorf("request %d failed: %v", i, err)
		}
	}
	if n := src.fetches.Load(); n != 1 {
		t.Errorf("concurrent misses must collapse into one fetch, got %d", n)
	}
}

func TestSourceFailureLeavesCacheUntouched(t *testing.T) {
	src := &fakeSource{creds: testRecords()}
	s, st := newTestService(src)
	login(t, s)
	ctx := context.Background()

	// Fill once, then make the source fail and force a refresh.
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	src.fail = errors.New("upstream down")

	if _, err := s.Refresh(ctx); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
	// Refresh clears first, so after a failed refresh the cache is empty
	// rather than stale — and nothing partial was written.
	if cached, _ := st.CachedCredentials(ctx); cached != nil {
		t.Errorf("failed refresh must not write a cache, got %+v", cached)
	}
}

func TestRevealDecryptsOnce(t *testing.T) {
	src := &fakeSource{creds: testRecords()}
	s, _ := newTestService(src)
	login(t, s)
	ctx := context.Background()

	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	values, err := s.Reveal(ctx, 2)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if values.Username != "admin" || string(values.Secret) != "pw-one" {
		t.Errorf("unexpected values: %s / %s", values.Username, values.Secret)
	}
}

func TestRevealStaleCacheGeneration(t *testing.T) {
	src := &fakeSource{creds: testRecords()}
	s, st := newTestService(src)
	login(t, s)
	ctx := context.Background()

	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// Overwrite the session with a new token: the cached envelopes no
	// longer authenticate under the derived key.
	session, _ := st.GetSession(ctx)
	fresh := *session
	fresh.Token = "0000000000000000000000000000000000000000000000000000000000000000"
	st.SaveSession(ctx, &fresh)

	if _, err := s.Reveal(ctx, 2); !errors.Is(err, crypto.ErrDecryption) {
		t.Errorf("expected ErrDecryption with a rotated session key, got %v", err)
	}
}

func TestRefreshRebuildsCache(t *testing.T) {
	src := &fakeSource{creds: testRecords()}
	s, _ := newTestService(src)
	login(t, s)
	ctx := context.Background()

	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	count, err := s.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if count != 1 {
		t.Errorf("staff with one name grant should cache 1 credential, got %d", count)
	}
	if n := src.fetches.Load(); n != 2 {
		t.Errorf("refresh must refetch unconditionally, fetched %d times", n)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	src := &fakeSource{creds: testRecords()}
	s, st := newTestService(src)
	login(t, s)
	ctx := context.Background()

	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if ok, _ := st.IsAuthenticated(ctx); ok {
		t.Error("session should be gone after logout")
	}
	if cached, _ := st.CachedCredentials(ctx); cached != nil {
		t.Error("cache should be gone after logout")
	}
}

func TestListForPage(t *testing.T) {
	src := &fakeSource{creds: []models.CredentialRecord{
		{ID: 2, WebsiteURL: "https://example.com", Username: "a", Password: "p", Grantees: "Jane Doe"},
		{ID: 3, WebsiteURL: "other.org", Username: "b", Password: "p", Grantees: "Jane Doe"},
	}}
	s, _ := newTestService(src)
	login(t, s)

	safe, err := s.ListForPage(context.Background(), "https://app.example.com/login")
	if err != nil {
		t.Fatalf("ListForPage failed: %v", err)
	}
	if len(safe) != 1 || safe[0].ID != 2 {
		t.Errorf("expected only the example.com credential, got %+v", safe)
	}
}
