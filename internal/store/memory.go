package store

import (
	"context"
	"sync"
	"time"

	"github.com/org/credvault/pkg/models"
)

// MemoryStore is the browsing-session-scoped Store. All state lives in
// memory and disappears with the process, mirroring session storage.
type MemoryStore struct {
	mu sync.Mutex

	session *models.Session
	savedAt time.Time

	cache    []models.CachedCredential
	cachedAt time.Time

	autofill map[string]time.Time

	now func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		autofill: map[string]time.Time{},
		now:      time.Now,
	}
}

// SetClock overrides the store's clock. For tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) SaveSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.savedAt = m.now()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	if m.now().Sub(m.savedAt) > SessionTTL {
		m.session = nil
		m.cache = nil
		m.autofill = map[string]time.Time{}
		return nil, nil
	}
	return m.session, nil
}

func (m *MemoryStore) IsAuthenticated(ctx context.Context) (bool, error) {
	s, err := m.GetSession(ctx)
	if err != nil {
		return false, err
	}
	return s != nil && s.UserID != "" && s.Token != "", nil
}

func (m *MemoryStore) ClearSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.cache = nil
	m.autofill = map[string]time.Time{}
	return nil
}

func (m *MemoryStore) CacheCredentials(_ context.Context, creds []models.CachedCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	replaced := make([]models.CachedCredential, len(creds))
	copy(replaced, creds)
	m.cache = replaced
	m.cachedAt = m.now()
	return nil
}

func (m *MemoryStore) CachedCredentials(_ context.Context) ([]models.CachedCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		return nil, nil
	}
	if m.now().Sub(m.cachedAt) > CacheTTL {
		m.cache = nil
		return nil, nil
	}
	out := make([]models.CachedCredential, len(m.cache))
	copy(out, m.cache)
	return out, nil
}

func (m *MemoryStore) ClearCache(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = nil
	return nil
}

func (m *MemoryStore) RecordAutofill(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autofill[url] = m.now()
	return nil
}

func (m *MemoryStore) RecentlyAutofilled(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.autofill[url]
	if !ok {
		return false, nil
	}
	return m.now().Sub(last) < autofillWindow, nil
}
