package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

// memStore backs every repository interface of the service layer with maps,
// joining shares to live files the way the SQL queries do.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions map[string]*models.Session
	files    map[string]*models.StoredFile
	shares   map[string]*models.ShareLink
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
		files:    map[string]*models.StoredFile{},
		shares:   map[string]*models.ShareLink{},
	}
}

type memUsers struct{ *memStore }
type memSessions struct{ *memStore }
type memFiles struct{ *memStore }
type memShares struct{ *memStore }

func (m memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return common.ErrDuplicateIdentity
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) GetByUsername(_ context.Context, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == name {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (m memSessions) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.TokenHash] = &cp
	return nil
}

func (m memSessions) Find(_ context.Context, h string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[h]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (m memSessions) Revoke(_ context.Context, h string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[h]; ok {
		s.RevokedAt = &at
	}
	return nil
}

func (m memFiles) Create(_ context.Context, f *models.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m memFiles) list(keep func(*models.StoredFile) bool) []models.FileListing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FileListing{}
	for _, f := range m.files {
		if !keep(f) {
			continue
		}
		out = append(out, models.FileListing{
			StorageKey:    f.StorageKey,
			DisplayName:   f.DisplayName,
			OwnerUsername: m.users[f.OwnerID].Username,
			OwnerID:       f.OwnerID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

func (m memFiles) ListAll(context.Context) ([]models.FileListing, error) {
	return m.list(func(*models.StoredFile) bool { return true }), nil
}

func (m memFiles) ListByOwner(_ context.Context, owner string) ([]models.FileListing, error) {
	return m.list(func(f *models.StoredFile) bool { return f.OwnerID == owner }), nil
}

func (m memFiles) FindByStorageKey(_ context.Context, key string) (*models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.StorageKey == key {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m memFiles) FindByID(_ context.Context, id string) (*models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (m memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m memShares) Create(_ context.Context, l *models.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.shares[l.ID] = &cp
	return nil
}

func (m memShares) Resolve(_ context.Context, id string) (*models.ShareLink, *models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.shares[id]
	if !ok || l.Status != models.ShareActive {
		return nil, nil, common.ErrInvalidShare
	}
	f, ok := m.files[l.FileID]
	if !ok {
		return nil, nil, common.ErrInvalidShare
	}
	lc, fc := *l, *f
	return &lc, &fc, nil
}

func (m memShares) Find(_ context.Context, id string) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.shares[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (m memShares) ListByFile(_ context.Context, fileID string) ([]models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ShareLink{}
	for _, l := range m.shares {
		if l.FileID == fileID && l.Status == models.ShareActive {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m memShares) Revoke(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.shares[id]; ok {
		l.Status, l.RevokedAt = models.ShareRevoked, &at
	}
	return nil
}

func (m memShares) RevokeByFile(_ context.Context, fileID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.shares {
		if l.FileID == fileID && l.Status == models.ShareActive {
			l.Status, l.RevokedAt = models.ShareRevoked, &at
			n++
		}
	}
	return n, nil
}
