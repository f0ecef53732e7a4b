package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

// memUsers is an in-memory UserRepository with insert-or-fail semantics.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	byName map[string]*models.User
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}, byName: map[string]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byName[u.Username]; ok {
		return common.ErrDuplicateIdentity
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byName[u.Username] = &cp
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byName[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*models.Session
}

func newMemSessions() *memSessions { return &memSessions{byID: map[string]*models.Session{}} }

func (m *memSessions) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.TokenHash] = &cp
	return nil
}

func (m *memSessions) Find(_ context.Context, h string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[h]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Revoke(_ context.Context, h string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[h]; ok && s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	return nil
}

// memFiles is an in-memory FileRepository that joins owner usernames via users.
type memFiles struct {
	mu        sync.Mutex
	users     *memUsers
	byID      map[string]*models.StoredFile
	createErr error
}

func newMemFiles(users *memUsers) *memFiles {
	return &memFiles{users: users, byID: map[string]*models.StoredFile{}}
}

func (m *memFiles) Create(_ context.Context, f *models.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *f
	m.byID[f.ID] = &cp
	return nil
}

func (m *memFiles) listing(filter func(*models.StoredFile) bool) []models.FileListing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FileListing, 0, len(m.byID))
	for _, f := range m.byID {
		if !filter(f) {
			continue
		}
		owner, _ := m.users.GetByID(context.Background(), f.OwnerID)
		name := ""
		if owner != nil {
			name = owner.Username
		}
		out = append(out, models.FileListing{
			StorageKey:    f.StorageKey,
			DisplayName:   f.DisplayName,
			OwnerUsername: name,
			OwnerID:       f.OwnerID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StorageKey < out[j].StorageKey })
	return out
}

func (m *memFiles) ListAll(context.Context) ([]models.FileListing, error) {
	return m.listing(func(*models.StoredFile) bool { return true }), nil
}

func (m *memFiles) ListByOwner(_ context.Context, ownerID string) ([]models.FileListing, error) {
	return m.listing(func(f *models.StoredFile) bool { return f.OwnerID == ownerID }), nil
}

func (m *memFiles) FindByStorageKey(_ context.Context, key string) (*models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.byID {
		if f.StorageKey == key {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memFiles) FindByID(_ context.Context, id string) (*models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// memShares resolves links against files at lookup time, like the SQL join.
type memShares struct {
	mu    sync.Mutex
	files *memFiles
	byID  map[string]*models.ShareLink
}

func newMemShares(files *memFiles) *memShares {
	return &memShares{files: files, byID: map[string]*models.ShareLink{}}
}

func (m *memShares) Create(_ context.Context, l *models.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.byID[l.ID] = &cp
	return nil
}

func (m *memShares) Resolve(ctx context.Context, id string) (*models.ShareLink, *models.StoredFile, error) {
	m.mu.Lock()
	l, ok := m.byID[id]
	m.mu.Unlock()
	if !ok || l.Status != models.ShareActive {
		return nil, nil, common.ErrInvalidShare
	}
	f, err := m.files.FindByID(ctx, l.FileID)
	if err != nil {
		return nil, nil, common.ErrInvalidShare
	}
	cp := *l
	return &cp, f, nil
}

func (m *memShares) Find(_ context.Context, id string) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memShares) ListByFile(_ context.Context, fileID string) ([]models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ShareLink, 0)
	for _, l := range m.byID {
		if l.FileID == fileID && l.Status == models.ShareActive {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memShares) Revoke(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.byID[id]; ok && l.Status == models.ShareActive {
		l.Status = models.ShareRevoked
		l.RevokedAt = &at
	}
	return nil
}

func (m *memShares) RevokeByFile(_ context.Context, fileID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.byID {
		if l.FileID == fileID && l.Status == models.ShareActive {
			l.Status = models.ShareRevoked
			l.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

// memBlobs is an in-memory blob.Store that records every call.
type memBlobs struct {
	mu        sync.Mutex
	data      map[string][]byte
	calls     []string
	deleteErr error
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "put:"+key)
	m.data[key] = b
	return nil
}

func (m *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "open:"+key)
	b, ok := m.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete:"+key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.data[key]; !ok {
		return common.ErrNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *memBlobs) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
