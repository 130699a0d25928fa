package service_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

// memoryStore is an in-memory credential store. Reads hand out copies so
// callers never share records with the store.
type memoryStore struct {
	mu        sync.Mutex
	nextKeyID uint64
	nextEvtID uint64
	keys      map[uint64]*entity.APIKey
	projects  map[uint64]*entity.Project
	events    []*entity.UsageEvent

	findActiveErr error
	projectErr    error
	createErr     error
	recordErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		keys:     make(map[uint64]*entity.APIKey),
		projects: make(map[uint64]*entity.Project),
	}
}

func (s *memoryStore) addProject(id, ownerID uint64, name string) *entity.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	project := &entity.Project{ID: id, Name: name, OwnerID: ownerID, CreatedAt: time.Now()}
	s.projects[id] = project
	return project
}

func (s *memoryStore) deleteProject(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, id)
	for keyID, key := range s.keys {
		if key.ProjectID == id {
			delete(s.keys, keyID)
		}
	}
}

func (s *memoryStore) Create(_ context.Context, key *entity.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	s.nextKeyID++
	key.ID = s.nextKeyID
	stored := *key
	s.keys[key.ID] = &stored
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id uint64) (*entity.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, nil
	}
	copied := *key
	return &copied, nil
}

func (s *memoryStore) FindActive(_ context.Context) ([]*entity.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findActiveErr != nil {
		return nil, s.findActiveErr
	}
	return s.sortedKeys(func(k *entity.APIKey) bool { return k.IsActive() }), nil
}

func (s *memoryStore) FindByProjectID(_ context.Context, projectID uint64) ([]*entity.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.sortedKeys(func(k *entity.APIKey) bool { return k.ProjectID == projectID })
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID > keys[j].ID })
	return keys, nil
}

func (s *memoryStore) Revoke(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok || !key.IsActive() {
		return false, nil
	}
	key.Status = entity.KeyStatusRevoked
	return true, nil
}

func (s *memoryStore) RecordUsage(_ context.Context, event *entity.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordErr != nil {
		return s.recordErr
	}
	key, ok := s.keys[event.KeyID]
	if !ok {
		return sql.ErrNoRows
	}
	key.LastUsedAt = sql.NullTime{Time: event.OccurredAt, Valid: true}
	s.nextEvtID++
	event.ID = s.nextEvtID
	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

func (s *memoryStore) FindByKeyID(_ context.Context, keyID uint64, limit int) ([]*entity.UsageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*entity.UsageEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].KeyID != keyID {
			continue
		}
		copied := *s.events[i]
		events = append(events, &copied)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (s *memoryStore) eventsFor(keyID uint64) []*entity.UsageEvent {
	events, _ := s.FindByKeyID(context.Background(), keyID, 0)
	return events
}

func (s *memoryStore) sortedKeys(keep func(*entity.APIKey) bool) []*entity.APIKey {
	keys := make([]*entity.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		if keep(key) {
			copied := *key
			keys = append(keys, &copied)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys
}

// projectStore lets tests fail project lookups while keeping the rest of
// memoryStore.
type projectStore struct {
	*memoryStore
}

func (p projectStore) FindByID(_ context.Context, id uint64) (*entity.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.projectErr != nil {
		return nil, p.projectErr
	}
	project, ok := p.projects[id]
	if !ok {
		return nil, nil
	}
	copied := *project
	return &copied, nil
}

type countingHasher struct {
	credential.Hasher
	compares atomic.Int64
}

func (h *countingHasher) Compare(secret, digest string) (bool, error) {
	h.compares.Add(1)
	return h.Hasher.Compare(secret, digest)
}

func newCountingHasher(t *testing.T) *countingHasher {
	t.Helper()

	hasher, err := credential.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	return &countingHasher{Hasher: hasher}
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Second)
	return c.now
}
