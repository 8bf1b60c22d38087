package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/surveychain/backend/internal/models"
)

// MemoryStore keeps surveys in process memory. Reads return copies.
type MemoryStore struct {
	mu      sync.RWMutex
	surveys map[string]*models.Survey
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory survey store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		surveys: make(map[string]*models.Survey),
		locks:   make(map[string]*sync.Mutex),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Insert stores a new survey.
func (m *MemoryStore) Insert(_ context.Context, s *models.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.surveys[s.ID]; ok {
		return &Error{Kind: KindConflict, Msg: "survey id already exists"}
	}
	m.surveys[s.ID] = s.Clone()
	m.locks[s.ID] = &sync.Mutex{}
	return nil
}

// Get returns a copy of the survey or ErrSurveyNotFound.
func (m *MemoryStore) Get(_ context.Context, id string) (*models.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, ErrSurveyNotFound
	}
	return s.Clone(), nil
}

// List returns all surveys, oldest first.
func (m *MemoryStore) List(_ context.Context) ([]*models.Survey, error) {
	return m.filter(func(*models.Survey) bool { return true }), nil
}

// ListByCreator returns surveys created by a canonical address.
func (m *MemoryStore) ListByCreator(_ context.Context, creator string) ([]*models.Survey, error) {
	return m.filter(func(s *models.Survey) bool { return s.Creator == creator }), nil
}

// ListByResponder returns surveys with a response from a canonical address.
func (m *MemoryStore) ListByResponder(_ context.Context, responder string) ([]*models.Survey, error) {
	return m.filter(func(s *models.Survey) bool { return s.HasResponded(responder) }), nil
}

// ListByApplicant returns surveys a canonical address applied to.
func (m *MemoryStore) ListByApplicant(_ context.Context, applicant string) ([]*models.Survey, error) {
	return m.filter(func(s *models.Survey) bool { return s.Applicant(applicant) != nil }), nil
}

// Update applies fn to a copy of the survey under the survey's lock and swaps it in on success.
func (m *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Survey, error) {
	m.mu.RLock()
	lock, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSurveyNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	current := m.surveys[id]
	m.mu.RUnlock()

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = m.now()

	m.mu.Lock()
	m.surveys[id] = next
	m.mu.Unlock()
	return next.Clone(), nil
}

func (m *MemoryStore) filter(keep func(*models.Survey) bool) []*models.Survey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Survey, 0, len(m.surveys))
	for _, s := range m.surveys {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	sortByCreated(out)
	return out
}

func sortByCreated(list []*models.Survey) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
