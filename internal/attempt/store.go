package attempt

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists attempts. Create must refuse a second in-progress attempt
// for the same (quiz, user) with ErrAttemptInProgress, even under races, and
// a reused id with ErrDuplicateAttempt.
type Store interface {
	Create(ctx context.Context, a Attempt) error
	Get(ctx context.Context, id string) (Attempt, error)
	ListByUser(ctx context.Context, userID, quizID string) ([]Attempt, error)
	Update(ctx context.Context, a Attempt) error
	ListInProgress(ctx context.Context) ([]Attempt, error)
}

type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string]Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: map[string]Attempt{}}
}

func (m *MemoryStore) Create(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAttempt, a.ID)
	}
	for _, x := range m.attempts {
		if x.QuizID != a.QuizID || x.UserID != a.UserID {
			continue
		}
		if x.Status == StatusInProgress || x.AttemptNumber == a.AttemptNumber {
			return ErrAttemptInProgress
		}
	}
	m.attempts[a.ID] = a.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a.Clone(), nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID, quizID string) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.UserID == userID && (quizID == "" || a.QuizID == quizID) {
			out = append(out, a.Clone())
		}
	}
	sortAttempts(out)
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; !ok {
		return ErrAttemptNotFound
	}
	m.attempts[a.ID] = a.Clone()
	return nil
}

func (m *MemoryStore) ListInProgress(_ context.Context) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.Status == StatusInProgress {
			out = append(out, a.Clone())
		}
	}
	sortAttempts(out)
	return out, nil
}

func sortAttempts(as []Attempt) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].QuizID != as[j].QuizID {
			return as[i].QuizID < as[j].QuizID
		}
		return as[i].AttemptNumber < as[j].AttemptNumber
	})
}
