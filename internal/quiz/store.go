package quiz

import (
	"context"
	"sync"
)

// Store is the read side the attempt engine consumes, plus Put for authoring.
type Store interface {
	GetByID(ctx context.Context, id string) (Quiz, error)
	Put(ctx context.Context, q Quiz) error
}

// MemoryStore keeps quizzes in a map; used offline and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	quizzes map[string]Quiz
}

func NewMemoryStore(qs ...Quiz) *MemoryStore {
	m := &MemoryStore{quizzes: make(map[string]Quiz, len(qs))}
	for _, q := range qs {
		m.quizzes[q.ID] = q
	}
	return m
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	q.Questions = CloneQuestions(q.Questions)
	return q, nil
}

func (m *MemoryStore) Put(_ context.Context, q Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	q.Questions = CloneQuestions(q.Questions)
	m.mu.Lock()
	m.quizzes[q.ID] = q
	m.mu.Unlock()
	return nil
}
