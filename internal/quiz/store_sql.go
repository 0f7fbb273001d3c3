package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, q Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	now := time.Now().Unix()
	if q.CreatedAt == 0 {
		q.CreatedAt = now
	}
	def, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,definition_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, definition_json=EXCLUDED.definition_json, updated_at=EXCLUDED.updated_at`,
		q.ID, q.Title, string(def), q.CreatedAt, now)
	return err
}

// GetByID returns the full definition including answer keys; callers that
// serve students use Quiz.Public.
func (s *SQLStore) GetByID(ctx context.Context, id string) (Quiz, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition_json FROM quizzes WHERE id=$1`, id).Scan(&def)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	var q Quiz
	if err := json.Unmarshal([]byte(def), &q); err != nil {
		return Quiz{}, fmt.Errorf("quiz %s: %w", id, err)
	}
	return q, nil
}
