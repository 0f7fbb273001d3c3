package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/db"
)

// SQLStore keeps the queryable fields in columns and the whole attempt,
// snapshot included, in data_json.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, a Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,quiz_id,user_id,attempt_number,status,score,passed,data_json,started_at,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.QuizID, a.UserID, a.AttemptNumber, string(a.Status), a.Score, a.Passed,
		string(data), a.StartedAt.Unix(), completedUnix(a))
	switch {
	case db.UniqueViolationOn(err, "attempts_one_active", "attempts.quiz_id", "attempts.user_id"),
		db.UniqueViolationOn(err, "attempts_number", "attempts.quiz_id", "attempts.user_id", "attempts.attempt_number"):
		return fmt.Errorf("%w: quiz %s user %s", ErrAttemptInProgress, a.QuizID, a.UserID)
	case db.UniqueViolationOn(err, "attempts_pkey", "attempts.id"):
		return fmt.Errorf("%w: %s", ErrDuplicateAttempt, a.ID)
	}
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data_json FROM attempts WHERE id=$1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	return decodeAttempt(data)
}

func (s *SQLStore) ListByUser(ctx context.Context, userID, quizID string) ([]Attempt, error) {
	q := `SELECT data_json FROM attempts WHERE user_id=$1`
	args := []any{userID}
	if quizID != "" {
		q += ` AND quiz_id=$2`
		args = append(args, quizID)
	}
	q += ` ORDER BY quiz_id, attempt_number`
	return s.list(ctx, q, args...)
}

func (s *SQLStore) ListInProgress(ctx context.Context) ([]Attempt, error) {
	return s.list(ctx, `SELECT data_json FROM attempts WHERE status=$1 ORDER BY started_at`, string(StatusInProgress))
}

func (s *SQLStore) Update(ctx context.Context, a Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts
		SET status=$1, score=$2, passed=$3, data_json=$4, completed_at=$5
		WHERE id=$6`,
		string(a.Status), a.Score, a.Passed, string(data), completedUnix(a), a.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *SQLStore) list(ctx context.Context, q string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		a, err := decodeAttempt(data)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func decodeAttempt(data string) (Attempt, error) {
	var a Attempt
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return Attempt{}, err
	}
	if a.Answers == nil {
		a.Answers = map[string]AnswerRecord{}
	}
	return a, nil
}

func completedUnix(a Attempt) any {
	if a.CompletedAt == nil {
		return nil
	}
	return a.CompletedAt.Unix()
}
