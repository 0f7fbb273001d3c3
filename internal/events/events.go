package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	AttemptStarted        Type = "attempt.started"
	AttemptAnswered       Type = "attempt.answered"
	AttemptSubmitted      Type = "attempt.submitted"
	AttemptTimedOut       Type = "attempt.timed_out"
	AttemptGraded         Type = "attempt.graded"
	AttemptReviewed       Type = "attempt.reviewed"
	AttemptManuallyGraded Type = "attempt.manually_graded"
)

// Event is an attempt lifecycle notification. Data is JSON-encoded by sinks.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	AttemptID string    `json:"attemptId"`
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
