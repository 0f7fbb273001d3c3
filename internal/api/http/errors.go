package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/attempt"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

type errorBody struct {
	Error   string           `json:"error"`
	Reason  string           `json:"reason,omitempty"`
	Attempt *attempt.Attempt `json:"attempt,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps engine and quiz sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, attempt.ErrAttemptInProgress):
		return http.StatusConflict
	case errors.Is(err, attempt.ErrMaxAttemptsReached),
		errors.Is(err, attempt.ErrRetakeNotAllowed),
		errors.Is(err, attempt.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, attempt.ErrAttemptNotFound),
		errors.Is(err, quiz.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrTimeExpired):
		return http.StatusGone
	case errors.Is(err, attempt.ErrNoActiveAttempt),
		errors.Is(err, attempt.ErrInvalidState),
		errors.Is(err, attempt.ErrQuestionLocked),
		errors.Is(err, attempt.ErrOutOfOrder),
		errors.Is(err, attempt.ErrNotCompleted),
		errors.Is(err, attempt.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, attempt.ErrUnknownQuestion),
		errors.Is(err, attempt.ErrInvalidGrade),
		errors.Is(err, quiz.ErrInvalidQuiz),
		errors.Is(err, quiz.ErrUnknownQuestionType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as JSON. A start conflict carries the attempt the
// caller should resume.
func writeError(w http.ResponseWriter, r *http.Request, err error, resume *attempt.Attempt) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var pe *attempt.PolicyError
	if errors.As(err, &pe) {
		body.Error = pe.Err.Error()
		body.Reason = pe.Reason
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Error = "internal error"
	}
	if resume != nil && resume.ID != "" {
		body.Attempt = resume
	}
	respondJSON(w, status, body)
}
