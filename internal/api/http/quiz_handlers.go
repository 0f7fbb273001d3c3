package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/rbac"
)

// POST /quizzes
// Body is a full quiz definition. It is validated before it is stored; an
// unknown question type rejects the whole quiz.
func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := quiz.Decode(r.Body)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := store.Put(r.Context(), q); err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusCreated, q)
	}
}

// GET /quizzes/{quizID}
// Answer keys are stripped unless the role may author quizzes.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "quizID"))
		q, err := store.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if !checker.Has(rbac.RoleFromContext(r.Context()), rbac.PermQuizCreate) {
			q = q.Public()
		}
		respondJSON(w, http.StatusOK, q)
	}
}
