package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/attempt"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// decodeBody decodes a JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func attemptID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "attemptID"))
}

// POST /quizzes/{quizID}/attempts
// 201 with the new attempt, or 409 carrying the attempt to resume.
func StartAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		a, err := eng.Start(r.Context(), quizID)
		if err != nil {
			writeError(w, r, err, &a)
			return
		}
		respondJSON(w, http.StatusCreated, a)
	}
}

type historyResp struct {
	Attempts []attempt.Attempt `json:"attempts"`
	attempt.History
}

// GET /quizzes/{quizID}/attempts
func ListAttemptsHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		as, h, err := eng.History(r.Context(), quizID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if as == nil {
			as = []attempt.Attempt{}
		}
		respondJSON(w, http.StatusOK, historyResp{Attempts: as, History: h})
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := eng.Get(r.Context(), attemptID(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

type answerReq struct {
	QuestionID string      `json:"questionId"`
	UserAnswer quiz.Answer `json:"userAnswer"`
}

// POST /attempts/{attemptID}/answers
// In immediate-feedback quizzes the response carries the grade and the
// answer is locked.
func SaveAnswerHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.QuestionID == "" {
			badRequest(w, "questionId required")
			return
		}
		rec, err := eng.Answer(r.Context(), attemptID(r), req.QuestionID, req.UserAnswer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusOK, rec)
	}
}

// POST /attempts/{attemptID}/submit
// Body is optional: { "answers": [...], "timeSpent": 120 }.
func SubmitAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub attempt.Submission
		if err := decodeBody(r, &sub); err != nil {
			badRequest(w, "bad json")
			return
		}
		a, err := eng.Submit(r.Context(), attemptID(r), sub)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/pause
func PauseAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := eng.Pause(r.Context(), attemptID(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/resume
func ResumeAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := eng.Resume(r.Context(), attemptID(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}/review
func ReviewAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rv, err := eng.Review(r.Context(), attemptID(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		respondJSON(w, http.StatusOK, rv)
	}
}

type applyGradesReq struct {
	Items map[string]attempt.ManualGrade `json:"items"` // question_id -> grade
}

// POST /attempts/{attemptID}/grades
// Items are applied in question-id order; the first failure stops the batch
// and earlier grades stay applied.
func ApplyGradesHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyGradesReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if len(req.Items) == 0 {
			badRequest(w, "items required")
			return
		}
		ids := make([]string, 0, len(req.Items))
		for id := range req.Items {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		var a attempt.Attempt
		for _, qid := range ids {
			var err error
			a, err = eng.ApplyManualGrade(r.Context(), attemptID(r), qid, req.Items[qid])
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
		}
		respondJSON(w, http.StatusOK, a)
	}
}
