package attempt

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

type SessionOptions struct {
	Policy Policy
	Grader grading.Grader
	Clock  Clock
	// Shuffle randomizes snapshots; defaults to math/rand.Shuffle.
	Shuffle func(n int, swap func(i, j int))
	// AbandonTTL expires untimed attempts left open this long. Zero disables.
	AbandonTTL time.Duration

	Warnings  []time.Duration
	OnWarning func(attemptID string, threshold time.Duration, remaining int)
	// OnTimeout runs once, outside the session lock, when the timer forces
	// submission.
	OnTimeout func(a Attempt)
}

func (o *SessionOptions) defaults() {
	if o.Grader == nil {
		o.Grader = grading.NewDefaultGrader()
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Shuffle == nil {
		o.Shuffle = rand.Shuffle
	}
	if o.Warnings == nil {
		o.Warnings = DefaultWarnings
	}
}

// Session drives one user's run through one quiz. All methods are safe for
// concurrent use; calls on the same question are last-write-wins.
type Session struct {
	mu     sync.Mutex
	quiz   quiz.Quiz
	userID string
	opts   SessionOptions

	state   Status
	attempt Attempt
	timer   *Timer // nil when untimed

	// immediate mode: time on the current question, excluding pauses
	activeSince time.Time
	carried     time.Duration
}

func NewSession(q quiz.Quiz, userID string, opts SessionOptions) *Session {
	opts.defaults()
	return &Session{quiz: q, userID: userID, opts: opts, state: StatusNotStarted}
}

// RestoreSession rebuilds a live session from a persisted in-progress attempt.
// The countdown resumes from the server-computed remaining time.
func RestoreSession(a Attempt, opts SessionOptions) *Session {
	opts.defaults()
	s := &Session{userID: a.UserID, opts: opts, state: a.Status, attempt: a.Clone()}
	if a.Status != StatusInProgress {
		return s
	}
	now := opts.Clock.Now()
	s.activeSince = a.StartedAt
	for _, r := range a.Answers {
		if r.Locked && r.AnsweredAt.After(s.activeSince) {
			s.activeSince = r.AnsweredAt
		}
	}
	if a.PausedAt != nil {
		s.carried = a.PausedAt.Sub(s.activeSince)
		s.activeSince = now
	}
	if a.TimeLimitSeconds > 0 {
		s.armTimer(a.Remaining(now))
		if a.PausedAt != nil {
			s.timer.Pause()
		}
	}
	return s
}

func (s *Session) armTimer(seconds int) {
	id := s.attempt.ID
	s.timer = NewTimer(TimerConfig{
		Seconds:  seconds,
		Warnings: s.opts.Warnings,
		OnWarning: func(th time.Duration, rem int) {
			if s.opts.OnWarning != nil {
				s.opts.OnWarning(id, th, rem)
			}
		},
		OnExpire: s.forceSubmit,
	})
}

// Start checks the policy against prior, snapshots the quiz and arms the
// timer.
func (s *Session) Start(prior History) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatusNotStarted {
		return Attempt{}, fmt.Errorf("%w: session already %s", ErrInvalidState, s.state)
	}
	if err := s.quiz.Validate(); err != nil {
		return Attempt{}, err
	}
	d := s.opts.Policy.CanStart(s.userID, s.quiz, prior)
	if err := d.Err(); err != nil {
		return Attempt{}, err
	}

	now := s.opts.Clock.Now().Truncate(time.Second)
	qs := snapshot(s.quiz, s.opts.Shuffle)
	s.attempt = Attempt{
		ID:               uuid.NewString(),
		QuizID:           s.quiz.ID,
		UserID:           s.userID,
		AttemptNumber:    d.AttemptNumber,
		Status:           StatusInProgress,
		StartedAt:        now,
		Questions:        qs,
		PassingScore:     s.quiz.PassingScore,
		TimeLimitSeconds: s.quiz.TimeLimitSeconds,
		Mode:             s.quiz.Mode(),
		Answers:          map[string]AnswerRecord{},
		TotalPoints:      quiz.TotalPoints(qs),
	}
	s.state = StatusInProgress
	s.activeSince = now
	if s.attempt.TimeLimitSeconds > 0 {
		s.armTimer(s.attempt.TimeLimitSeconds)
	}
	return s.attempt.Clone(), nil
}

// snapshot copies the questions in authored order, draws the per-attempt
// subset and applies the randomization flags.
func snapshot(q quiz.Quiz, shuffle func(int, func(i, j int))) []quiz.Question {
	qs := quiz.CloneQuestions(q.Questions)
	byOrder := func() {
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	}
	byOrder()
	swap := func(i, j int) { qs[i], qs[j] = qs[j], qs[i] }
	if n := q.QuestionsPerAttempt; n > 0 && n < len(qs) {
		shuffle(len(qs), swap)
		qs = qs[:n]
		if !q.RandomizeQuestions {
			byOrder()
		}
	} else if q.RandomizeQuestions {
		shuffle(len(qs), swap)
	}
	if q.RandomizeOptions {
		for i := range qs {
			opts := qs[i].Options
			if qs[i].Type == quiz.KindTrueFalse || len(opts) < 2 {
				continue
			}
			shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		}
	}
	return qs
}

// Answer records a response. In deferred mode it overwrites any earlier
// answer. In immediate mode the question must be the current one; it is
// graded and locked at once. Past the deadline the attempt is force-submitted
// and ErrTimeExpired returned.
func (s *Session) Answer(questionID string, value quiz.Answer) (AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return AnswerRecord{}, err
	}
	if s.attempt.PausedAt != nil {
		return AnswerRecord{}, fmt.Errorf("%w: attempt is paused", ErrInvalidState)
	}
	now := s.opts.Clock.Now()
	if s.overdueLocked(now) {
		s.finishLocked(now, s.overdueReasonLocked(now), 0)
		return AnswerRecord{}, ErrTimeExpired
	}
	idx := -1
	for i, q := range s.attempt.Questions {
		if q.ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return AnswerRecord{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	rec := AnswerRecord{QuestionID: questionID, UserAnswer: value, AnsweredAt: now.Truncate(time.Second)}
	if s.attempt.Mode == quiz.FeedbackImmediate {
		if prev, ok := s.attempt.Answers[questionID]; ok && prev.Locked {
			return prev, ErrQuestionLocked
		}
		if idx != s.attempt.Cursor {
			return AnswerRecord{}, fmt.Errorf("%w: expected question %d, got %d", ErrOutOfOrder, s.attempt.Cursor+1, idx+1)
		}
		spent := s.carried + now.Sub(s.activeSince)
		rec.TimeSpentSeconds = int(spent / time.Second)
		applyResult(&rec, s.opts.Grader.Grade(s.attempt.Questions[idx], value))
		rec.Locked = true
		s.attempt.Cursor++
		s.activeSince = now
		s.carried = 0
	}
	s.attempt.Answers[questionID] = rec
	return rec, nil
}

// Submit grades the attempt. A submit that arrives after the deadline takes
// the timeout path instead and still returns the graded attempt.
func (s *Session) Submit(clientTimeSpent int) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return Attempt{}, err
	}
	now := s.opts.Clock.Now()
	reason := ReasonUser
	if s.overdueLocked(now) {
		reason = s.overdueReasonLocked(now)
	}
	s.finishLocked(now, reason, clientTimeSpent)
	return s.attempt.Clone(), nil
}

// Expire force-submits the attempt if it is overdue. It reports whether this
// call performed the transition.
func (s *Session) Expire() (Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatusInProgress {
		return Attempt{}, false
	}
	now := s.opts.Clock.Now()
	if !s.overdueLocked(now) {
		return Attempt{}, false
	}
	s.finishLocked(now, s.overdueReasonLocked(now), 0)
	return s.attempt.Clone(), true
}

// forceSubmit is the timer's expiry callback.
func (s *Session) forceSubmit() {
	s.mu.Lock()
	if s.state != StatusInProgress {
		s.mu.Unlock()
		return
	}
	s.finishLocked(s.opts.Clock.Now(), ReasonTimeout, 0)
	a := s.attempt.Clone()
	s.mu.Unlock()
	if s.opts.OnTimeout != nil {
		s.opts.OnTimeout(a)
	}
}

func (s *Session) Pause() (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return Attempt{}, err
	}
	if s.attempt.PausedAt != nil {
		return Attempt{}, fmt.Errorf("%w: already paused", ErrInvalidState)
	}
	now := s.opts.Clock.Now().Truncate(time.Second)
	s.attempt.PausedAt = &now
	s.carried += now.Sub(s.activeSince)
	if s.timer != nil {
		s.timer.Pause()
	}
	return s.attempt.Clone(), nil
}

func (s *Session) Resume() (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return Attempt{}, err
	}
	if s.attempt.PausedAt == nil {
		return Attempt{}, fmt.Errorf("%w: not paused", ErrInvalidState)
	}
	now := s.opts.Clock.Now()
	s.foldPauseLocked(now)
	s.activeSince = now
	if s.timer != nil {
		s.timer.Resume()
	}
	return s.attempt.Clone(), nil
}

// Tick advances the countdown by one second, then pulls it down to the
// server-computed remaining time if that is lower.
func (s *Session) Tick() {
	if s.timer == nil {
		return
	}
	s.timer.Tick()
	s.mu.Lock()
	if s.state != StatusInProgress || s.attempt.PausedAt != nil {
		s.mu.Unlock()
		return
	}
	rem := s.attempt.Remaining(s.opts.Clock.Now())
	s.mu.Unlock()
	s.timer.Sync(rem)
}

func (s *Session) Attempt() Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Clone()
}

func (s *Session) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the server-computed seconds left, or -1 when untimed.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Remaining(s.opts.Clock.Now())
}

func (s *Session) activeLocked() error {
	switch s.state {
	case StatusInProgress:
		return nil
	case StatusNotStarted:
		return ErrNoActiveAttempt
	default:
		return fmt.Errorf("%w: attempt is %s", ErrNoActiveAttempt, s.state)
	}
}

func (s *Session) overdueLocked(now time.Time) bool {
	return s.attempt.Expired(now, s.opts.AbandonTTL)
}

func (s *Session) overdueReasonLocked(now time.Time) SubmitReason {
	if s.attempt.TimeLimitSeconds > 0 && s.attempt.Remaining(now) == 0 {
		return ReasonTimeout
	}
	return ReasonExpired
}

func (s *Session) foldPauseLocked(now time.Time) {
	if s.attempt.PausedAt == nil {
		return
	}
	if d := now.Sub(*s.attempt.PausedAt); d > 0 {
		s.attempt.PausedSeconds += int(d / time.Second)
	}
	s.attempt.PausedAt = nil
}

// finishLocked runs Submitted|TimedOut -> Graded. Unanswered questions score
// zero; answers already locked in immediate mode keep their grade.
func (s *Session) finishLocked(now time.Time, reason SubmitReason, clientTimeSpent int) {
	if s.timer != nil {
		s.timer.Stop()
	}
	if reason == ReasonUser {
		s.state = StatusSubmitted
	} else {
		s.state = StatusTimedOut
	}
	a := &s.attempt

	end := now.Truncate(time.Second)
	if reason == ReasonTimeout && a.TimeLimitSeconds > 0 {
		// a lazily detected timeout completes at the deadline, not when noticed
		deadline := a.StartedAt.Add(time.Duration(a.TimeLimitSeconds+a.PausedSeconds) * time.Second)
		if a.PausedAt == nil && end.After(deadline) {
			end = deadline
		}
	}
	s.foldPauseLocked(end)

	earned := make(map[string]float64, len(a.Questions))
	a.PendingReview = false
	for _, q := range a.Questions {
		rec, ok := a.Answers[q.ID]
		if !ok {
			continue
		}
		if !rec.Locked {
			applyResult(&rec, s.opts.Grader.Grade(q, rec.UserAnswer))
			rec.Locked = true
			a.Answers[q.ID] = rec
		}
		earned[q.ID] = rec.PointsEarned
		if rec.Pending() {
			a.PendingReview = true
		}
	}
	v := grading.Aggregate(a.Questions, earned, a.PassingScore)
	a.TotalPoints = v.TotalPoints
	a.EarnedPoints = v.EarnedPoints
	a.Score = v.Score
	a.Passed = v.Passed

	a.CompletedAt = &end
	spent := a.Elapsed(end)
	if a.TimeLimitSeconds > 0 && spent > a.TimeLimitSeconds {
		spent = a.TimeLimitSeconds
	}
	a.TimeSpentSeconds = spent
	a.ClientTimeSpentSeconds = clientTimeSpent
	a.SubmitReason = reason

	s.state = StatusGraded
	a.Status = StatusGraded
}

func applyResult(rec *AnswerRecord, r grading.Result) {
	rec.Status = r.Status
	rec.IsCorrect = r.IsCorrect
	rec.PointsEarned = r.Points
}
