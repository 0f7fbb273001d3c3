package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/events"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

type Config struct {
	Quizzes  quiz.Store
	Attempts Store
	Identity IdentityContext
	Clock    Clock
	Policy   Policy
	Grader   grading.Grader
	Events   events.Sink
	Logger   zerolog.Logger

	// TickInterval drives live timers; zero disables the ticker goroutine
	// and callers tick by hand.
	TickInterval time.Duration
	Warnings     []time.Duration
	AbandonTTL   time.Duration
	Shuffle      func(n int, swap func(i, j int))
}

// Submission is the submit payload: final answers plus the client's own
// elapsed-time figure, which is recorded but never trusted.
type Submission struct {
	Answers   []SubmittedAnswer `json:"answers"`
	TimeSpent int               `json:"timeSpent"`
}

type SubmittedAnswer struct {
	QuestionID string      `json:"questionId"`
	UserAnswer quiz.Answer `json:"userAnswer"`
}

// Engine owns the live sessions of one process and persists every
// transition through the Store.
type Engine struct {
	cfg Config
	log zerolog.Logger

	mu   sync.Mutex
	live map[string]*Session
	// locks guards store read-modify-write cycles per attempt id.
	locks keyedMutex

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewEngine(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Grader == nil {
		cfg.Grader = grading.NewDefaultGrader()
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard{}
	}
	e := &Engine{
		cfg:  cfg,
		log:  cfg.Logger.With().Str("component", "attempt").Logger(),
		live: map[string]*Session{},
		stop: make(chan struct{}),
	}
	if cfg.TickInterval > 0 {
		e.wg.Add(1)
		go e.run(cfg.TickInterval)
	}
	return e
}

func (e *Engine) sessionOptions() SessionOptions {
	return SessionOptions{
		Policy:     e.cfg.Policy,
		Grader:     e.cfg.Grader,
		Clock:      e.cfg.Clock,
		Shuffle:    e.cfg.Shuffle,
		AbandonTTL: e.cfg.AbandonTTL,
		Warnings:   e.cfg.Warnings,
		OnWarning:  e.onWarning,
		OnTimeout:  e.onTimeout,
	}
}

// Start opens a new attempt for the caller. When one is already in progress
// the error wraps ErrAttemptInProgress and the returned attempt is the one to
// resume.
func (e *Engine) Start(ctx context.Context, quizID string) (Attempt, error) {
	userID, err := e.cfg.Identity.CurrentUserID(ctx)
	if err != nil {
		return Attempt{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	q, err := e.cfg.Quizzes.GetByID(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	prior, err := e.cfg.Attempts.ListByUser(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, err
	}
	// abandoned attempts are closed before they can block a new one
	now := e.cfg.Clock.Now()
	for i, a := range prior {
		if a.Expired(now, e.cfg.AbandonTTL) {
			done, ok, err := e.expire(ctx, a)
			if err != nil {
				return Attempt{}, err
			}
			if ok {
				prior[i] = done
			}
		}
	}
	hist := HistoryFrom(prior)

	sess := NewSession(q, userID, e.sessionOptions())
	a, err := sess.Start(hist)
	if err != nil {
		if errors.Is(err, ErrAttemptInProgress) && hist.InProgress != nil {
			return hist.InProgress.Public(), err
		}
		return Attempt{}, err
	}
	if err := e.cfg.Attempts.Create(ctx, a); err != nil {
		return Attempt{}, err
	}
	e.mu.Lock()
	e.live[a.ID] = sess
	e.mu.Unlock()

	e.logFor(a).Info().Int("attempt_number", a.AttemptNumber).Int("questions", len(a.Questions)).
		Int("time_limit_sec", a.TimeLimitSeconds).Msg("attempt started")
	e.publish(ctx, events.AttemptStarted, a, map[string]any{"attemptNumber": a.AttemptNumber})
	return a.Public(), nil
}

// Answer records one answer. In immediate mode the returned record carries
// the grade.
func (e *Engine) Answer(ctx context.Context, attemptID, questionID string, value quiz.Answer) (AnswerRecord, error) {
	sess, err := e.session(ctx, attemptID)
	if err != nil {
		return AnswerRecord{}, err
	}
	if err := e.settled(ctx, sess); err != nil {
		return AnswerRecord{}, err
	}
	rec, err := sess.Answer(questionID, value)
	if errors.Is(err, ErrTimeExpired) {
		if perr := e.completed(ctx, sess.Attempt()); perr != nil {
			return AnswerRecord{}, perr
		}
		return AnswerRecord{}, err
	}
	if err != nil {
		return rec, err
	}
	a := sess.Attempt()
	if err := e.cfg.Attempts.Update(ctx, a); err != nil {
		return AnswerRecord{}, err
	}
	e.publish(ctx, events.AttemptAnswered, a, map[string]any{"questionId": questionID, "locked": rec.Locked})
	return rec, nil
}

// Submit applies any final answers and grades the attempt. A submission that
// arrives after the deadline is graded on the timeout path and is not an
// error. A graded attempt that failed to persist is written again by the
// next Submit.
func (e *Engine) Submit(ctx context.Context, attemptID string, sub Submission) (Attempt, error) {
	sess, err := e.session(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a := sess.Attempt(); a.Status.Terminal() {
		if err := e.completed(ctx, a); err != nil {
			return Attempt{}, err
		}
		return a.Public(), nil
	}
	current := sess.Attempt()
	for _, ans := range sub.Answers {
		if _, ok := current.question(ans.QuestionID); !ok {
			return Attempt{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, ans.QuestionID)
		}
	}
	applied := 0
	for _, ans := range sub.Answers {
		_, err := sess.Answer(ans.QuestionID, ans.UserAnswer)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrQuestionLocked):
		case errors.Is(err, ErrTimeExpired):
			a := sess.Attempt()
			if err := e.completed(ctx, a); err != nil {
				return Attempt{}, err
			}
			return a.Public(), nil
		default:
			return Attempt{}, e.keepApplied(ctx, sess, applied, err)
		}
	}
	a, err := sess.Submit(sub.TimeSpent)
	if err != nil {
		return Attempt{}, e.keepApplied(ctx, sess, applied, err)
	}
	if err := e.completed(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a.Public(), nil
}

// keepApplied persists the answers a failed submission already recorded on
// the live session and returns cause joined with any store error.
func (e *Engine) keepApplied(ctx context.Context, sess *Session, applied int, cause error) error {
	if applied == 0 {
		return cause
	}
	if err := e.cfg.Attempts.Update(ctx, sess.Attempt()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (e *Engine) Pause(ctx context.Context, attemptID string) (Attempt, error) {
	return e.mutate(ctx, attemptID, (*Session).Pause)
}

func (e *Engine) Resume(ctx context.Context, attemptID string) (Attempt, error) {
	return e.mutate(ctx, attemptID, (*Session).Resume)
}

func (e *Engine) mutate(ctx context.Context, attemptID string, op func(*Session) (Attempt, error)) (Attempt, error) {
	sess, err := e.session(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if err := e.settled(ctx, sess); err != nil {
		return Attempt{}, err
	}
	a, err := op(sess)
	if err != nil {
		return Attempt{}, err
	}
	if err := e.cfg.Attempts.Update(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a.Public(), nil
}

// Get returns an attempt. Overdue attempts are expired first. Answer keys
// are hidden unless the caller is an instructor.
func (e *Engine) Get(ctx context.Context, attemptID string) (Attempt, error) {
	a, err := e.load(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if e.isInstructor(ctx) {
		return a, nil
	}
	return a.Public(), nil
}

// History lists the caller's attempts on a quiz with a summary.
func (e *Engine) History(ctx context.Context, quizID string) ([]Attempt, History, error) {
	userID, err := e.cfg.Identity.CurrentUserID(ctx)
	if err != nil {
		return nil, History{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	as, err := e.cfg.Attempts.ListByUser(ctx, userID, quizID)
	if err != nil {
		return nil, History{}, err
	}
	now := e.cfg.Clock.Now()
	for i := range as {
		if as[i].Expired(now, e.cfg.AbandonTTL) {
			done, ok, err := e.expire(ctx, as[i])
			if err != nil {
				return nil, History{}, err
			}
			if ok {
				as[i] = done
			}
		}
		as[i] = as[i].Public()
	}
	return as, HistoryFrom(as), nil
}

// Review renders feedback for a completed attempt. The owner's first review
// moves it from graded to reviewed.
func (e *Engine) Review(ctx context.Context, attemptID string) (Review, error) {
	a, err := e.load(ctx, attemptID)
	if err != nil {
		return Review{}, err
	}
	if !a.Status.Terminal() {
		return Review{}, ErrNotCompleted
	}
	q, err := e.cfg.Quizzes.GetByID(ctx, a.QuizID)
	if err != nil {
		return Review{}, err
	}
	uid, _ := e.cfg.Identity.CurrentUserID(ctx)
	if a.Status == StatusGraded && uid == a.UserID {
		if a, err = e.markReviewed(ctx, a.ID); err != nil {
			return Review{}, err
		}
	}
	return Assemble(a, q)
}

// markReviewed re-reads the attempt under its lock so a concurrent manual
// grade is not overwritten.
func (e *Engine) markReviewed(ctx context.Context, attemptID string) (Attempt, error) {
	unlock := e.locks.Lock(attemptID)
	defer unlock()
	a, err := e.cfg.Attempts.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusGraded {
		return a, nil
	}
	a.Status = StatusReviewed
	if err := e.cfg.Attempts.Update(ctx, a); err != nil {
		return Attempt{}, err
	}
	e.publish(ctx, events.AttemptReviewed, a, nil)
	return a, nil
}

// ApplyManualGrade lets an instructor resolve a pending answer. Grades on the
// same attempt are applied one at a time.
func (e *Engine) ApplyManualGrade(ctx context.Context, attemptID, questionID string, g ManualGrade) (Attempt, error) {
	if !e.isInstructor(ctx) {
		return Attempt{}, ErrForbidden
	}
	grader, _ := e.cfg.Identity.CurrentUserID(ctx)
	unlock := e.locks.Lock(attemptID)
	defer unlock()
	a, err := e.cfg.Attempts.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	rec, err := ApplyManualGrade(&a, questionID, g, grader, e.cfg.Clock.Now())
	if err != nil {
		return Attempt{}, err
	}
	if err := e.cfg.Attempts.Update(ctx, a); err != nil {
		return Attempt{}, err
	}
	e.logFor(a).Info().Str("question_id", questionID).Float64("points", rec.PointsEarned).
		Str("graded_by", grader).Int("score", a.Score).Msg("answer manually graded")
	e.publish(ctx, events.AttemptManuallyGraded, a, map[string]any{
		"questionId": questionID, "points": rec.PointsEarned, "score": a.Score, "passed": a.Passed,
	})
	return a, nil
}

// Restore re-arms sessions for every persisted in-progress attempt, expiring
// those already overdue. Call once at startup.
func (e *Engine) Restore(ctx context.Context) (restored, expired int, err error) {
	as, err := e.cfg.Attempts.ListInProgress(ctx)
	if err != nil {
		return 0, 0, err
	}
	now := e.cfg.Clock.Now()
	var errs []error
	for _, a := range as {
		if a.Expired(now, e.cfg.AbandonTTL) {
			_, ok, err := e.expire(ctx, a)
			if err != nil {
				errs = append(errs, err)
			} else if ok {
				expired++
			}
			continue
		}
		e.mu.Lock()
		if _, ok := e.live[a.ID]; !ok {
			e.live[a.ID] = RestoreSession(a, e.sessionOptions())
			restored++
		}
		e.mu.Unlock()
	}
	return restored, expired, errors.Join(errs...)
}

// ExpireStale force-submits every overdue in-progress attempt in the store.
// Live sessions that were graded but never persisted are written again.
func (e *Engine) ExpireStale(ctx context.Context) (int, error) {
	var errs []error
	e.mu.Lock()
	var unsaved []Attempt
	for _, s := range e.live {
		if a := s.Attempt(); a.Status.Terminal() {
			unsaved = append(unsaved, a)
		}
	}
	e.mu.Unlock()
	for _, a := range unsaved {
		if err := e.completed(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}

	as, err := e.cfg.Attempts.ListInProgress(ctx)
	if err != nil {
		return 0, errors.Join(append(errs, err)...)
	}
	now := e.cfg.Clock.Now()
	n := 0
	for _, a := range as {
		if !a.Expired(now, e.cfg.AbandonTTL) {
			continue
		}
		_, ok, err := e.expire(ctx, a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// Shutdown stops the ticker. Sessions are persisted after every call; a
// graded session whose write failed is left to ExpireStale.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.stop) })
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) run(interval time.Duration) {
	defer e.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-t.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	ss := make([]*Session, 0, len(e.live))
	for _, s := range e.live {
		ss = append(ss, s)
	}
	e.mu.Unlock()
	for _, s := range ss {
		s.Tick()
	}
}

// session returns the live session for an attempt the caller owns,
// restoring it from the store if this process has not seen it.
func (e *Engine) session(ctx context.Context, attemptID string) (*Session, error) {
	e.mu.Lock()
	sess, ok := e.live[attemptID]
	e.mu.Unlock()
	if ok {
		if err := e.owns(ctx, sess.Attempt()); err != nil {
			return nil, err
		}
		return sess, nil
	}
	a, err := e.cfg.Attempts.Get(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoActiveAttempt, attemptID)
		}
		return nil, err
	}
	if err := e.owns(ctx, a); err != nil {
		return nil, err
	}
	if a.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: attempt is %s", ErrNoActiveAttempt, a.Status)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if sess, ok := e.live[attemptID]; ok {
		return sess, nil
	}
	sess = RestoreSession(a, e.sessionOptions())
	e.live[attemptID] = sess
	return sess, nil
}

// load reads an attempt the caller may see, expiring it if overdue.
func (e *Engine) load(ctx context.Context, attemptID string) (Attempt, error) {
	e.mu.Lock()
	sess, ok := e.live[attemptID]
	e.mu.Unlock()
	var a Attempt
	if ok {
		a = sess.Attempt()
		if a.Status.Terminal() {
			if err := e.authorize(ctx, a); err != nil {
				return Attempt{}, err
			}
			return a, e.completed(ctx, a)
		}
	} else {
		var err error
		if a, err = e.cfg.Attempts.Get(ctx, attemptID); err != nil {
			return Attempt{}, err
		}
	}
	if err := e.authorize(ctx, a); err != nil {
		return Attempt{}, err
	}
	if a.Expired(e.cfg.Clock.Now(), e.cfg.AbandonTTL) {
		done, ok, err := e.expire(ctx, a)
		if err != nil {
			return Attempt{}, err
		}
		if ok {
			a = done
		}
	}
	return a, nil
}

// settled writes out a live session the timer graded while its persist
// failed. Callers get ErrNoActiveAttempt once it is stored.
func (e *Engine) settled(ctx context.Context, sess *Session) error {
	a := sess.Attempt()
	if !a.Status.Terminal() {
		return nil
	}
	if err := e.completed(ctx, a); err != nil {
		return err
	}
	return fmt.Errorf("%w: attempt is %s", ErrNoActiveAttempt, a.Status)
}

// expire takes an overdue attempt through the timeout path and persists it.
// A live session already graded by its timer is persisted again.
func (e *Engine) expire(ctx context.Context, a Attempt) (Attempt, bool, error) {
	e.mu.Lock()
	sess, ok := e.live[a.ID]
	e.mu.Unlock()
	if !ok {
		sess = RestoreSession(a, e.sessionOptions())
	}
	done, ok := sess.Expire()
	if !ok {
		if cur := sess.Attempt(); cur.Status.Terminal() {
			if err := e.completed(ctx, cur); err != nil {
				return Attempt{}, false, err
			}
			return cur, true, nil
		}
		return Attempt{}, false, nil
	}
	if err := e.completed(ctx, done); err != nil {
		return Attempt{}, false, err
	}
	return done, true, nil
}

// completed persists a graded attempt, then drops its live session and
// publishes the terminal events. On a store error the session stays live so
// the next call on the attempt writes it again. An attempt the store already
// holds as graded is not written or announced twice.
func (e *Engine) completed(ctx context.Context, a Attempt) error {
	unlock := e.locks.Lock(a.ID)
	defer unlock()

	l := e.logFor(a)
	stored, err := e.cfg.Attempts.Get(ctx, a.ID)
	if err != nil {
		l.Error().Err(err).Msg("read attempt before grading")
		return err
	}
	if stored.Status.Terminal() {
		e.drop(a.ID)
		return nil
	}
	if err := e.cfg.Attempts.Update(ctx, a); err != nil {
		l.Error().Err(err).Msg("persist graded attempt")
		return fmt.Errorf("persist graded attempt %s: %w", a.ID, err)
	}
	e.drop(a.ID)

	typ := events.AttemptSubmitted
	if a.SubmitReason != ReasonUser {
		typ = events.AttemptTimedOut
		l.Warn().Str("reason", string(a.SubmitReason)).Msg("attempt timed out")
	}
	e.publish(ctx, typ, a, map[string]any{"reason": a.SubmitReason, "clientTimeSpent": a.ClientTimeSpentSeconds})
	l.Info().Int("score", a.Score).Bool("passed", a.Passed).Bool("pending_review", a.PendingReview).
		Int("time_spent_sec", a.TimeSpentSeconds).Msg("attempt graded")
	e.publish(ctx, events.AttemptGraded, a, map[string]any{
		"score":         a.Score,
		"passed":        a.Passed,
		"earnedPoints":  a.EarnedPoints,
		"totalPoints":   a.TotalPoints,
		"pendingReview": a.PendingReview,
	})
	return nil
}

func (e *Engine) drop(attemptID string) {
	e.mu.Lock()
	delete(e.live, attemptID)
	e.mu.Unlock()
}

// onTimeout runs on the ticker. A failed persist is retried by the next
// request on the attempt or by ExpireStale.
func (e *Engine) onTimeout(a Attempt) {
	if err := e.completed(context.Background(), a); err != nil {
		e.logFor(a).Warn().Err(err).Msg("timed out attempt kept live for retry")
	}
}

func (e *Engine) onWarning(attemptID string, threshold time.Duration, remaining int) {
	e.log.Info().Str("attempt_id", attemptID).Dur("threshold", threshold).Int("remaining_sec", remaining).Msg("timer warning")
}

// owns admits only the attempt's owner. Instructors read and grade attempts
// but never answer, submit, pause or resume them.
func (e *Engine) owns(ctx context.Context, a Attempt) error {
	uid, err := e.cfg.Identity.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if uid != a.UserID {
		return ErrForbidden
	}
	return nil
}

func (e *Engine) authorize(ctx context.Context, a Attempt) error {
	uid, err := e.cfg.Identity.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if uid == a.UserID || e.isInstructor(ctx) {
		return nil
	}
	return ErrForbidden
}

func (e *Engine) isInstructor(ctx context.Context) bool {
	in, ok := e.cfg.Identity.(Instructor)
	return ok && in.IsInstructor(ctx)
}

func (e *Engine) publish(ctx context.Context, typ events.Type, a Attempt, data any) {
	ev := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		AttemptID: a.ID,
		QuizID:    a.QuizID,
		UserID:    a.UserID,
		Data:      data,
		At:        e.cfg.Clock.Now(),
	}
	if err := e.cfg.Events.Publish(ctx, ev); err != nil {
		e.logFor(a).Error().Err(err).Str("event", string(typ)).Msg("publish event")
	}
}

func (e *Engine) logFor(a Attempt) *zerolog.Logger {
	l := e.log.With().Str("attempt_id", a.ID).Str("quiz_id", a.QuizID).Str("user_id", a.UserID).Logger()
	return &l
}
