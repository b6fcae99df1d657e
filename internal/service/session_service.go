package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/model"
	"github.com/gHajnal/OppaTalent/internal/quiz"
)

// Session registry errors.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrEvaluationPending  = errors.New("an answer for this question is already being evaluated")
	ErrNoAnswersSubmitted = errors.New("session has no submitted answers")
)

// Evaluator judges a single submitted answer.
type Evaluator interface {
	Evaluate(ctx context.Context, question *model.Question, submitted string) model.Verdict
}

// Grader turns a finished session's records into a full report.
type Grader interface {
	GradeSession(ctx context.Context, sessionID, userID string, answers []model.AnswerRecord, totalSec int) (*model.Report, error)
}

// GradeSender pushes a final percentage to an external gradebook.
type GradeSender interface {
	SendGrade(ctx context.Context, userID string, percentage float64) error
}

// SessionService owns the registry of live quiz sessions and orchestrates
// the per-event flow: route input, evaluate, record, and finally grade.
// Sessions live in memory for their whole lifecycle; only the final report
// is persisted (by the grader).
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	evaluator Evaluator
	grader    Grader
	lti       GradeSender
	log       *logrus.Logger
	now       func() time.Time
}

// sessionEntry pairs a session with its in-flight evaluation flag. pending
// guards the question position currently out for judgment: a second submit
// for that position is rejected until the verdict lands.
type sessionEntry struct {
	mu      sync.Mutex
	sess    *quiz.Session
	pending bool
}

// NewSessionService creates the session registry. lti may be nil when no
// LMS passback is configured.
func NewSessionService(evaluator Evaluator, grader Grader, lti GradeSender, log *logrus.Logger) *SessionService {
	return &SessionService{
		sessions:  make(map[string]*sessionEntry),
		evaluator: evaluator,
		grader:    grader,
		lti:       lti,
		log:       log,
		now:       time.Now,
	}
}

// SessionView is the wire representation of a session's current state.
type SessionView struct {
	SessionID     string              `json:"session_id"`
	Status        quiz.Status         `json:"status"`
	Position      int                 `json:"position"`
	Total         int                 `json:"total_questions"`
	Question      model.Question      `json:"question"`
	Record        *model.AnswerRecord `json:"record,omitempty"` // set when the question was already answered
	Score         int                 `json:"score"`
	CurrentStreak int                 `json:"current_streak"`
	LongestStreak int                 `json:"longest_streak"`
	ElapsedSec    int                 `json:"elapsed_time"`
}

// Start registers a new session over the given questions and returns its
// initial view.
func (s *SessionService) Start(userID string, questions []model.Question) (*SessionView, error) {
	id := uuid.New().String()
	sess, err := quiz.NewSession(id, userID, questions, s.now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{sess: sess}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"session_id": id,
		"user_id":    userID,
		"questions":  len(questions),
	}).Info("session started")
	return view(sess), nil
}

func (s *SessionService) entry(sessionID string) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// Current returns the session's view at its current position.
func (s *SessionService) Current(sessionID string) (*SessionView, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return view(e.sess), nil
}

// Advance moves the session forward one question. Clamped at the end.
func (s *SessionService) Advance(sessionID string) (*SessionView, error) {
	return s.navigate(sessionID, (*quiz.Session).Advance)
}

// Retreat moves the session back one question. Clamped at the start.
func (s *SessionService) Retreat(sessionID string) (*SessionView, error) {
	return s.navigate(sessionID, (*quiz.Session).Retreat)
}

// Navigation stays available while an evaluation is in flight; the verdict
// lands on its captured position regardless of where the user has moved.
func (s *SessionService) navigate(sessionID string, move func(*quiz.Session) error) (*SessionView, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := move(e.sess); err != nil {
		return nil, err
	}
	return view(e.sess), nil
}

// SubmitAnswer evaluates an answer for the session's current question and
// records the verdict. The position and elapsed time are captured before
// evaluation, so the record is attributed correctly even if the user
// navigates while the judge is working.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, submitted string) (*model.SubmitAnswerResponse, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.sess.Status() == quiz.StatusCompleted {
		e.mu.Unlock()
		return nil, quiz.ErrSessionClosed
	}
	pos := e.sess.Position()
	if e.sess.Answered(pos) {
		e.mu.Unlock()
		return nil, quiz.ErrAlreadyAnswered
	}
	if e.pending {
		e.mu.Unlock()
		return nil, ErrEvaluationPending
	}
	question := e.sess.Current()
	elapsed := e.sess.ElapsedQuestionSeconds()
	e.pending = true
	e.mu.Unlock()

	// Evaluation happens outside the lock; it may block on the remote judge.
	verdict := s.evaluator.Evaluate(ctx, &question, submitted)

	record := model.AnswerRecord{
		QuestionID:    question.ID,
		QuestionText:  question.Text,
		UserAnswer:    submitted,
		CorrectAnswer: question.CorrectAnswer,
		IsCorrect:     verdict.IsCorrect,
		TimeTakenSec:  elapsed,
		Topic:         question.Topic,
		BloomLevel:    question.BloomLevel,
		QuestionType:  question.Type,
		Feedback:      verdict.Feedback,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = false
	if err := e.sess.RecordAnswer(pos, record); err != nil {
		return nil, err
	}

	return &model.SubmitAnswerResponse{
		Record:        record,
		Score:         e.sess.Scoreboard.Score,
		CurrentStreak: e.sess.Scoreboard.CurrentStreak,
		LongestStreak: e.sess.Scoreboard.LongestStreak,
	}, nil
}

// Finalize closes the session, grades it and returns the report. A grading
// failure still produces a report from local data, flagged as degraded.
// Finalize is rejected while an evaluation is in flight so the pending
// answer is not lost.
func (s *SessionService) Finalize(ctx context.Context, sessionID string) (*model.Report, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return nil, ErrEvaluationPending
	}
	answers, totalSec, err := e.sess.Finalize()
	userID := e.sess.UserID
	totalQuestions := e.sess.Len()
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	report, err := s.grader.GradeSession(ctx, sessionID, userID, answers, totalSec)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).
			Warn("grading failed, building degraded report")
		report = degradedReport(sessionID, userID, answers, totalQuestions, totalSec, s.now())
	}

	if s.lti != nil {
		if err := s.lti.SendGrade(ctx, userID, report.Percentage); err != nil {
			s.log.WithError(err).WithField("user_id", userID).
				Warn("grade passback failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"percentage": report.Percentage,
		"degraded":   report.Degraded,
	}).Info("session finalized")
	return report, nil
}

// degradedReport is the local fallback when the grading service cannot
// produce a report: counts and percentage only, no insights. The percentage
// is over the session's full question count, so unanswered questions count
// against the score.
func degradedReport(sessionID, userID string, answers []model.AnswerRecord, totalQuestions, totalSec int, at time.Time) *model.Report {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	percentage := 0.0
	if totalQuestions > 0 {
		percentage = float64(correct) / float64(totalQuestions) * 100
	}
	return &model.Report{
		SessionID:        sessionID,
		UserID:           userID,
		Timestamp:        at.UTC(),
		TotalQuestions:   totalQuestions,
		CorrectAnswers:   correct,
		IncorrectAnswers: len(answers) - correct,
		Percentage:       percentage,
		TimeTakenSec:     totalSec,
		Insights:         []string{},
		PerformanceTrend: "insufficient_data",
		Answers:          answers,
		Degraded:         true,
	}
}

func view(sess *quiz.Session) *SessionView {
	return &SessionView{
		SessionID:     sess.ID,
		Status:        sess.Status(),
		Position:      sess.Position(),
		Total:         sess.Len(),
		Question:      sess.Current(),
		Record:        sess.RecordAt(sess.Position()),
		Score:         sess.Scoreboard.Score,
		CurrentStreak: sess.Scoreboard.CurrentStreak,
		LongestStreak: sess.Scoreboard.LongestStreak,
		ElapsedSec:    sess.ElapsedSessionSeconds(),
	}
}
