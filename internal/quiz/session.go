package quiz

import (
	"time"

	"github.com/gHajnal/OppaTalent/internal/model"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Session is the quiz session state machine. It owns the ordered question
// list, the parallel answer records, the position cursor, the scoreboard and
// the timers. All mutation goes through its methods; none of them perform
// I/O, so the whole machine is testable with an injected clock.
//
// Session is not safe for concurrent use; callers serialize access
// (one event handler at a time, matching the UI's event loop).
type Session struct {
	ID        string
	UserID    string
	questions []model.Question
	records   []*model.AnswerRecord // parallel to questions, nil = unanswered
	position  int
	status    Status

	Scoreboard Scoreboard
	timer      *Timer
}

// NewSession starts a session over the given questions. The question
// sequence is fixed for the session's lifetime; an empty sequence is
// ErrInvalidSession.
func NewSession(id, userID string, questions []model.Question, now func() time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrInvalidSession
	}
	qs := make([]model.Question, len(questions))
	copy(qs, questions)
	return &Session{
		ID:        id,
		UserID:    userID,
		questions: qs,
		records:   make([]*model.AnswerRecord, len(qs)),
		status:    StatusInProgress,
		timer:     NewTimer(now),
	}, nil
}

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// Position returns the current 0-based position.
func (s *Session) Position() int { return s.position }

// Current returns the question at the current position. Never fails on a
// started session: the position is always in range.
func (s *Session) Current() model.Question {
	return s.questions[s.position]
}

// RecordAt returns the stored record for a position, or nil. Used to replay
// answered questions on revisit without re-evaluation.
func (s *Session) RecordAt(pos int) *model.AnswerRecord {
	if pos < 0 || pos >= len(s.records) {
		return nil
	}
	return s.records[pos]
}

// Answered reports whether the position already holds a record.
func (s *Session) Answered(pos int) bool {
	return s.RecordAt(pos) != nil
}

// Advance moves forward one question, clamped at the last position. Moving
// to a new position restarts the question timer; a clamped no-op does not.
func (s *Session) Advance() error { return s.move(1) }

// Retreat moves back one question, clamped at position zero.
func (s *Session) Retreat() error { return s.move(-1) }

func (s *Session) move(delta int) error {
	if s.status == StatusCompleted {
		return ErrSessionClosed
	}
	next := s.position + delta
	if next < 0 || next >= len(s.questions) {
		return nil // clamped edge, by contract not an error
	}
	s.position = next
	s.timer.MarkQuestionStart()
	return nil
}

// RecordAnswer stores the record at the position captured when the answer
// was submitted and applies the verdict to the scoreboard. The position is
// explicit so a validation call that resolves after the user navigated away
// still lands on the question it belongs to.
func (s *Session) RecordAnswer(pos int, rec model.AnswerRecord) error {
	if s.status == StatusCompleted {
		return ErrSessionClosed
	}
	if pos < 0 || pos >= len(s.records) {
		return ErrPositionOutOfRange
	}
	if s.records[pos] != nil {
		return ErrAlreadyAnswered
	}
	s.records[pos] = &rec
	s.Scoreboard.Apply(rec.IsCorrect)
	return nil
}

// ElapsedQuestionSeconds returns whole seconds since the current question
// was entered.
func (s *Session) ElapsedQuestionSeconds() int {
	return s.timer.ElapsedQuestionSeconds()
}

// ElapsedSessionSeconds returns whole seconds since the session started.
func (s *Session) ElapsedSessionSeconds() int {
	return s.timer.ElapsedSessionSeconds()
}

// Finalize closes the session and returns the answered records in question
// order together with the total elapsed seconds. After Finalize every
// sequencer call fails with ErrSessionClosed; there is no way back.
func (s *Session) Finalize() ([]model.AnswerRecord, int, error) {
	if s.status == StatusCompleted {
		return nil, 0, ErrSessionClosed
	}
	s.status = StatusCompleted
	answered := make([]model.AnswerRecord, 0, len(s.records))
	for _, r := range s.records {
		if r != nil {
			answered = append(answered, *r)
		}
	}
	return answered, s.timer.ElapsedSessionSeconds(), nil
}
