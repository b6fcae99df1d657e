package quiz

import (
	"math"
	"time"
)

// Timer records the session start and the start of the current question.
// Elapsed values are whole seconds, rounded, never negative: answering
// within the same clock tick reads as 0.
type Timer struct {
	sessionStart  time.Time
	questionStart time.Time
	now           func() time.Time
}

// NewTimer starts a timer at now. A nil clock falls back to time.Now.
func NewTimer(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	t := &Timer{now: now}
	t.sessionStart = now()
	t.questionStart = t.sessionStart
	return t
}

// MarkQuestionStart resets the per-question clock to now.
func (t *Timer) MarkQuestionStart() {
	t.questionStart = t.now()
}

// ElapsedQuestionSeconds returns rounded seconds since the last mark.
func (t *Timer) ElapsedQuestionSeconds() int {
	return roundSeconds(t.now().Sub(t.questionStart))
}

// ElapsedSessionSeconds returns rounded seconds since the session started.
func (t *Timer) ElapsedSessionSeconds() int {
	return roundSeconds(t.now().Sub(t.sessionStart))
}

func roundSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(math.Round(d.Seconds()))
}
