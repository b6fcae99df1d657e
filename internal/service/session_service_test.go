package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gHajnal/OppaTalent/internal/model"
	"github.com/gHajnal/OppaTalent/internal/quiz"
)

type fakeEvaluator struct {
	correct  bool
	feedback string
	onCall   func() // runs mid-evaluation, simulates user activity during a slow judge
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, q *model.Question, submitted string) model.Verdict {
	if f.onCall != nil {
		f.onCall()
	}
	return model.Verdict{IsCorrect: f.correct, Score: 1.0, Feedback: f.feedback}
}

type fakeGrader struct {
	err    error
	graded *model.Report
	calls  int
}

func (f *fakeGrader) GradeSession(ctx context.Context, sessionID, userID string, answers []model.AnswerRecord, totalSec int) (*model.Report, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	f.graded = &model.Report{
		SessionID:      sessionID,
		UserID:         userID,
		TotalQuestions: len(answers),
		CorrectAnswers: correct,
		Percentage:     float64(correct) / float64(len(answers)) * 100,
		TimeTakenSec:   totalSec,
		Insights:       []string{"graded"},
	}
	return f.graded, nil
}

type fakeSender struct {
	err        error
	percentage float64
	calls      int
}

func (f *fakeSender) SendGrade(ctx context.Context, userID string, percentage float64) error {
	f.calls++
	f.percentage = percentage
	return f.err
}

func threeQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Type: model.QuestionTypeMultipleChoice, Text: "one", CorrectAnswer: "A", Topic: "t"},
		{ID: "q2", Type: model.QuestionTypeTrueFalse, Text: "two", CorrectAnswer: "True", Topic: "t"},
		{ID: "q3", Type: model.QuestionTypeShortAnswer, Text: "three", CorrectAnswer: "x", Topic: "t"},
	}
}

func newTestSessionService(ev Evaluator, gr Grader, lti GradeSender) *SessionService {
	svc := NewSessionService(ev, gr, lti, quietLogger())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestSessionLifecycle(t *testing.T) {
	grader := &fakeGrader{}
	svc := newTestSessionService(&fakeEvaluator{correct: true}, grader, nil)

	v, err := svc.Start("user-1", threeQuestions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v.Position != 0 || v.Total != 3 {
		t.Fatalf("initial view = pos %d of %d, want 0 of 3", v.Position, v.Total)
	}

	resp, err := svc.SubmitAnswer(context.Background(), v.SessionID, "A")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !resp.Record.IsCorrect || resp.Score != 1 {
		t.Errorf("resp = correct %v score %d, want correct with score 1", resp.Record.IsCorrect, resp.Score)
	}

	if _, err := svc.Advance(v.SessionID); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	cur, err := svc.Current(v.SessionID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Position != 1 || cur.Record != nil {
		t.Errorf("after advance: pos %d record %v, want pos 1 with no record", cur.Position, cur.Record)
	}

	report, err := svc.Finalize(context.Background(), v.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if report.Degraded {
		t.Error("report degraded despite working grader")
	}
	if grader.calls != 1 {
		t.Errorf("grader called %d times, want 1", grader.calls)
	}
	if report.TotalQuestions != 1 || report.CorrectAnswers != 1 {
		t.Errorf("report counts = %d/%d, want 1/1", report.CorrectAnswers, report.TotalQuestions)
	}

	if _, err := svc.Finalize(context.Background(), v.SessionID); !errors.Is(err, quiz.ErrSessionClosed) {
		t.Errorf("second Finalize err = %v, want ErrSessionClosed", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), v.SessionID, "x"); !errors.Is(err, quiz.ErrSessionClosed) {
		t.Errorf("submit after finalize err = %v, want ErrSessionClosed", err)
	}
}

func TestSubmitAnswerOncePerQuestion(t *testing.T) {
	svc := newTestSessionService(&fakeEvaluator{correct: true}, &fakeGrader{}, nil)
	v, _ := svc.Start("user-1", threeQuestions())

	if _, err := svc.SubmitAnswer(context.Background(), v.SessionID, "A"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), v.SessionID, "B"); !errors.Is(err, quiz.ErrAlreadyAnswered) {
		t.Errorf("second submit err = %v, want ErrAlreadyAnswered", err)
	}

	cur, _ := svc.Current(v.SessionID)
	if cur.Record == nil || cur.Record.UserAnswer != "A" {
		t.Error("stored record must be the first submission")
	}
	if cur.Score != 1 {
		t.Errorf("score = %d after rejected resubmit, want 1", cur.Score)
	}
}

func TestSubmitAnswerLandsOnCapturedPosition(t *testing.T) {
	var svc *SessionService
	var sessionID string

	ev := &fakeEvaluator{correct: true}
	ev.onCall = func() {
		// user moves on while the judge is thinking
		if _, err := svc.Advance(sessionID); err != nil {
			t.Fatalf("Advance during evaluation: %v", err)
		}
	}
	svc = newTestSessionService(ev, &fakeGrader{}, nil)

	v, _ := svc.Start("user-1", threeQuestions())
	sessionID = v.SessionID

	resp, err := svc.SubmitAnswer(context.Background(), sessionID, "A")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if resp.Record.QuestionID != "q1" {
		t.Errorf("record question = %s, want q1", resp.Record.QuestionID)
	}

	// The record belongs to question one even though the cursor is on two.
	cur, _ := svc.Current(sessionID)
	if cur.Position != 1 {
		t.Fatalf("position = %d, want 1", cur.Position)
	}
	if cur.Record != nil {
		t.Error("question two must be unanswered")
	}
	back, _ := svc.Retreat(sessionID)
	if back.Record == nil || back.Record.QuestionID != "q1" {
		t.Error("question one must hold the evaluated record")
	}
}

func TestFinalizeDegradedOnGraderFailure(t *testing.T) {
	svc := newTestSessionService(&fakeEvaluator{correct: true}, &fakeGrader{err: errors.New("analytics down")}, nil)

	v, _ := svc.Start("user-1", threeQuestions())
	svc.SubmitAnswer(context.Background(), v.SessionID, "A")
	svc.Advance(v.SessionID)
	svc.SubmitAnswer(context.Background(), v.SessionID, "False")

	report, err := svc.Finalize(context.Background(), v.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !report.Degraded {
		t.Fatal("report must be flagged degraded")
	}
	// two of three questions answered correctly; the unanswered one counts
	// against the score
	want := float64(2) / 3 * 100
	if math.Abs(report.Percentage-want) > 1e-9 {
		t.Errorf("percentage = %v, want %v", report.Percentage, want)
	}
	if report.TotalQuestions != 3 || report.CorrectAnswers != 2 {
		t.Errorf("counts = %d/%d, want 2/3", report.CorrectAnswers, report.TotalQuestions)
	}
	if len(report.Insights) != 0 {
		t.Errorf("degraded report carries insights: %v", report.Insights)
	}
}

func TestFinalizeDegradedPartiallyAnswered(t *testing.T) {
	svc := newTestSessionService(&fakeEvaluator{correct: true}, &fakeGrader{err: errors.New("analytics down")}, nil)

	v, _ := svc.Start("user-1", threeQuestions())
	svc.SubmitAnswer(context.Background(), v.SessionID, "A")

	report, err := svc.Finalize(context.Background(), v.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	want := float64(1) / 3 * 100
	if math.Abs(report.Percentage-want) > 1e-9 {
		t.Errorf("percentage = %v, want %v", report.Percentage, want)
	}
	if report.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", report.TotalQuestions)
	}
	if report.CorrectAnswers != 1 || report.IncorrectAnswers != 0 {
		t.Errorf("answered counts = %d correct %d incorrect, want 1/0", report.CorrectAnswers, report.IncorrectAnswers)
	}
}

func TestFinalizeSendsGradeBestEffort(t *testing.T) {
	sender := &fakeSender{err: errors.New("lms timeout")}
	svc := newTestSessionService(&fakeEvaluator{correct: true}, &fakeGrader{}, sender)

	v, _ := svc.Start("user-1", threeQuestions())
	svc.SubmitAnswer(context.Background(), v.SessionID, "A")

	report, err := svc.Finalize(context.Background(), v.SessionID)
	if err != nil {
		t.Fatalf("Finalize must succeed despite passback failure: %v", err)
	}
	if sender.calls != 1 {
		t.Errorf("sender called %d times, want 1", sender.calls)
	}
	if sender.percentage != report.Percentage {
		t.Errorf("sent %v, want report percentage %v", sender.percentage, report.Percentage)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newTestSessionService(&fakeEvaluator{}, &fakeGrader{}, nil)

	if _, err := svc.Current("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Current err = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), "nope", "A"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SubmitAnswer err = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.Finalize(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Finalize err = %v, want ErrSessionNotFound", err)
	}
}
