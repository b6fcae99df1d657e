package service

import (
	"context"
	"errors"
	"io"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/config"
	"github.com/gHajnal/OppaTalent/internal/model"
)

type fakeCompleter struct {
	content string
	tokens  int
	err     error
	calls   int
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
		Usage: openai.Usage{TotalTokens: f.tokens},
	}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEvaluator(client chatCompleter) *EvaluatorService {
	return &EvaluatorService{
		cfg:    &config.AIConfig{Models: config.AIModels{Validation: "gpt-4"}},
		client: client,
		log:    quietLogger(),
	}
}

func TestEvaluateObjective(t *testing.T) {
	tests := []struct {
		name      string
		qType     model.QuestionType
		canonical string
		submitted string
		correct   bool
	}{
		{"exact match", model.QuestionTypeMultipleChoice, "B", "B", true},
		{"case and whitespace", model.QuestionTypeTrueFalse, "True", "  true ", true},
		{"label prefix on submission", model.QuestionTypeMultipleChoice, "B", "B) Paris", true},
		{"submission prefix of canonical", model.QuestionTypeMultipleChoice, "B) Paris", "B", true},
		{"wrong option", model.QuestionTypeMultipleChoice, "B", "C", false},
		{"empty submission", model.QuestionTypeMultipleChoice, "B", "", false},
		{"whitespace only", model.QuestionTypeTrueFalse, "False", "   ", false},
	}

	svc := newTestEvaluator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &model.Question{ID: "q1", Type: tt.qType, CorrectAnswer: tt.canonical}
			v := svc.Evaluate(context.Background(), q, tt.submitted)
			if v.IsCorrect != tt.correct {
				t.Errorf("IsCorrect = %v, want %v", v.IsCorrect, tt.correct)
			}
			if v.Degraded {
				t.Error("objective verdict should never be degraded")
			}
			if v.Feedback == "" {
				t.Error("verdict must carry feedback")
			}
		})
	}
}

func TestEvaluateObjectiveNeverCallsJudge(t *testing.T) {
	fake := &fakeCompleter{content: `{"score":1.0,"is_correct":true}`}
	svc := newTestEvaluator(fake)

	q := &model.Question{ID: "q1", Type: model.QuestionTypeMultipleChoice, CorrectAnswer: "A"}
	svc.Evaluate(context.Background(), q, "A")

	if fake.calls != 0 {
		t.Errorf("judge called %d times for an objective question", fake.calls)
	}
}

func TestEvaluateFreeTextRemoteVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		correct bool
		score   float64
	}{
		{
			"explicit correct",
			`{"score":0.9,"is_correct":true,"feedback":"Well reasoned."}`,
			true, 0.9,
		},
		{
			"high score without flag",
			`{"score":0.75,"is_correct":false,"feedback":"Mostly there."}`,
			true, 0.75,
		},
		{
			"low score",
			`{"score":0.3,"is_correct":false,"feedback":"Missing the key idea."}`,
			false, 0.3,
		},
		{
			"fenced json",
			"```json\n{\"score\":0.85,\"is_correct\":true,\"feedback\":\"Good.\"}\n```",
			true, 0.85,
		},
	}

	q := &model.Question{
		ID:            "q1",
		Type:          model.QuestionTypeShortAnswer,
		Text:          "Explain photosynthesis.",
		CorrectAnswer: "Plants convert light into chemical energy.",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestEvaluator(&fakeCompleter{content: tt.content})
			v := svc.Evaluate(context.Background(), q, "Plants use sunlight to make sugar.")
			if v.IsCorrect != tt.correct {
				t.Errorf("IsCorrect = %v, want %v", v.IsCorrect, tt.correct)
			}
			if v.Score != tt.score {
				t.Errorf("Score = %v, want %v", v.Score, tt.score)
			}
			if v.Degraded {
				t.Error("remote verdict must not be marked degraded")
			}
		})
	}
}

func TestEvaluateFreeTextFallback(t *testing.T) {
	q := &model.Question{
		ID:            "q1",
		Type:          model.QuestionTypeShortAnswer,
		Text:          "What is the capital of France?",
		CorrectAnswer: "Paris is the capital of France",
	}

	tests := []struct {
		name      string
		client    chatCompleter
		submitted string
		correct   bool
		score     float64
	}{
		{
			"transport error, exact containment",
			&fakeCompleter{err: errors.New("connection refused")},
			"paris is the capital of france",
			true, 1.0,
		},
		{
			"transport error, partial containment",
			&fakeCompleter{err: errors.New("connection refused")},
			"Paris",
			false, 0.5,
		},
		{
			"malformed judge response",
			&fakeCompleter{content: "I think the answer is fine."},
			"Lyon",
			false, 0.0,
		},
		{
			"judge disabled",
			nil,
			"paris",
			false, 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestEvaluator(tt.client)
			v := svc.Evaluate(context.Background(), q, tt.submitted)
			if v.IsCorrect != tt.correct {
				t.Errorf("IsCorrect = %v, want %v", v.IsCorrect, tt.correct)
			}
			if v.Score != tt.score {
				t.Errorf("Score = %v, want %v", v.Score, tt.score)
			}
			if !v.Degraded {
				t.Error("fallback verdict must be marked degraded")
			}
			if v.Feedback == "" {
				t.Error("fallback verdict must still carry feedback")
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", `Here you go: {"a":1} hope that helps`, `{"a":1}`},
		{"no object", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.raw); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
