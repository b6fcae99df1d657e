package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/config"
	"github.com/gHajnal/OppaTalent/internal/model"
)

// correctnessThreshold is the judge quality score at or above which a
// free-text answer counts as correct even without an explicit verdict.
const correctnessThreshold = 0.7

// chatCompleter is the slice of the OpenAI client the evaluator needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// EvaluatorService decides correctness of submitted answers: locally for
// objective question types, via the remote judge for free text. It never
// returns an error; a transport failure degrades to the local fallback.
type EvaluatorService struct {
	cfg    *config.AIConfig
	client chatCompleter
	log    *logrus.Logger
}

// NewEvaluatorService creates an evaluator. Without an API key the remote
// judge is disabled and free-text answers take the fallback path.
func NewEvaluatorService(cfg *config.AIConfig, log *logrus.Logger) *EvaluatorService {
	s := &EvaluatorService{cfg: cfg, log: log}
	if cfg.IsEnabled() {
		s.client = openai.NewClient(cfg.APIKey)
	}
	return s
}

// judgeResponse is the JSON shape the validation prompt asks for.
type judgeResponse struct {
	Score           float64  `json:"score"`
	IsCorrect       bool     `json:"is_correct"`
	Feedback        string   `json:"feedback"`
	MissingElements []string `json:"missing_elements"`
	Misconceptions  []string `json:"misconceptions"`
}

// Evaluate produces a verdict for one submitted answer. Choice and boolean
// questions are compared locally; short answers go to the remote judge with
// a deterministic local fallback on any failure.
func (s *EvaluatorService) Evaluate(ctx context.Context, question *model.Question, submitted string) model.Verdict {
	if question.Type.IsObjective() {
		return s.evaluateObjective(question, submitted)
	}
	return s.evaluateFreeText(ctx, question, submitted)
}

func (s *EvaluatorService) evaluateObjective(question *model.Question, submitted string) model.Verdict {
	if matchObjective(submitted, question.CorrectAnswer) {
		return model.Verdict{IsCorrect: true, Score: 1.0, Feedback: "Correct!"}
	}
	return model.Verdict{
		IsCorrect: false,
		Score:     0.0,
		Feedback:  "The correct answer is: " + question.CorrectAnswer,
	}
}

// matchObjective applies the label-tolerance rule: the UI encodes option
// labels into the submitted value ("A) Paris" for canonical "A"), so a
// prefix match in either direction counts alongside an exact match.
func matchObjective(submitted, canonical string) bool {
	sub := normalizeAnswer(submitted)
	can := normalizeAnswer(canonical)
	if sub == "" || can == "" {
		return false
	}
	return sub == can || strings.HasPrefix(sub, can) || strings.HasPrefix(can, sub)
}

func (s *EvaluatorService) evaluateFreeText(ctx context.Context, question *model.Question, submitted string) model.Verdict {
	if s.client == nil {
		s.log.WithField("question_id", question.ID).
			Warn("remote judge disabled, using local validation")
		return s.fallbackVerdict(question, submitted)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Models.Validation,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert educator providing constructive feedback.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildValidationPrompt(question, submitted),
			},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		s.log.WithError(err).WithField("question_id", question.ID).
			Warn("remote judge unreachable, using local validation")
		return s.fallbackVerdict(question, submitted)
	}
	if len(resp.Choices) == 0 {
		s.log.WithField("question_id", question.ID).
			Warn("remote judge returned no choices, using local validation")
		return s.fallbackVerdict(question, submitted)
	}

	var judged judgeResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Choices[0].Message.Content)), &judged); err != nil {
		s.log.WithError(err).WithField("question_id", question.ID).
			Warn("remote judge response unparseable, using local validation")
		return s.fallbackVerdict(question, submitted)
	}

	verdict := model.Verdict{
		IsCorrect: judged.IsCorrect || judged.Score >= correctnessThreshold,
		Score:     judged.Score,
		Feedback:  judged.Feedback,
	}
	verdict.Feedback = appendEncouragement(verdict.Feedback, judged.Score)
	return verdict
}

// fallbackVerdict is the deterministic local check used whenever the remote
// judge cannot produce a result: case-insensitive substring containment in
// either direction. It always yields a best-effort verdict.
func (s *EvaluatorService) fallbackVerdict(question *model.Question, submitted string) model.Verdict {
	sub := normalizeAnswer(submitted)
	can := normalizeAnswer(question.CorrectAnswer)

	switch {
	case sub != "" && sub == can:
		return model.Verdict{IsCorrect: true, Score: 1.0, Feedback: "Correct!", Degraded: true}
	case sub != "" && (strings.Contains(can, sub) || strings.Contains(sub, can)):
		return model.Verdict{
			IsCorrect: false,
			Score:     0.5,
			Feedback:  "Partially correct. Review the complete answer.",
			Degraded:  true,
		}
	default:
		return model.Verdict{
			IsCorrect: false,
			Score:     0.0,
			Feedback:  "Incorrect. The correct answer is: " + question.CorrectAnswer,
			Degraded:  true,
		}
	}
}

func buildValidationPrompt(question *model.Question, submitted string) string {
	return fmt.Sprintf(`Evaluate this answer for correctness and completeness.

Question: %s
Expected Answer: %s
Student Answer: %s

Evaluation criteria:
1. Factual accuracy
2. Completeness of response
3. Understanding of concepts
4. Use of appropriate terminology

Return ONLY valid JSON:
{
  "score": 0.0-1.0,
  "is_correct": true/false,
  "feedback": "specific feedback",
  "missing_elements": ["element1"],
  "misconceptions": ["misconception1"]
}`, question.Text, question.CorrectAnswer, submitted)
}

func appendEncouragement(feedback string, score float64) string {
	var tier string
	switch {
	case score >= 0.8:
		tier = "Excellent work! You demonstrate strong understanding."
	case score >= 0.6:
		tier = "Good effort! Review the feedback to strengthen your understanding."
	default:
		tier = "Keep practicing! Use the feedback to improve."
	}
	if feedback == "" {
		return tier
	}
	return feedback + " " + tier
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// extractJSON pulls the outermost JSON object out of a model response that
// may be wrapped in code fences or prose.
func extractJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.Trim(clean, "`")

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		return clean[start : end+1]
	}
	return clean
}
