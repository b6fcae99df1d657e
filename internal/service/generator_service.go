package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/cache"
	"github.com/gHajnal/OppaTalent/internal/config"
	"github.com/gHajnal/OppaTalent/internal/model"
)

// GeneratorService produces quizzes from source material via OpenAI,
// memoizing results so identical requests are served from Redis.
// Unlike evaluation, generation errors propagate: the caller can retry.
type GeneratorService struct {
	cfg    *config.AIConfig
	client chatCompleter
	cache  cache.QuizCache
	log    *logrus.Logger

	usageMu sync.Mutex
	usage   model.AIUsage
}

// NewGeneratorService creates a generator. cache may be nil to disable memoization.
func NewGeneratorService(cfg *config.AIConfig, quizCache cache.QuizCache, log *logrus.Logger) *GeneratorService {
	s := &GeneratorService{cfg: cfg, cache: quizCache, log: log}
	if cfg.IsEnabled() {
		s.client = openai.NewClient(cfg.APIKey)
	}
	return s
}

// ErrGenerationUnavailable is returned when no API key is configured.
var ErrGenerationUnavailable = fmt.Errorf("quiz generation requires an OpenAI API key")

// Generate builds a quiz for the given content and configuration.
func (s *GeneratorService) Generate(ctx context.Context, content string, cfg model.GenerateConfig) (*model.Quiz, error) {
	if cfg.NumQuestions <= 0 {
		cfg.NumQuestions = 5
	}
	if len(cfg.QuestionTypes) == 0 {
		cfg.QuestionTypes = []model.QuestionType{model.QuestionTypeMultipleChoice}
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, content, cfg)
		if err != nil {
			s.log.WithError(err).Warn("quiz cache lookup failed")
		}
		if cached != nil {
			cached.Metadata.Cached = true
			s.log.WithField("questions", len(cached.Questions)).Debug("quiz served from cache")
			return cached, nil
		}
	}

	if s.client == nil {
		return nil, ErrGenerationUnavailable
	}

	counts := bloomCounts(cfg)
	prompt := buildGenerationPrompt(content, cfg, counts)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Models.Generation,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert educator creating assessment questions. Return only valid JSON.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("quiz generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("quiz generation: empty completion")
	}

	questions, err := parseQuestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("quiz generation: %w", err)
	}

	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.New().String()
		}
		if !cfg.IncludeHints {
			questions[i].Hint = ""
		}
		if !cfg.IncludeExplanations {
			questions[i].Explanation = ""
		}
	}

	tokens := resp.Usage.TotalTokens
	s.recordUsage(s.cfg.Models.Generation, tokens)
	quiz := &model.Quiz{
		Questions: questions,
		Metadata: model.QuizMetadata{
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			Model:         s.cfg.Models.Generation,
			TokenUsage:    tokens,
			EstimatedCost: float64(tokens) * config.CostPerToken(s.cfg.Models.Generation),
			BloomCounts:   counts,
			Config:        cfg,
		},
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, content, cfg, quiz); err != nil {
			s.log.WithError(err).Warn("quiz cache store failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"questions": len(questions),
		"tokens":    tokens,
	}).Info("quiz generated")
	return quiz, nil
}

// bloomCounts converts the normalized distribution into whole question
// counts. Rounding remainders go to the understand level.
func bloomCounts(cfg model.GenerateConfig) map[model.BloomLevel]int {
	dist := cfg.BloomDistribution
	if len(dist) == 0 {
		dist = map[model.BloomLevel]float64{
			model.BloomRemember:   0.3,
			model.BloomUnderstand: 0.4,
			model.BloomApply:      0.3,
		}
	}

	counts := make(map[model.BloomLevel]int)
	assigned := 0
	for _, level := range model.BloomLevels {
		weight, ok := dist[level]
		if !ok || weight <= 0 {
			continue
		}
		n := int(weight * float64(cfg.NumQuestions))
		if n > 0 {
			counts[level] = n
			assigned += n
		}
	}
	if remainder := cfg.NumQuestions - assigned; remainder > 0 {
		counts[model.BloomUnderstand] += remainder
	}
	return counts
}

func buildGenerationPrompt(content string, cfg model.GenerateConfig, counts map[model.BloomLevel]int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create %d quiz questions from the following content.\n\n", cfg.NumQuestions)

	levels := make([]string, 0, len(counts))
	for _, level := range model.BloomLevels {
		if n := counts[level]; n > 0 {
			levels = append(levels, fmt.Sprintf("%d %s-level", n, level))
		}
	}
	fmt.Fprintf(&b, "Cognitive level mix (Bloom's taxonomy): %s.\n", strings.Join(levels, ", "))

	types := make([]string, len(cfg.QuestionTypes))
	for i, t := range cfg.QuestionTypes {
		types[i] = string(t)
	}
	sort.Strings(types)
	fmt.Fprintf(&b, "Allowed question types: %s.\n", strings.Join(types, ", "))

	if cfg.LearningMode != "" {
		fmt.Fprintf(&b, "Learning mode: %s.\n", cfg.LearningMode)
	}
	if cfg.IncludeHints {
		b.WriteString("Include a hint for each question.\n")
	}
	if cfg.IncludeExplanations {
		b.WriteString("Include an explanation of the correct answer for each question.\n")
	}

	b.WriteString(`
Requirements:
- multiple_choice questions have exactly 4 options and correct_answer matches one option
- true_false questions have correct_answer "True" or "False"
- short_answer questions have a model correct_answer of 1-3 sentences
- tag every question with its topic and bloom_level
- difficulty is an integer from 1 (recall) to 5 (synthesis)

Return ONLY valid JSON:
{
  "questions": [
    {
      "type": "multiple_choice",
      "bloom_level": "understand",
      "question": "...",
      "options": ["...", "...", "...", "..."],
      "correct_answer": "...",
      "explanation": "...",
      "hint": "...",
      "difficulty": 2,
      "topic": "..."
    }
  ]
}

Content:
`)
	b.WriteString(content)
	return b.String()
}

func parseQuestions(raw string) ([]model.Question, error) {
	var payload struct {
		Questions []model.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("parse questions: no questions in response")
	}
	return payload.Questions, nil
}

// AnalyzeContent asks the model to characterise uploaded material so the
// configure view can suggest a quiz size. Falls back to a local word-count
// heuristic when the model is unavailable.
func (s *GeneratorService) AnalyzeContent(ctx context.Context, content string) *model.ContentAnalysis {
	if s.client == nil {
		return localAnalysis(content)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Models.Analysis,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(`Analyze this educational content. Return ONLY valid JSON:
{
  "topics": ["topic1"],
  "key_concepts": ["concept1"],
  "difficulty": "beginner|intermediate|advanced",
  "possible_questions": 10,
  "content_type": "technical|conceptual|factual|mixed"
}

Content:
%s`, truncate(content, 4000)),
			},
		},
		Temperature: 0.2,
		MaxTokens:   400,
	})
	if err != nil || len(resp.Choices) == 0 {
		s.log.WithError(err).Warn("content analysis unavailable, using heuristic")
		return localAnalysis(content)
	}
	s.recordUsage(s.cfg.Models.Analysis, resp.Usage.TotalTokens)

	var analysis model.ContentAnalysis
	if err := json.Unmarshal([]byte(extractJSON(resp.Choices[0].Message.Content)), &analysis); err != nil {
		s.log.WithError(err).Warn("content analysis unparseable, using heuristic")
		return localAnalysis(content)
	}
	return &analysis
}

func localAnalysis(content string) *model.ContentAnalysis {
	words := len(strings.Fields(content))
	possible := words / 100
	if possible < 3 {
		possible = 3
	}
	if possible > 20 {
		possible = 20
	}
	return &model.ContentAnalysis{
		Topics:            []string{"General"},
		Difficulty:        "intermediate",
		PossibleQuestions: possible,
		ContentType:       "mixed",
	}
}

func (s *GeneratorService) recordUsage(modelName string, tokens int) {
	s.usageMu.Lock()
	s.usage.TotalTokens += tokens
	s.usage.TotalCost += float64(tokens) * config.CostPerToken(modelName)
	s.usage.Requests++
	s.usageMu.Unlock()
}

// Usage returns the process-lifetime token spend. Cache hits do not count.
func (s *GeneratorService) Usage() model.AIUsage {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	return s.usage
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
