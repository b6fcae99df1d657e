package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gHajnal/OppaTalent/internal/model"
	"github.com/gHajnal/OppaTalent/internal/quiz"
	"github.com/gHajnal/OppaTalent/internal/service"
)

// QuizHandler handles quiz generation and standalone answer validation
type QuizHandler struct {
	generator *service.GeneratorService
	adaptive  *service.AdaptiveService
	evaluator service.Evaluator
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(generator *service.GeneratorService, adaptive *service.AdaptiveService, evaluator service.Evaluator) *QuizHandler {
	return &QuizHandler{generator: generator, adaptive: adaptive, evaluator: evaluator}
}

type generateQuizRequest struct {
	Content string `json:"content"`
	model.GenerateConfig
	// BloomWeights is the raw configure-view mix; it wins over an explicit
	// distribution when present.
	BloomWeights []model.BloomWeight `json:"bloom_weights,omitempty"`
}

// Generate handles POST /api/generate-quiz
func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "no content provided")
		return
	}

	cfg := req.GenerateConfig
	if len(req.BloomWeights) > 0 {
		cfg.BloomDistribution = quiz.NormalizeBloomWeights(req.BloomWeights)
	}
	if cfg.LearningMode == "adaptive" {
		cfg = h.adaptive.AdjustConfig(r.Context(), userID(r), cfg)
	}

	quiz, err := h.generator.Generate(r.Context(), req.Content, cfg)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// Usage handles GET /api/ai-usage: cumulative token spend for this process.
func (h *QuizHandler) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.generator.Usage())
}

// Validate handles POST /api/validate-answer. It is stateless: the UI uses
// it for practice checks outside a session.
func (h *QuizHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" || req.CorrectAnswer == "" {
		writeError(w, http.StatusBadRequest, "question and correct_answer are required")
		return
	}
	if req.QuestionType == "" {
		req.QuestionType = model.QuestionTypeShortAnswer
	}

	question := model.Question{
		Type:          req.QuestionType,
		Text:          req.Question,
		CorrectAnswer: req.CorrectAnswer,
	}
	verdict := h.evaluator.Evaluate(r.Context(), &question, req.UserAnswer)
	writeJSON(w, http.StatusOK, verdict)
}
