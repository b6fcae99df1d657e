package model

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice" // Single best choice, 4 options
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer" // Free text, AI-judged
)

// IsObjective reports whether the type is gradable by local comparison
// rather than the remote judge.
func (t QuestionType) IsObjective() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

// BloomLevel is one of the six cognitive-demand categories used to tag questions
type BloomLevel string

const (
	BloomRemember   BloomLevel = "remember"
	BloomUnderstand BloomLevel = "understand"
	BloomApply      BloomLevel = "apply"
	BloomAnalyze    BloomLevel = "analyze"
	BloomEvaluate   BloomLevel = "evaluate"
	BloomCreate     BloomLevel = "create"
)

// BloomLevels lists all levels in taxonomy order.
var BloomLevels = []BloomLevel{
	BloomRemember, BloomUnderstand, BloomApply,
	BloomAnalyze, BloomEvaluate, BloomCreate,
}

// Question is a generated quiz question. Immutable once received from the generator.
type Question struct {
	ID            string       `json:"id" bson:"id"`
	Type          QuestionType `json:"type" bson:"type"`
	BloomLevel    BloomLevel   `json:"bloom_level" bson:"bloomLevel"`
	Text          string       `json:"question" bson:"question"`
	Options       []string     `json:"options,omitempty" bson:"options,omitempty"` // Choice types only
	CorrectAnswer string       `json:"correct_answer" bson:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty" bson:"explanation,omitempty"`
	Hint          string       `json:"hint,omitempty" bson:"hint,omitempty"`
	Difficulty    int          `json:"difficulty,omitempty" bson:"difficulty,omitempty"` // 1-5 scale
	Topic         string       `json:"topic" bson:"topic"`
}

// BloomWeight is one row of the quiz configuration's cognitive-level mix.
type BloomWeight struct {
	Level      BloomLevel `json:"level"`
	Enabled    bool       `json:"enabled"`
	Percentage int        `json:"percentage"`
}

// GenerateConfig carries the parameters for a quiz generation request.
type GenerateConfig struct {
	NumQuestions        int                    `json:"num_questions"`
	QuestionTypes       []QuestionType         `json:"question_types,omitempty"`
	BloomDistribution   map[BloomLevel]float64 `json:"difficulty_distribution,omitempty"` // Normalized; empty = generator default
	LearningMode        string                 `json:"learning_mode,omitempty"`
	IncludeHints        bool                   `json:"include_hints"`
	IncludeExplanations bool                   `json:"include_explanations"`
}

// Quiz is the generator's response payload.
type Quiz struct {
	Questions []Question   `json:"questions"`
	Metadata  QuizMetadata `json:"metadata"`
}

// AIUsage aggregates model spend across the process lifetime.
type AIUsage struct {
	TotalTokens int     `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
	Requests    int     `json:"requests"`
}

// QuizMetadata describes how a quiz was produced.
type QuizMetadata struct {
	GeneratedAt   string             `json:"generated_at"`
	Model         string             `json:"ai_model"`
	TokenUsage    int                `json:"token_usage"`
	EstimatedCost float64            `json:"estimated_cost"`
	BloomCounts   map[BloomLevel]int `json:"bloom_distribution,omitempty"`
	Config        GenerateConfig     `json:"config"`
	Cached        bool               `json:"cached,omitempty"`
}
