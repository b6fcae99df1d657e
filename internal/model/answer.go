package model

// AnswerRecord is the immutable record of one answered question. It is
// created exactly once, the first time a question is answered; revisiting
// the question replays the stored record.
type AnswerRecord struct {
	QuestionID    string       `json:"question_id" bson:"questionId"`
	QuestionText  string       `json:"question" bson:"question"`
	UserAnswer    string       `json:"user_answer" bson:"userAnswer"`
	CorrectAnswer string       `json:"correct_answer" bson:"correctAnswer"`
	IsCorrect     bool         `json:"is_correct" bson:"isCorrect"`
	TimeTakenSec  int          `json:"time_taken" bson:"timeTakenSec"`
	Topic         string       `json:"topic" bson:"topic"`
	BloomLevel    BloomLevel   `json:"bloom_level" bson:"bloomLevel"`
	QuestionType  QuestionType `json:"question_type" bson:"questionType"`
	Feedback      string       `json:"feedback,omitempty" bson:"feedback,omitempty"` // Judge feedback, kept off the Question
}

// Verdict is the evaluator's decision for a single submitted answer.
type Verdict struct {
	IsCorrect bool    `json:"is_correct"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback,omitempty"`
	Degraded  bool    `json:"-"` // Local fallback was used
}

// ValidateAnswerRequest is the body of POST /api/validate-answer.
type ValidateAnswerRequest struct {
	Question      string       `json:"question"`
	CorrectAnswer string       `json:"correct_answer"`
	UserAnswer    string       `json:"user_answer"`
	QuestionType  QuestionType `json:"question_type"`
}

// SubmitAnswerRequest is the body of POST /api/sessions/{id}/answers.
type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

// SubmitAnswerResponse reports the verdict plus the updated running state.
type SubmitAnswerResponse struct {
	Record        AnswerRecord `json:"record"`
	Score         int          `json:"score"`
	CurrentStreak int          `json:"current_streak"`
	LongestStreak int          `json:"longest_streak"`
}
