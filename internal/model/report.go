package model

import "time"

// Report is the graded session report returned by the analytics service
// and rendered by the results view.
type Report struct {
	SessionID string    `json:"session_id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"userId"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	TotalQuestions   int     `json:"total_questions" bson:"totalQuestions"`
	CorrectAnswers   int     `json:"correct_answers" bson:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrect_answers" bson:"incorrectAnswers"`
	Percentage       float64 `json:"percentage" bson:"percentage"`

	TimeTakenSec   int     `json:"time_taken" bson:"timeTakenSec"`
	AverageTimeSec float64 `json:"average_time" bson:"averageTimeSec"`

	TopicScores map[string]float64     `json:"topic_scores" bson:"topicScores"`
	BloomScores map[BloomLevel]float64 `json:"bloom_scores" bson:"bloomScores"`
	TypeScores  map[QuestionType]float64 `json:"type_scores" bson:"typeScores"`

	Patterns ResponsePatterns `json:"patterns" bson:"patterns"`
	Insights []string         `json:"insights" bson:"insights"`

	LongestCorrectStreak   int    `json:"longest_correct_streak" bson:"longestCorrectStreak"`
	LongestIncorrectStreak int    `json:"longest_incorrect_streak" bson:"longestIncorrectStreak"`
	PerformanceTrend       string `json:"performance_trend" bson:"performanceTrend"` // improving, declining, stable, insufficient_data

	Answers []AnswerRecord `json:"answers" bson:"answers"`

	Degraded bool `json:"degraded,omitempty" bson:"degraded,omitempty"` // Grading service unreachable, local data only
}

// ResponsePatterns flags behavioural patterns detected across a session.
type ResponsePatterns struct {
	Rushing    bool `json:"rushing" bson:"rushing"`
	Fatigue    bool `json:"fatigue" bson:"fatigue"`
	Guessing   bool `json:"guessing" bson:"guessing"`
	Consistent bool `json:"consistent" bson:"consistent"`
	Improving  bool `json:"improving" bson:"improving"`
	Declining  bool `json:"declining" bson:"declining"`
}

// UserAnalytics aggregates a user's report history.
type UserAnalytics struct {
	UserID            string             `json:"user_id"`
	TotalSessions     int                `json:"total_sessions"`
	TotalQuestions    int                `json:"total_questions_attempted"`
	TotalCorrect      int                `json:"total_correct"`
	OverallAccuracy   float64            `json:"overall_accuracy"`
	TopicMastery      map[string]float64 `json:"topic_mastery"`
	TotalStudyTimeSec int                `json:"total_study_time"`
	Improvement       float64            `json:"improvement"`
	LastActivity      *time.Time         `json:"last_activity,omitempty"`
	Strengths         []string           `json:"strengths"`
	Weaknesses        []string           `json:"weaknesses"`
}
