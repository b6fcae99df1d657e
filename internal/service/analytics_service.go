package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/model"
	"github.com/gHajnal/OppaTalent/internal/repository"
)

// AnalyticsService grades finished sessions into reports and aggregates a
// user's report history. Implements Grader.
type AnalyticsService struct {
	reports repository.ReportRepo
	log     *logrus.Logger
	now     func() time.Time
}

// NewAnalyticsService creates the analytics service. reports may be nil when
// running without MongoDB; grading still works, history does not.
func NewAnalyticsService(reports repository.ReportRepo, log *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{reports: reports, log: log, now: time.Now}
}

// GradeSession builds the full report for a finished session and persists it.
func (s *AnalyticsService) GradeSession(ctx context.Context, sessionID, userID string, answers []model.AnswerRecord, totalSec int) (*model.Report, error) {
	if len(answers) == 0 {
		return nil, ErrNoAnswersSubmitted
	}

	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}

	report := &model.Report{
		SessionID:        sessionID,
		UserID:           userID,
		Timestamp:        s.now().UTC(),
		TotalQuestions:   len(answers),
		CorrectAnswers:   correct,
		IncorrectAnswers: len(answers) - correct,
		Percentage:       float64(correct) / float64(len(answers)) * 100,
		TimeTakenSec:     totalSec,
		AverageTimeSec:   float64(totalSec) / float64(len(answers)),

		TopicScores: topicScores(answers),
		BloomScores: bloomScores(answers),
		TypeScores:  typeScores(answers),

		LongestCorrectStreak:   longestStreak(answers, true),
		LongestIncorrectStreak: longestStreak(answers, false),
		PerformanceTrend:       performanceTrend(answers),

		Answers: answers,
	}
	report.Patterns = identifyPatterns(answers)
	report.Insights = generateInsights(report)

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).
				Warn("report not persisted")
		}
	}
	return report, nil
}

func topicScores(answers []model.AnswerRecord) map[string]float64 {
	correct := make(map[string]int)
	total := make(map[string]int)
	for _, a := range answers {
		topic := a.Topic
		if topic == "" {
			topic = "General"
		}
		total[topic]++
		if a.IsCorrect {
			correct[topic]++
		}
	}
	scores := make(map[string]float64, len(total))
	for topic, n := range total {
		scores[topic] = float64(correct[topic]) / float64(n)
	}
	return scores
}

func bloomScores(answers []model.AnswerRecord) map[model.BloomLevel]float64 {
	correct := make(map[model.BloomLevel]int)
	total := make(map[model.BloomLevel]int)
	for _, a := range answers {
		level := a.BloomLevel
		if level == "" {
			level = model.BloomUnderstand
		}
		total[level]++
		if a.IsCorrect {
			correct[level]++
		}
	}
	scores := make(map[model.BloomLevel]float64, len(total))
	for level, n := range total {
		scores[level] = float64(correct[level]) / float64(n)
	}
	return scores
}

func typeScores(answers []model.AnswerRecord) map[model.QuestionType]float64 {
	correct := make(map[model.QuestionType]int)
	total := make(map[model.QuestionType]int)
	for _, a := range answers {
		total[a.QuestionType]++
		if a.IsCorrect {
			correct[a.QuestionType]++
		}
	}
	scores := make(map[model.QuestionType]float64, len(total))
	for t, n := range total {
		scores[t] = float64(correct[t]) / float64(n)
	}
	return scores
}

func identifyPatterns(answers []model.AnswerRecord) model.ResponsePatterns {
	var p model.ResponsePatterns
	if len(answers) == 0 {
		return p
	}

	times := make([]float64, len(answers))
	for i, a := range answers {
		times[i] = float64(a.TimeTakenSec)
	}
	if mean, err := stats.Mean(times); err == nil && mean < 10 {
		p.Rushing = true
	}

	if len(answers) >= 5 {
		half := len(answers) / 2
		first := accuracy(answers[:half])
		second := accuracy(answers[half:])
		switch {
		case second < first-0.2:
			p.Fatigue = true
			p.Declining = true
		case second > first+0.2:
			p.Improving = true
		}
	}

	var mc []model.AnswerRecord
	for _, a := range answers {
		if a.QuestionType == model.QuestionTypeMultipleChoice {
			mc = append(mc, a)
		}
	}
	if len(mc) > 0 {
		acc := accuracy(mc)
		if acc >= 0.2 && acc <= 0.3 {
			p.Guessing = true
		}
	}

	if len(answers) >= 3 {
		changes := 0
		for i := 1; i < len(answers); i++ {
			if answers[i].IsCorrect != answers[i-1].IsCorrect {
				changes++
			}
		}
		if float64(changes) <= float64(len(answers))*0.3 {
			p.Consistent = true
		}
	}
	return p
}

func generateInsights(report *model.Report) []string {
	var insights []string

	score := report.Percentage / 100
	switch {
	case score >= 0.9:
		insights = append(insights, "Excellent performance! You've mastered this material.")
	case score >= 0.7:
		insights = append(insights, "Good understanding. Focus on the topics you missed.")
	case score >= 0.5:
		insights = append(insights, "Developing understanding. More practice recommended.")
	default:
		insights = append(insights, "Significant gaps identified. Consider reviewing the material.")
	}

	if weak := topicsBelow(report.TopicScores, 0.6); len(weak) > 0 {
		insights = append(insights, "Focus on: "+strings.Join(weak, ", "))
	}
	if strong := topicsAtLeast(report.TopicScores, 0.8); len(strong) > 0 {
		insights = append(insights, "Strong in: "+strings.Join(strong, ", "))
	}

	bloomAdvice := []struct {
		level  model.BloomLevel
		advice string
	}{
		{model.BloomRemember, "Strengthen factual knowledge and memorization."},
		{model.BloomUnderstand, "Work on comprehension and explanation skills."},
		{model.BloomApply, "Practice applying concepts to new situations."},
		{model.BloomAnalyze, "Develop analytical and critical thinking skills."},
	}
	for _, ba := range bloomAdvice {
		if score, ok := report.BloomScores[ba.level]; ok && score < 0.6 {
			insights = append(insights, ba.advice)
		}
	}

	if report.Patterns.Rushing {
		insights = append(insights, "Take more time to read questions carefully.")
	}
	if report.Patterns.Fatigue {
		insights = append(insights, "Consider taking breaks during longer quizzes.")
	}
	if report.Patterns.Guessing {
		insights = append(insights, "Review the material before attempting quizzes.")
	}
	if report.Patterns.Improving {
		insights = append(insights, "Great progress! You're warming up nicely.")
	}

	switch {
	case report.AverageTimeSec > 120:
		insights = append(insights, "You're being thorough, but try to improve speed.")
	case report.AverageTimeSec < 20 && report.AverageTimeSec > 0:
		insights = append(insights, "Consider spending more time on each question.")
	}
	return insights
}

// topicsBelow returns up to three topics scoring under the threshold, in
// deterministic order.
func topicsBelow(scores map[string]float64, threshold float64) []string {
	var topics []string
	for topic, score := range scores {
		if score < threshold {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	if len(topics) > 3 {
		topics = topics[:3]
	}
	return topics
}

func topicsAtLeast(scores map[string]float64, threshold float64) []string {
	var topics []string
	for topic, score := range scores {
		if score >= threshold {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	if len(topics) > 3 {
		topics = topics[:3]
	}
	return topics
}

func longestStreak(answers []model.AnswerRecord, correct bool) int {
	longest, current := 0, 0
	for _, a := range answers {
		if a.IsCorrect == correct {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// performanceTrend fits a line through the rolling accuracy and classifies
// the slope.
func performanceTrend(answers []model.AnswerRecord) string {
	if len(answers) < 3 {
		return "insufficient_data"
	}

	window := len(answers) / 3
	if window > 3 {
		window = 3
	}
	if window < 1 {
		window = 1
	}

	var series stats.Series
	for i := 0; i+window <= len(answers); i++ {
		series = append(series, stats.Coordinate{
			X: float64(i),
			Y: accuracy(answers[i : i+window]),
		})
	}
	if len(series) < 2 {
		return "stable"
	}

	fitted, err := stats.LinearRegression(series)
	if err != nil || len(fitted) < 2 {
		return "stable"
	}
	slope := (fitted[len(fitted)-1].Y - fitted[0].Y) / (fitted[len(fitted)-1].X - fitted[0].X)

	switch {
	case slope > 0.1:
		return "improving"
	case slope < -0.1:
		return "declining"
	default:
		return "stable"
	}
}

func accuracy(answers []model.AnswerRecord) float64 {
	if len(answers) == 0 {
		return 0
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(answers))
}

// GetReport fetches a stored report by session id. Returns nil when unknown.
func (s *AnalyticsService) GetReport(ctx context.Context, sessionID string) (*model.Report, error) {
	if s.reports == nil {
		return nil, nil
	}
	return s.reports.GetBySessionID(ctx, sessionID)
}

// GetUserAnalytics aggregates a user's recent reports into mastery and
// improvement figures.
func (s *AnalyticsService) GetUserAnalytics(ctx context.Context, userID string) (*model.UserAnalytics, error) {
	analytics := &model.UserAnalytics{
		UserID:       userID,
		TopicMastery: map[string]float64{},
		Strengths:    []string{},
		Weaknesses:   []string{},
	}
	if s.reports == nil {
		return analytics, nil
	}

	reports, err := s.reports.ListByUser(ctx, userID, 10)
	if err != nil {
		return nil, fmt.Errorf("user analytics: %w", err)
	}
	if len(reports) == 0 {
		return analytics, nil
	}

	// Repository order is newest first; aggregate in chronological order.
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})

	topicSums := make(map[string]float64)
	topicCounts := make(map[string]int)
	for _, r := range reports {
		analytics.TotalSessions++
		analytics.TotalQuestions += r.TotalQuestions
		analytics.TotalCorrect += r.CorrectAnswers
		analytics.TotalStudyTimeSec += r.TimeTakenSec
		for topic, score := range r.TopicScores {
			topicSums[topic] += score
			topicCounts[topic]++
		}
	}
	if analytics.TotalQuestions > 0 {
		analytics.OverallAccuracy = float64(analytics.TotalCorrect) / float64(analytics.TotalQuestions)
	}
	for topic, sum := range topicSums {
		analytics.TopicMastery[topic] = sum / float64(topicCounts[topic])
	}

	if len(reports) >= 2 {
		recent := reports
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		var recentAcc []float64
		for _, r := range recent {
			recentAcc = append(recentAcc, r.Percentage/100)
		}
		mean, err := stats.Mean(recentAcc)
		if err == nil {
			analytics.Improvement = mean - reports[0].Percentage/100
		}
	}

	last := reports[len(reports)-1].Timestamp
	analytics.LastActivity = &last

	analytics.Strengths = topTopics(analytics.TopicMastery, true)
	analytics.Weaknesses = topTopics(analytics.TopicMastery, false)
	return analytics, nil
}

// topTopics ranks topics by mastery; best=true returns the strongest three,
// otherwise the weakest three. Ties break alphabetically.
func topTopics(mastery map[string]float64, best bool) []string {
	topics := make([]string, 0, len(mastery))
	for topic := range mastery {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if mastery[topics[i]] != mastery[topics[j]] {
			if best {
				return mastery[topics[i]] > mastery[topics[j]]
			}
			return mastery[topics[i]] < mastery[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > 3 {
		topics = topics[:3]
	}
	return topics
}
