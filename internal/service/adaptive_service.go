package service

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/model"
	"github.com/gHajnal/OppaTalent/internal/repository"
)

// PerformanceLevel buckets a learner's overall accuracy.
type PerformanceLevel string

const (
	LevelStruggling PerformanceLevel = "struggling"
	LevelDeveloping PerformanceLevel = "developing"
	LevelProficient PerformanceLevel = "proficient"
	LevelAdvanced   PerformanceLevel = "advanced"
)

// levelDistributions maps each performance level to its target cognitive mix.
var levelDistributions = map[PerformanceLevel]map[model.BloomLevel]float64{
	LevelStruggling: {
		model.BloomRemember:   0.4,
		model.BloomUnderstand: 0.4,
		model.BloomApply:      0.15,
		model.BloomAnalyze:    0.05,
	},
	LevelDeveloping: {
		model.BloomRemember:   0.25,
		model.BloomUnderstand: 0.35,
		model.BloomApply:      0.25,
		model.BloomAnalyze:    0.15,
	},
	LevelProficient: {
		model.BloomRemember:   0.15,
		model.BloomUnderstand: 0.25,
		model.BloomApply:      0.35,
		model.BloomAnalyze:    0.25,
	},
	LevelAdvanced: {
		model.BloomRemember:   0.05,
		model.BloomUnderstand: 0.15,
		model.BloomApply:      0.30,
		model.BloomAnalyze:    0.30,
		model.BloomEvaluate:   0.10,
		model.BloomCreate:     0.10,
	},
}

// AdaptiveService tunes a quiz configuration to the learner's recent
// performance: the cognitive mix shifts toward what they struggle with and
// the quiz length follows their pace. Unknown users get the configuration
// back unchanged.
type AdaptiveService struct {
	reports repository.ReportRepo
	log     *logrus.Logger
}

// NewAdaptiveService creates the adaptive tuner. reports may be nil, which
// makes AdjustConfig a no-op.
func NewAdaptiveService(reports repository.ReportRepo, log *logrus.Logger) *AdaptiveService {
	return &AdaptiveService{reports: reports, log: log}
}

// learnerProfile is the aggregate of a user's recent reports.
type learnerProfile struct {
	totalQuestions int
	totalCorrect   int
	bloomScores    map[model.BloomLevel]float64
	avgTimePerQ    float64
	improvement    float64
}

// AdjustConfig personalizes cfg from the user's report history. Any failure
// to read history leaves the configuration untouched.
func (s *AdaptiveService) AdjustConfig(ctx context.Context, userID string, cfg model.GenerateConfig) model.GenerateConfig {
	if s.reports == nil || userID == "" {
		return cfg
	}

	reports, err := s.reports.ListByUser(ctx, userID, 10)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("adaptive history unavailable")
		return cfg
	}
	if len(reports) == 0 {
		return cfg
	}

	profile := buildProfile(reports)
	level := performanceLevel(profile)

	cfg.BloomDistribution = adjustedDistribution(level, profile)
	cfg.NumQuestions = adjustedQuestionCount(cfg.NumQuestions, profile)

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"level":   level,
	}).Debug("quiz config adapted")
	return cfg
}

func buildProfile(reports []*model.Report) *learnerProfile {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})

	p := &learnerProfile{bloomScores: make(map[model.BloomLevel]float64)}
	totalTime := 0
	for _, r := range reports {
		p.totalQuestions += r.TotalQuestions
		p.totalCorrect += r.CorrectAnswers
		totalTime += r.TimeTakenSec
		for level, score := range r.BloomScores {
			if prev, ok := p.bloomScores[level]; ok {
				// exponential moving average, recent sessions weigh more
				p.bloomScores[level] = 0.7*prev + 0.3*score
			} else {
				p.bloomScores[level] = score
			}
		}
	}
	if p.totalQuestions > 0 {
		p.avgTimePerQ = float64(totalTime) / float64(p.totalQuestions)
	}
	if len(reports) >= 2 {
		first := reports[0].Percentage / 100
		last := reports[len(reports)-1].Percentage / 100
		p.improvement = last - first
	}
	return p
}

func performanceLevel(p *learnerProfile) PerformanceLevel {
	if p.totalQuestions == 0 {
		return LevelDeveloping
	}
	accuracy := float64(p.totalCorrect) / float64(p.totalQuestions)
	switch {
	case accuracy >= 0.95:
		return LevelAdvanced
	case accuracy >= 0.8:
		return LevelProficient
	case accuracy >= 0.6:
		return LevelDeveloping
	default:
		return LevelStruggling
	}
}

// adjustedDistribution starts from the level's target mix and boosts any
// Bloom level the learner scores under 0.5 on, then renormalizes.
func adjustedDistribution(level PerformanceLevel, p *learnerProfile) map[model.BloomLevel]float64 {
	dist := make(map[model.BloomLevel]float64, len(levelDistributions[level]))
	for bloom, weight := range levelDistributions[level] {
		dist[bloom] = weight
	}
	for bloom, score := range p.bloomScores {
		if score < 0.5 {
			if _, ok := dist[bloom]; ok {
				dist[bloom] *= 1.2
			}
		}
	}

	total := 0.0
	for _, weight := range dist {
		total += weight
	}
	if total > 0 {
		for bloom := range dist {
			dist[bloom] /= total
		}
	}
	return dist
}

func adjustedQuestionCount(base int, p *learnerProfile) int {
	if base <= 0 {
		base = 10
	}
	n := base
	switch {
	case p.avgTimePerQ > 120:
		n = base - 2
	case p.avgTimePerQ > 0 && p.avgTimePerQ < 30:
		n = base + 2
	}
	switch {
	case p.improvement > 0.1:
		n = base + 3
	case p.improvement < -0.1:
		n = base - 3
	}
	if n < 5 {
		n = 5
	}
	if n > 20 {
		n = 20
	}
	return n
}
