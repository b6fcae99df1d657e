package quiz

// Scoreboard tracks the running score and streaks of a session. Pure state:
// Apply must be called exactly once per newly answered question and never
// on replay of a stored record.
type Scoreboard struct {
	Score         int `json:"score"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// Apply folds one verdict into the scoreboard. An incorrect verdict resets
// the current streak; the longest streak never decreases.
func (s *Scoreboard) Apply(correct bool) {
	if !correct {
		s.CurrentStreak = 0
		return
	}
	s.Score++
	s.CurrentStreak++
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}
