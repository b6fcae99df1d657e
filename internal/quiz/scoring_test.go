package quiz

import "testing"

func TestScoreboardApply(t *testing.T) {
	tests := []struct {
		name         string
		verdicts     []bool
		score        int
		streaks      []int // expected current streak after each verdict
		longest      int
	}{
		{name: "all correct", verdicts: []bool{true, true, true}, score: 3, streaks: []int{1, 2, 3}, longest: 3},
		{name: "three correct then miss", verdicts: []bool{true, true, true, false}, score: 3, streaks: []int{1, 2, 3, 0}, longest: 3},
		{name: "recovering streak stays below longest", verdicts: []bool{true, true, true, false, true, true}, score: 5, streaks: []int{1, 2, 3, 0, 1, 2}, longest: 3},
		{name: "all incorrect", verdicts: []bool{false, false}, score: 0, streaks: []int{0, 0}, longest: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sb Scoreboard
			for i, v := range tc.verdicts {
				sb.Apply(v)
				if sb.CurrentStreak != tc.streaks[i] {
					t.Fatalf("after verdict %d: streak = %d, want %d", i, sb.CurrentStreak, tc.streaks[i])
				}
				if sb.LongestStreak < sb.CurrentStreak {
					t.Fatalf("after verdict %d: longest %d < current %d", i, sb.LongestStreak, sb.CurrentStreak)
				}
			}
			if sb.Score != tc.score {
				t.Fatalf("score = %d, want %d", sb.Score, tc.score)
			}
			if sb.LongestStreak != tc.longest {
				t.Fatalf("longest = %d, want %d", sb.LongestStreak, tc.longest)
			}
		})
	}
}
