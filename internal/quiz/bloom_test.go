package quiz

import (
	"math"
	"testing"

	"github.com/gHajnal/OppaTalent/internal/model"
)

const floatTol = 1e-6

func TestNormalizeBloomWeights(t *testing.T) {
	tests := []struct {
		name  string
		input []model.BloomWeight
		want  map[model.BloomLevel]float64
	}{
		{
			name: "mixed enabled and disabled",
			input: []model.BloomWeight{
				{Level: model.BloomRemember, Enabled: true, Percentage: 20},
				{Level: model.BloomUnderstand, Enabled: true, Percentage: 30},
				{Level: model.BloomApply, Enabled: true, Percentage: 0},
				{Level: model.BloomAnalyze, Enabled: false, Percentage: 50},
			},
			want: map[model.BloomLevel]float64{
				model.BloomRemember:   0.4,
				model.BloomUnderstand: 0.6,
			},
		},
		{
			name: "nothing enabled",
			input: []model.BloomWeight{
				{Level: model.BloomRemember, Enabled: false, Percentage: 100},
			},
			want: map[model.BloomLevel]float64{},
		},
		{
			name:  "empty input",
			input: nil,
			want:  map[model.BloomLevel]float64{},
		},
		{
			name: "single level takes everything",
			input: []model.BloomWeight{
				{Level: model.BloomCreate, Enabled: true, Percentage: 5},
			},
			want: map[model.BloomLevel]float64{model.BloomCreate: 1.0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeBloomWeights(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d levels, want %d: %v", len(got), len(tc.want), got)
			}
			for level, w := range tc.want {
				if math.Abs(got[level]-w) > floatTol {
					t.Fatalf("%s = %f, want %f", level, got[level], w)
				}
			}
		})
	}
}

func TestNormalizeBloomWeightsSumsToOne(t *testing.T) {
	input := []model.BloomWeight{
		{Level: model.BloomRemember, Enabled: true, Percentage: 17},
		{Level: model.BloomUnderstand, Enabled: true, Percentage: 23},
		{Level: model.BloomApply, Enabled: true, Percentage: 41},
		{Level: model.BloomAnalyze, Enabled: true, Percentage: 3},
	}
	got := NormalizeBloomWeights(input)
	sum := 0.0
	for _, w := range got {
		sum += w
	}
	if math.Abs(sum-1.0) > floatTol {
		t.Fatalf("weights sum to %f, want 1.0", sum)
	}
}

func TestNormalizeBloomWeightsIdempotent(t *testing.T) {
	input := []model.BloomWeight{
		{Level: model.BloomRemember, Enabled: true, Percentage: 40},
		{Level: model.BloomUnderstand, Enabled: true, Percentage: 60},
	}
	first := NormalizeBloomWeights(input)

	// Feed the normalized output back in as integer percentages.
	again := []model.BloomWeight{
		{Level: model.BloomRemember, Enabled: true, Percentage: int(first[model.BloomRemember] * 100)},
		{Level: model.BloomUnderstand, Enabled: true, Percentage: int(first[model.BloomUnderstand] * 100)},
	}
	second := NormalizeBloomWeights(again)

	for level, w := range first {
		if math.Abs(second[level]-w) > floatTol {
			t.Fatalf("%s changed from %f to %f", level, w, second[level])
		}
	}
}
