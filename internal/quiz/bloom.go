package quiz

import "github.com/gHajnal/OppaTalent/internal/model"

// NormalizeBloomWeights converts the configure view's enabled/percentage
// rows into a probability distribution over the enabled levels. Disabled
// levels never contribute. A zero sum returns an empty map, which the
// generator treats as "use the default distribution".
func NormalizeBloomWeights(levels []model.BloomWeight) map[model.BloomLevel]float64 {
	sum := 0
	for _, l := range levels {
		if l.Enabled && l.Percentage > 0 {
			sum += l.Percentage
		}
	}
	dist := make(map[model.BloomLevel]float64)
	if sum == 0 {
		return dist
	}
	for _, l := range levels {
		if l.Enabled && l.Percentage > 0 {
			dist[l.Level] = float64(l.Percentage) / float64(sum)
		}
	}
	return dist
}
