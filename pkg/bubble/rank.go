package bubble

import "math"

// Radius maps relevance to a display radius. The square root lifts mid-range
// items so they stay readable next to the leaders.
func Radius(relevance, minRadius, maxRadius float64) float64 {
	r := minRadius + math.Sqrt(math.Max(0, relevance))*(maxRadius-minRadius)
	return math.Round(r*100) / 100
}

// stamp assigns 1-based ranks and radii in slice order.
func stamp(items []*Item, minRadius, maxRadius float64) {
	for i, it := range items {
		it.Rank = i + 1
		it.SuggestedRadius = Radius(it.RelevanceScore, minRadius, maxRadius)
	}
}
