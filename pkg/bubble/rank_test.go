package bubble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadius(t *testing.T) {
	assert.Equal(t, 36.0, Radius(0, 36, 96))
	assert.Equal(t, 96.0, Radius(1, 36, 96))
	assert.Equal(t, 66.0, Radius(0.25, 36, 96))
	assert.Equal(t, 78.43, Radius(0.5, 36, 96))
	assert.Equal(t, 36.0, Radius(-0.2, 36, 96), "negative relevance clamps to zero")
}

func TestRadiusMonotonicAndBounded(t *testing.T) {
	prev := Radius(0, 36, 96)
	for i := 1; i <= 1000; i++ {
		r := Radius(float64(i)/1000, 36, 96)
		assert.GreaterOrEqual(t, r, prev)
		assert.GreaterOrEqual(t, r, 36.0)
		assert.LessOrEqual(t, r, 96.0)
		prev = r
	}
}

func TestStamp(t *testing.T) {
	items := []*Item{{RelevanceScore: 1}, {RelevanceScore: 0.25}, {RelevanceScore: 0}}
	stamp(items, 36, 96)

	for i, it := range items {
		assert.Equal(t, i+1, it.Rank)
	}
	assert.Equal(t, []float64{96, 66, 36},
		[]float64{items[0].SuggestedRadius, items[1].SuggestedRadius, items[2].SuggestedRadius})
}
