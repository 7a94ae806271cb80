package bubble

import (
	"math"
	"time"
)

// Score weights.
const (
	volumeWeight   = 0.35
	depthWeight    = 0.30
	velocityWeight = 0.35

	// depthCap bounds how much a huge comment count can dominate.
	depthCap = 1000.0

	// degenerateRange is the spread below which normalization gives up and
	// assigns the midpoint.
	degenerateRange = 1e-9
)

// Score computes the raw relevance of a thread from its votes, reply count and
// age. Threads younger than an hour are treated as one hour old.
func Score(upvotes, comments int, created, now time.Time) float64 {
	hours := math.Max(1, now.Sub(created).Hours())

	volume := 1.0
	depth := math.Min(float64(comments), depthCap)
	velocity := float64(upvotes+comments) / hours

	return volume*volumeWeight + depth*depthWeight + velocity*velocityWeight
}

// Scored is anything carrying a raw score that can be normalized.
type Scored interface {
	Raw() float64
	SetRelevance(float64)
}

// Normalize min-max scales raw scores into [0,1]. When every score is (nearly)
// equal all entities get 0.5.
func Normalize[T Scored](entities []T) {
	if len(entities) == 0 {
		return
	}

	lo, hi := entities[0].Raw(), entities[0].Raw()
	for _, e := range entities[1:] {
		lo = math.Min(lo, e.Raw())
		hi = math.Max(hi, e.Raw())
	}

	spread := hi - lo
	for _, e := range entities {
		if spread < degenerateRange {
			e.SetRelevance(0.5)
			continue
		}
		e.SetRelevance((e.Raw() - lo) / spread)
	}
}
