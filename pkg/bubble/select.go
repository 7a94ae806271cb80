package bubble

import "sort"

// Representative returns the member with the highest relevance, then raw
// score. Ties keep the earliest member.
func Representative(c *Cluster) *Item {
	if len(c.Items) == 0 {
		return nil
	}
	best := c.Items[0]
	for _, it := range c.Items[1:] {
		if it.RelevanceScore > best.RelevanceScore ||
			(it.RelevanceScore == best.RelevanceScore && it.RawScore > best.RawScore) {
			best = it
		}
	}
	return best
}

// byRawScore returns the members sorted by raw score, highest first, keeping
// discovery order among equals.
func byRawScore(c *Cluster) []*Item {
	sorted := append([]*Item(nil), c.Items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RawScore > sorted[j].RawScore
	})
	return sorted
}

// ClusterImage returns the image of the highest scoring member that has one.
// It may belong to a different member than the representative.
func ClusterImage(c *Cluster) string {
	for _, it := range byRawScore(c) {
		if it.Image != "" {
			return it.Image
		}
	}
	return ""
}
