package bubble

import (
	"strings"
)

// Cluster groups items that share keywords with the cluster founder.
type Cluster struct {
	Key            string
	Items          []*Item
	RawScore       float64
	RelevanceScore float64

	keywords map[string]bool
}

func newCluster(founder *Item) *Cluster {
	c := &Cluster{
		Key:      ClusterKey(founder.Title),
		keywords: make(map[string]bool),
	}
	if c.Key != "" {
		for _, kw := range strings.Split(c.Key, "|") {
			c.keywords[kw] = true
		}
	}
	c.Add(founder)
	return c
}

// Add appends a member and refreshes the cluster score.
func (c *Cluster) Add(it *Item) {
	c.Items = append(c.Items, it)
	c.refreshScore()
}

// refreshScore keeps RawScore equal to the best member score. Repeated
// coverage of one event does not inflate it.
func (c *Cluster) refreshScore() {
	if len(c.Items) == 0 {
		c.RawScore = 0
		return
	}
	best := c.Items[0].RawScore
	for _, it := range c.Items[1:] {
		if it.RawScore > best {
			best = it.RawScore
		}
	}
	c.RawScore = best
}

// overlap counts the keywords shared with the cluster key.
func (c *Cluster) overlap(kws []string) int {
	n := 0
	for _, kw := range kws {
		if c.keywords[kw] {
			n++
		}
	}
	return n
}

func (c *Cluster) Raw() float64           { return c.RawScore }
func (c *Cluster) SetRelevance(v float64) { c.RelevanceScore = v }

// Clusterer groups items greedily: each item joins the first existing cluster
// whose key shares at least minOverlap keywords with it. Keys are fixed at
// creation, so grouping is not transitive.
type Clusterer struct {
	minOverlap int
}

// NewClusterer creates a clusterer. Overlaps below 1 are treated as 1.
func NewClusterer(minOverlap int) *Clusterer {
	if minOverlap < 1 {
		minOverlap = 1
	}
	return &Clusterer{minOverlap: minOverlap}
}

// Cluster partitions items into clusters in creation order.
func (cl *Clusterer) Cluster(items []*Item) []*Cluster {
	var clusters []*Cluster
	for _, it := range items {
		kws := Keywords(it.Title)

		var match *Cluster
		for _, c := range clusters {
			if c.overlap(kws) >= cl.minOverlap {
				match = c
				break
			}
		}

		if match != nil {
			match.Add(it)
			continue
		}
		clusters = append(clusters, newCluster(it))
	}

	for _, c := range clusters {
		c.refreshScore()
	}
	return clusters
}
