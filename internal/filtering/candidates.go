package filtering

import (
	"slices"
	"sort"

	"github.com/spigell/travel-buddy/internal/matching"
	"github.com/spigell/travel-buddy/internal/profile"
)

// Candidates is the working set of the pipeline: the subject being matched and
// the travelers still in the running.
type Candidates struct {
	Subject profile.TravelerProfile
	Items   []profile.TravelerProfile
	// Results is filled by the compatibility step, keyed by counterpart id.
	Results map[string]*matching.Result
}

func NewCandidates(subject profile.TravelerProfile, items []profile.TravelerProfile) *Candidates {
	return &Candidates{
		Subject: subject,
		Items:   slices.Clone(items),
		Results: make(map[string]*matching.Result),
	}
}

func (c *Candidates) Len() int { return len(c.Items) }

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ID())
	}
	return ids
}

// Exclude removes every candidate whose id is listed and returns the removed ids.
func (c *Candidates) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var removed []string
	kept := c.Items[:0]
	for _, item := range c.Items {
		if _, ok := drop[item.ID()]; ok {
			removed = append(removed, item.ID())
			delete(c.Results, item.ID())
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed
}

// Ranked returns the scored results of the remaining candidates, best first.
// Ties keep roster order.
func (c *Candidates) Ranked() []*matching.Result {
	ranked := make([]*matching.Result, 0, len(c.Items))
	for _, item := range c.Items {
		if res, ok := c.Results[item.ID()]; ok {
			ranked = append(ranked, res)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Analysis.OverallScore > ranked[j].Analysis.OverallScore
	})
	return ranked
}
