package filtering

import (
	"context"
	"strings"
)

type excludedFilter struct {
	ids []string
}

// NewExcluded creates a filter that removes the configured traveler ids.
func NewExcluded(ids []string) Filter {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return &excludedFilter{ids: cleaned}
}

func (f *excludedFilter) Name() string { return "excluded" }

func (f *excludedFilter) Disable(string) {}

func (f *excludedFilter) IsEnabled() bool { return true }

func (f *excludedFilter) Validate() error { return nil }

func (f *excludedFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	removed := c.Exclude(f.ids)

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *excludedFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["ids"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
