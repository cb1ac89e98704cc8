package filtering

import "context"

type selfFilter struct{}

// NewSelf creates a filter that removes the subject from its own candidates.
func NewSelf() Filter {
	return &selfFilter{}
}

func (f *selfFilter) Name() string { return "self" }

func (f *selfFilter) Disable(string) {}

func (f *selfFilter) IsEnabled() bool { return true }

func (f *selfFilter) Validate() error { return nil }

func (f *selfFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	removed := c.Exclude([]string{c.Subject.ID()})

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}
