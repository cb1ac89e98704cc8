package ai

import (
	"context"
	"errors"

	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/profile"
)

// Generator is the generative collaborator: one prompt in, one text answer out.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Assessor scores a pair of travelers with a generative model. Any error means
// the result must not be used.
type Assessor interface {
	Assess(ctx context.Context, a, b profile.TravelerProfile) (*compat.MatchAnalysis, error)
}

var (
	// ErrMalformedResponse marks model output that could not be read as a JSON object.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrSchemaMismatch marks model output that does not follow the response schema.
	ErrSchemaMismatch = errors.New("model response does not match schema")
)
