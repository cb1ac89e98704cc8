package profile

import (
	"errors"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("invalid traveler profile")

// ValidationError reports a traveler record that cannot be used for matching.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TravelerProfile is the canonical view of a traveler used by the scorers.
// Values are built by Normalize and never change afterwards.
type TravelerProfile struct {
	id          string
	name        string
	interests   []string
	location    string
	travelDates string
}

func (p TravelerProfile) ID() string { return p.id }

// Name returns the display name, which defaults to the id.
func (p TravelerProfile) Name() string { return p.name }

// Interests returns a copy of the lower-cased, sorted and deduplicated interests.
func (p TravelerProfile) Interests() []string { return slices.Clone(p.interests) }

func (p TravelerProfile) Location() string { return p.location }

func (p TravelerProfile) TravelDates() string { return p.travelDates }

// HasInterest reports whether the lower-cased interest is present.
func (p TravelerProfile) HasInterest(interest string) bool {
	_, found := slices.BinarySearch(p.interests, interest)
	return found
}

// MarshalJSON renders the profile the way it is shown to the generative model.
func (p TravelerProfile) MarshalJSON() ([]byte, error) {
	interests := p.interests
	if interests == nil {
		interests = []string{}
	}
	return json.Marshal(struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Interests   []string `json:"interests"`
		Location    string   `json:"location"`
		TravelDates string   `json:"travel_dates"`
	}{p.id, p.name, interests, p.location, p.travelDates})
}
