package compat

import (
	"errors"
	"fmt"
	"strings"
)

// Method tells which path produced a MatchAnalysis.
type Method string

const (
	MethodAI       Method = "ai"
	MethodFallback Method = "fallback"
)

// Dimension weights in percent. They sum to 100.
const (
	WeightInterest = 30
	WeightLocation = 25
	WeightSchedule = 25
	WeightStyle    = 20
)

const (
	MinScore = 0
	MaxScore = 100

	MaxActivities = 3
)

// Dimension is a single scored compatibility aspect.
type Dimension struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// MatchAnalysis is the full compatibility result for a pair of travelers.
type MatchAnalysis struct {
	Interest            Dimension `json:"interest_compatibility"`
	TravelStyle         Dimension `json:"travel_style_compatibility"`
	Schedule            Dimension `json:"schedule_compatibility"`
	Location            Dimension `json:"location_compatibility"`
	OverallScore        int       `json:"overall_match_score"`
	Recommendation      string    `json:"recommendation"`
	PotentialActivities []string  `json:"potential_activities"`
	PotentialConflicts  []string  `json:"potential_conflicts"`
	Method              Method    `json:"analysis_method"`
}

// ErrInvalidAnalysis is wrapped by Validate failures.
var ErrInvalidAnalysis = errors.New("invalid match analysis")

// Validate checks the structural invariants every accepted analysis must hold.
// The overall score is only range checked: it does not have to equal the weighted sum.
func (a *MatchAnalysis) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: analysis is nil", ErrInvalidAnalysis)
	}

	dimensions := []struct {
		name string
		dim  Dimension
	}{
		{"interest_compatibility", a.Interest},
		{"travel_style_compatibility", a.TravelStyle},
		{"schedule_compatibility", a.Schedule},
		{"location_compatibility", a.Location},
	}
	for _, d := range dimensions {
		if !inRange(d.dim.Score) {
			return fmt.Errorf("%w: %s score %d out of range", ErrInvalidAnalysis, d.name, d.dim.Score)
		}
		if strings.TrimSpace(d.dim.Explanation) == "" {
			return fmt.Errorf("%w: %s explanation is empty", ErrInvalidAnalysis, d.name)
		}
	}

	if !inRange(a.OverallScore) {
		return fmt.Errorf("%w: overall score %d out of range", ErrInvalidAnalysis, a.OverallScore)
	}
	if strings.TrimSpace(a.Recommendation) == "" {
		return fmt.Errorf("%w: recommendation is empty", ErrInvalidAnalysis)
	}
	if len(a.PotentialConflicts) == 0 {
		return fmt.Errorf("%w: potential conflicts are empty", ErrInvalidAnalysis)
	}
	if len(a.PotentialActivities) > MaxActivities {
		return fmt.Errorf("%w: %d potential activities, at most %d allowed", ErrInvalidAnalysis, len(a.PotentialActivities), MaxActivities)
	}

	return nil
}

// WeightedScore combines the four dimension scores with the fixed weights,
// truncating toward zero.
func WeightedScore(interest, location, schedule, style int) int {
	sum := interest*WeightInterest + location*WeightLocation + schedule*WeightSchedule + style*WeightStyle
	return Clamp(sum / 100)
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

func inRange(score int) bool {
	return score >= MinScore && score <= MaxScore
}
