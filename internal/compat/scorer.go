package compat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spigell/travel-buddy/internal/profile"
)

const (
	dateLayout = "2006-01-02"

	scheduleUnknown = 50

	noActivitiesPlaceholder = "exploring local attractions"

	conflictDestinations = "Different travel destinations"
	conflictDates        = "Non-overlapping travel dates"
	conflictPace         = "Different travel pace preferences"
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

type styleCategory struct {
	name     string
	keywords []string
}

var styleCategories = []styleCategory{
	{"outdoor", []string{"hiking", "camping", "adventure", "sports", "climbing", "biking"}},
	{"cultural", []string{"museums", "art", "history", "culture", "architecture"}},
	{"food", []string{"cuisine", "food", "restaurants", "cooking", "wine"}},
	{"relaxation", []string{"spa", "beach", "yoga", "meditation", "wellness"}},
}

// ScoreFallback scores a pair of travelers without any external collaborator.
// It is deterministic and symmetric in its sub-scores.
func ScoreFallback(a, b profile.TravelerProfile) *MatchAnalysis {
	common := commonInterests(a, b)
	interest := interestDimension(a, b, common)
	location := locationDimension(a.Location(), b.Location())
	schedule := scheduleDimension(a.TravelDates(), b.TravelDates())
	style := styleDimension(a.Interests(), b.Interests())

	overall := WeightedScore(interest.Score, location.Score, schedule.Score, style.Score)

	activities := []string{noActivitiesPlaceholder}
	if len(common) > 0 {
		activities = common[:min(len(common), MaxActivities)]
	}

	var conflicts []string
	if location.Score < 50 {
		conflicts = append(conflicts, conflictDestinations)
	}
	if schedule.Score < 50 {
		conflicts = append(conflicts, conflictDates)
	}
	if len(conflicts) == 0 {
		conflicts = append(conflicts, conflictPace)
	}

	return &MatchAnalysis{
		Interest:            interest,
		TravelStyle:         style,
		Schedule:            schedule,
		Location:            location,
		OverallScore:        overall,
		Recommendation:      LevelFor(overall).Recommendation(),
		PotentialActivities: activities,
		PotentialConflicts:  conflicts,
		Method:              MethodFallback,
	}
}

// commonInterests returns the shared interests in lexicographic order.
func commonInterests(a, b profile.TravelerProfile) []string {
	var common []string
	for _, interest := range a.Interests() {
		if b.HasInterest(interest) {
			common = append(common, interest)
		}
	}
	return common
}

func interestDimension(a, b profile.TravelerProfile, common []string) Dimension {
	if len(a.Interests()) == 0 || len(b.Interests()) == 0 {
		return Dimension{Score: 0, Explanation: "Found 0 common interests: None"}
	}

	listed := "None"
	if len(common) > 0 {
		listed = strings.Join(common, ", ")
	}

	return Dimension{
		Score:       Clamp(25 * len(common)),
		Explanation: fmt.Sprintf("Found %d common interests: %s", len(common), listed),
	}
}

func locationDimension(a, b string) Dimension {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	score := 20
	switch {
	case a == b:
		score = 100
	case strings.Contains(a, b) || strings.Contains(b, a):
		score = 80
	}

	return Dimension{
		Score:       score,
		Explanation: fmt.Sprintf("Destination compatibility: %s vs %s", orUnknown(a), orUnknown(b)),
	}
}

func scheduleDimension(a, b string) Dimension {
	startA, endA, okA := dateSpan(a)
	startB, endB, okB := dateSpan(b)

	if !okA || !okB {
		return Dimension{Score: scheduleUnknown, Explanation: "Travel dates unknown, assuming partial overlap"}
	}

	if !startA.After(endB) && !startB.After(endA) {
		return Dimension{Score: 100, Explanation: "Travel dates overlap"}
	}
	return Dimension{Score: 0, Explanation: "Travel dates do not overlap"}
}

// dateSpan extracts the first and last ISO date of a free-text range.
func dateSpan(text string) (time.Time, time.Time, bool) {
	found := datePattern.FindAllString(text, -1)
	if len(found) == 0 {
		return time.Time{}, time.Time{}, false
	}

	start, err := time.Parse(dateLayout, found[0])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(dateLayout, found[len(found)-1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}

func styleDimension(a, b []string) Dimension {
	countsA := categorize(a)
	countsB := categorize(b)

	score := 0
	var shared []string
	for i, category := range styleCategories {
		// A category only counts when both travelers care about it.
		if countsA[i] == 0 || countsB[i] == 0 {
			continue
		}
		shared = append(shared, category.name)

		switch diff := abs(countsA[i] - countsB[i]); diff {
		case 0:
			score += 25
		case 1:
			score += 15
		case 2:
			score += 5
		}
	}

	explanation := "No shared travel style categories"
	if len(shared) > 0 {
		explanation = "Shared travel style categories: " + strings.Join(shared, ", ")
	}

	return Dimension{Score: Clamp(score), Explanation: explanation}
}

func categorize(interests []string) []int {
	counts := make([]int, len(styleCategories))
	for _, interest := range interests {
		for i, category := range styleCategories {
			for _, keyword := range category.keywords {
				if strings.Contains(interest, keyword) {
					counts[i]++
					break
				}
			}
		}
	}
	return counts
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
