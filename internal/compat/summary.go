package compat

// Level is the display band of an overall score.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
)

var recommendations = map[Level]string{
	LevelExcellent: "Excellent match! These travelers would make great companions.",
	LevelGood:      "Good match! They have compatible interests and schedules.",
	LevelFair:      "Fair match. Some compatibility but may have different preferences.",
	LevelPoor:      "Poor match. Limited compatibility in interests or schedules.",
}

// LevelFor bands an overall score.
func LevelFor(score int) Level {
	switch {
	case score >= 80:
		return LevelExcellent
	case score >= 60:
		return LevelGood
	case score >= 40:
		return LevelFair
	default:
		return LevelPoor
	}
}

// Recommendation returns the fixed sentence of a level.
func (l Level) Recommendation() string {
	return recommendations[l]
}

// Summary is the compact projection of a MatchAnalysis.
type Summary struct {
	Level          Level  `json:"match_level"`
	OverallScore   int    `json:"overall_score"`
	Recommendation string `json:"recommendation"`
	Method         Method `json:"analysis_method"`
}

// Summarize projects an analysis. The level is always derived from the overall
// score, including for AI results.
func Summarize(a *MatchAnalysis) Summary {
	if a == nil {
		return Summary{Level: LevelPoor, Recommendation: LevelPoor.Recommendation()}
	}
	return Summary{
		Level:          LevelFor(a.OverallScore),
		OverallScore:   a.OverallScore,
		Recommendation: a.Recommendation,
		Method:         a.Method,
	}
}
