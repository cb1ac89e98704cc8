package roster

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/spigell/travel-buddy/internal/matching"
)

// Report groups results by match level for display.
func Report(results []*matching.Result) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, res := range results {
		key := string(res.Summary.Level)
		report[key] = append(report[key], map[string]string{
			"traveler":       fmt.Sprintf("%s (%s)", res.Counterpart.Name(), res.Counterpart.ID()),
			"location":       res.Counterpart.Location(),
			"travel dates":   res.Counterpart.TravelDates(),
			"score":          strconv.Itoa(res.Summary.OverallScore),
			"method":         string(res.Summary.Method),
			"recommendation": res.Summary.Recommendation,
			"activities":     strings.Join(res.Analysis.PotentialActivities, ", "),
			"conflicts":      strings.Join(res.Analysis.PotentialConflicts, ", "),
		})
	}
	return report
}

// DumpToTmpFile writes results as indented JSON to a new temp file and returns its path.
func DumpToTmpFile(results []*matching.Result) (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", err
	}
	return file.Name(), nil
}
