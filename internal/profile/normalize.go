package profile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// record mirrors the loose shape of stored traveler documents.
type record struct {
	ID          any `mapstructure:"id"`
	LegacyID    any `mapstructure:"_id"`
	Name        any `mapstructure:"name"`
	Interests   any `mapstructure:"interests"`
	Location    any `mapstructure:"location"`
	TravelDates any `mapstructure:"travel_dates"`
}

// Normalize builds a TravelerProfile from a loosely typed record. Only a missing
// or unusable identity is an error; every other field falls back to its empty value.
func Normalize(raw map[string]any) (TravelerProfile, error) {
	var rec record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &rec,
		// Record keys are case-sensitive.
		MatchName: func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return TravelerProfile{}, fmt.Errorf("create record decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return TravelerProfile{}, &ValidationError{Field: "record", Reason: err.Error()}
	}

	idValue := rec.ID
	if idValue == nil {
		idValue = rec.LegacyID
	}

	id, ok := scalarString(idValue)
	if !ok || id == "" {
		return TravelerProfile{}, &ValidationError{Field: "id", Reason: "traveler identity is required"}
	}

	name, _ := scalarString(rec.Name)
	if name == "" {
		name = id
	}

	location, _ := scalarString(rec.Location)

	return TravelerProfile{
		id:          id,
		name:        name,
		interests:   normalizeInterests(rec.Interests),
		location:    location,
		travelDates: normalizeDates(rec.TravelDates),
	}, nil
}

// MustNormalize is Normalize for fixtures known to carry an id.
func MustNormalize(raw map[string]any) TravelerProfile {
	p, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func scalarString(v any) (string, bool) {
	if v == nil {
		return "", true
	}
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func normalizeInterests(v any) []string {
	var items []string
	switch val := v.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			if s, ok := scalarString(item); ok {
				items = append(items, s)
			}
		}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		result = append(result, item)
	}

	slices.Sort(result)
	return slices.Compact(result)
}

func normalizeDates(v any) string {
	switch val := v.(type) {
	case map[string]any:
		start := firstScalar(val, "start", "from", "start_date")
		end := firstScalar(val, "end", "to", "end_date")
		return joinRange(start, end)
	case []any:
		if len(val) == 0 {
			return ""
		}
		start, _ := scalarString(val[0])
		end, _ := scalarString(val[len(val)-1])
		return joinRange(start, end)
	case []string:
		if len(val) == 0 {
			return ""
		}
		return joinRange(strings.TrimSpace(val[0]), strings.TrimSpace(val[len(val)-1]))
	default:
		s, _ := scalarString(v)
		return s
	}
}

func firstScalar(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := scalarString(m[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

func joinRange(start, end string) string {
	switch {
	case start == "":
		return end
	case end == "" || end == start:
		return start
	default:
		return start + " to " + end
	}
}
