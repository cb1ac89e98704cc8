// Package roster reads raw traveler records from disk and writes batch results back.
package roster

import (
	"bytes"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/travel-buddy/internal/profile"
)

// Roster holds raw traveler records exactly as they were read.
type Roster struct {
	Records []map[string]any
}

type envelope struct {
	Travelers []map[string]any `json:"travelers"`
}

// Load reads a JSON array of records or an object with a "travelers" array.
// An empty file is an empty roster.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Roster{}, nil
	}

	if data[0] == '[' {
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode roster %s: %w", path, err)
		}
		return &Roster{Records: records}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	return &Roster{Records: env.Travelers}, nil
}

func (r *Roster) Len() int {
	return len(r.Records)
}

// FindByID returns the first record whose id (or _id) equals id.
func (r *Roster) FindByID(id string) (map[string]any, bool) {
	for _, record := range r.Records {
		if recordID(record) == id {
			return record, true
		}
	}
	return nil, false
}

// Profiles normalizes every record. Records that fail validation are skipped
// and reported in the second return value.
func (r *Roster) Profiles() ([]profile.TravelerProfile, []error) {
	profiles := make([]profile.TravelerProfile, 0, len(r.Records))
	var errs []error
	for i, record := range r.Records {
		p, err := profile.Normalize(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, errs
}

func recordID(record map[string]any) string {
	for _, key := range []string{"id", "_id"} {
		v, ok := record[key]
		if !ok || v == nil {
			continue
		}
		var s string
		if err := mapstructure.WeakDecode(v, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
