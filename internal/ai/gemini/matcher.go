package gemini

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/ai"
	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/logger"
	"github.com/spigell/travel-buddy/internal/profile"
	"github.com/spigell/travel-buddy/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

//go:embed schema.json
var responseSchema string

const defaultMaxLogLength = 200

var schemaLoader = gojsonschema.NewStringLoader(responseSchema)

// Matcher asks the generator to assess a pair of travelers and turns the answer
// into a MatchAnalysis.
type Matcher struct {
	generator ai.Generator
	schema    *gojsonschema.Schema
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Assessor = (*Matcher)(nil)

func NewMatcher(generator ai.Generator, log *zap.Logger, maxLogLength int) (*Matcher, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	return &Matcher{
		generator: generator,
		schema:    schema,
		logger:    log,
		maxLogLen: maxLogLength,
	}, nil
}

// Assess implements ai.Assessor. Any returned error means the answer must be discarded.
func (m *Matcher) Assess(ctx context.Context, a, b profile.TravelerProfile) (*compat.MatchAnalysis, error) {
	aJSON, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal traveler %s: %w", a.ID(), err)
	}
	bJSON, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal traveler %s: %w", b.ID(), err)
	}

	prompt := buildPrompt(string(aJSON), string(bJSON))
	pair := logger.MatchFields(a.ID(), b.ID(), "")

	m.logger.Debug("gemini generate content request", append(pair,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)...)

	raw, err := m.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response", append(pair,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)...)

	return m.parseResponse(raw)
}

func buildPrompt(aJSON, bJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Traveler A:\n{{TRAVELER_A_JSON}}\n\nTraveler B:\n{{TRAVELER_B_JSON}}\n\nSchema:\n{{SCHEMA}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{TRAVELER_A_JSON}}", aJSON)
	prompt = strings.ReplaceAll(prompt, "{{TRAVELER_B_JSON}}", bJSON)
	prompt = strings.ReplaceAll(prompt, "{{SCHEMA}}", strings.TrimSpace(responseSchema))
	return prompt
}

type wireDimension struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type wireAnalysis struct {
	Interest            wireDimension `json:"interest_compatibility"`
	TravelStyle         wireDimension `json:"travel_style_compatibility"`
	Schedule            wireDimension `json:"schedule_compatibility"`
	Location            wireDimension `json:"location_compatibility"`
	OverallScore        float64       `json:"overall_match_score"`
	Recommendation      string        `json:"recommendation"`
	PotentialActivities []string      `json:"potential_activities"`
	PotentialConflicts  []string      `json:"potential_conflicts"`
}

func (m *Matcher) parseResponse(raw string) (*compat.MatchAnalysis, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: no json object found", ai.ErrMalformedResponse)
	}

	result, err := m.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ai.ErrSchemaMismatch, strings.Join(details, "; "))
	}

	var wire wireAnalysis
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}

	analysis := &compat.MatchAnalysis{
		Interest:            wire.Interest.toDimension(),
		TravelStyle:         wire.TravelStyle.toDimension(),
		Schedule:            wire.Schedule.toDimension(),
		Location:            wire.Location.toDimension(),
		OverallScore:        toScore(wire.OverallScore),
		Recommendation:      strings.TrimSpace(wire.Recommendation),
		PotentialActivities: cleanList(wire.PotentialActivities, compat.MaxActivities),
		PotentialConflicts:  cleanList(wire.PotentialConflicts, 0),
		Method:              compat.MethodAI,
	}

	if err := analysis.Validate(); err != nil {
		return nil, err
	}

	return analysis, nil
}

func (d wireDimension) toDimension() compat.Dimension {
	return compat.Dimension{
		Score:       toScore(d.Score),
		Explanation: strings.TrimSpace(d.Explanation),
	}
}

func toScore(v float64) int {
	return int(math.Round(v))
}

// cleanList trims entries, drops empty ones and keeps at most limit items (0 keeps all).
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// extractJSON strips markdown fences and any prose around the outermost JSON object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}
