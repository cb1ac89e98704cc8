package gemini

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	calls  int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeneratorGenerateContent(t *testing.T) {
	fake := &fakeModels{resp: textResponse(" {\"a\": ", "", "1} ")}
	gen := newGenerator(fake, "", 0, zap.NewNop())

	out, err := gen.GenerateContent(context.Background(), "score these travelers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "{\"a\":\n1}" {
		t.Fatalf("unexpected output: %q", out)
	}
	if fake.model != defaultModel || gen.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", fake.model)
	}
	if fake.config == nil || fake.config.ResponseMIMEType != responseMIMEType {
		t.Fatalf("expected json response mime type, got %+v", fake.config)
	}
	if fake.config.Temperature == nil || *fake.config.Temperature != defaultTemperature {
		t.Fatalf("expected default temperature")
	}
}

func TestGeneratorGenerateContentErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")

	tests := []struct {
		name     string
		fake     *fakeModels
		prompt   string
		expected error
		calls    int
	}{
		{"transport error", &fakeModels{err: boom}, "hi", boom, 1},
		{"empty response", &fakeModels{resp: textResponse("  ")}, "hi", ErrEmptyResponse, 1},
		{"nil response", &fakeModels{}, "hi", ErrEmptyResponse, 1},
		{"blank prompt", &fakeModels{resp: textResponse("x")}, "   ", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := newGenerator(tt.fake, "gemini-test", 0.2, nil)
			_, err := gen.GenerateContent(context.Background(), tt.prompt)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.expected != nil && !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
			if tt.fake.calls != tt.calls {
				t.Fatalf("expected %d calls, got %d", tt.calls, tt.fake.calls)
			}
		})
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "  ", "", 0, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}
