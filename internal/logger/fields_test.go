package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := stringFields("provider", "  Gemini  ", "ignored", "   ", "dangling")

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := stringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestCommonFields(t *testing.T) {
	fields := CommonFields("  Gemini  ", "model-v1")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldProvider || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if fields[1].Key != FieldModel || fields[1].String != "model-v1" {
		t.Fatalf("unexpected model field: %+v", fields[1])
	}

	empty := CommonFields("", "")
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestMatchFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     string
		other    string
		context  string
		expected map[string]string
	}{
		{
			name:    "all set",
			user:    "u1",
			other:   "u2",
			context: "trip-7",
			expected: map[string]string{
				FieldUser:        "u1",
				FieldCounterpart: "u2",
				FieldContext:     "trip-7",
			},
		},
		{
			name:  "context omitted",
			user:  " u1 ",
			other: "u2",
			expected: map[string]string{
				FieldUser:        "u1",
				FieldCounterpart: "u2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fields := MatchFields(tt.user, tt.other, tt.context)
			if len(fields) != len(tt.expected) {
				t.Fatalf("expected %d fields, got %d", len(tt.expected), len(fields))
			}
			for _, f := range fields {
				if tt.expected[f.Key] != f.String {
					t.Fatalf("unexpected field %s=%q", f.Key, f.String)
				}
			}
		})
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "model-x").Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" || ctx[FieldModel] != "model-x" {
		t.Fatalf("unexpected fields: %v", ctx)
	}

	// a nil logger falls back to a no-op one
	WithCommonFields(nil, "gemini", "model-x").Info("another log")
}

func TestWithRunFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithRunFields(zap.New(core), "run-1", "u1", "").Info("filter step")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldRun] != "run-1" || ctx[FieldUser] != "u1" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
	if _, ok := ctx[FieldContext]; ok {
		t.Fatalf("blank context must be skipped: %v", ctx)
	}

	WithRunFields(nil, "run-1", "u1", "trip").Info("no panic")
}
