package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	FieldUser        = "user_id"
	FieldCounterpart = "counterpart_id"
	FieldContext     = "context_id"
	FieldRun         = "run_id"
)

// stringFields turns key/value pairs into zap fields. Values are trimmed and
// blank ones are left out.
func stringFields(pairs ...string) []zap.Field {
	result := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		value := strings.TrimSpace(pairs[i+1])
		if value == "" {
			continue
		}
		result = append(result, zap.String(pairs[i], value))
	}
	return result
}

func with(logger *zap.Logger, fields []zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the AI provider and model. Empty values are skipped.
func CommonFields(provider, model string) []zap.Field {
	return stringFields(FieldProvider, provider, FieldModel, model)
}

// WithCommonFields attaches CommonFields to logger; a nil logger becomes a no-op one.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return with(logger, CommonFields(provider, model))
}

// MatchFields describes a scored pair: the subject, the counterpart and the
// shared context (trip or event) when known.
func MatchFields(userID, counterpartID, contextID string) []zap.Field {
	return stringFields(FieldUser, userID, FieldCounterpart, counterpartID, FieldContext, contextID)
}

// WithRunFields scopes logger to one batch run of userID within contextID.
func WithRunFields(logger *zap.Logger, runID, userID, contextID string) *zap.Logger {
	return with(logger, stringFields(FieldRun, runID, FieldUser, userID, FieldContext, contextID))
}
