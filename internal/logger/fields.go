package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldComponent is the structured log field key for the learning component name.
	FieldComponent = "component"
	// FieldDocument is the structured log field key for the component's state document path.
	FieldDocument = "document"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ComponentFields returns standard zap fields naming a learning component and
// its state document. Empty values are ignored to keep log entries compact.
func ComponentFields(component, document string) []zap.Field {
	return StringFields(
		StringField{Key: FieldComponent, Value: component},
		StringField{Key: FieldDocument, Value: document},
	)
}

// WithComponent attaches the component fields to the provided logger.
// If the logger is nil, a no-op logger is created to avoid panics.
func WithComponent(logger *zap.Logger, component, document string) *zap.Logger {
	fields := ComponentFields(component, document)
	return WithFields(logger, fields...)
}
