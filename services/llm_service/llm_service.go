package llm_service

import (
	"context"
	"strconv"
)

// LLMService sends one prompt to a model and returns its text output.
// config carries per-call parameters (see the Config* keys); credentials
// and model names belong to the service.
type LLMService interface {
	CallLLM(ctx context.Context, config map[string]interface{}, prompt string) (string, error)
}

// Per-call config keys understood by every service.
const (
	ConfigTemperature = "temperature"
	ConfigMaxTokens   = "max_tokens"
	// ConfigResponseSchema holds a map[string]interface{} JSON schema the
	// output must follow. Services that cannot enforce a schema fall back to
	// plain JSON mode.
	ConfigResponseSchema = "response_schema"
	ConfigSchemaName     = "schema_name"
)

// Helper function to safely parse float values
func safeParseFloat(value interface{}, defaultValue float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultValue
}

func responseSchema(config map[string]interface{}) (map[string]interface{}, string, bool) {
	schema, ok := config[ConfigResponseSchema].(map[string]interface{})
	if !ok || len(schema) == 0 {
		return nil, "", false
	}
	name, _ := config[ConfigSchemaName].(string)
	if name == "" {
		name = "response"
	}
	return schema, name, true
}
