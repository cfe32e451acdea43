package commandstructure

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidParameter marks parameter values a command cannot accept.
var ErrInvalidParameter = errors.New("invalid command parameter")

// GetStringParam safely extracts a string parameter from the params map
func GetStringParam(params map[string]any, key string, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// GetFloatParam extracts a finite float parameter. Numeric strings are accepted
// because query and form values arrive as text.
func GetFloatParam(params map[string]any, key string, defaultValue float64) (float64, error) {
	val, ok := params[key]
	if !ok || val == nil {
		return defaultValue, nil
	}

	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be numeric, got %q", ErrInvalidParameter, key, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidParameter, key, val)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameter, key, f)
	}
	return f, nil
}

// ValidateRequiredParams checks that all required parameters are present
func ValidateRequiredParams(params map[string]any, required []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter: %s", key)
		}
	}
	return nil
}
