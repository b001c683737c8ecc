package params

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// ParseKeyValuePairs converts a slice of "key=value" strings into a map.
// Later pairs override earlier ones.
//
// Example:
//
//	params, err := ParseKeyValuePairs([]string{"region=eu", "limit=10"})
//	// Returns: map[string]string{"region": "eu", "limit": "10"}
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not in key=value format (example: --param region=eu): %w", pair, pgdal.ErrInvalidConfig)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("parameter has empty key: %q: %w", pair, pgdal.ErrInvalidConfig)
		}

		result[key] = value
	}

	return result, nil
}

// LoadEnvFile reads a parameter file in .env format (comments, quoting and
// export prefixes as understood by godotenv). Variables are not expanded
// from the process environment.
func LoadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("params file %s: %w", path, pgdal.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read params file %s: %w", path, err)
	}

	values, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %v: %w", path, err, pgdal.ErrInvalidConfig)
	}
	return values, nil
}

// Merge overlays maps left to right; later maps win.
func Merge(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// InferScalar types a CLI string for binding: int64, float64 or bool when it
// parses as one, otherwise the string unchanged. The literal "null" binds NULL.
// Quote a value ('42') to force it to stay a string.
func InferScalar(s string) any {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	if s == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// InferAll applies InferScalar to every value.
func InferAll(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = InferScalar(v)
	}
	return out
}
