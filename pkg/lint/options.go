package lint

import "time"

// Options holds rule-specific configuration. Values come from YAML or
// JSON, so numbers may arrive as int, int64 or float64.
type Options map[string]any

// GetOption extracts a typed option with a default value.
func GetOption[T any](opts Options, key string, defaultVal T) T {
	if opts == nil {
		return defaultVal
	}
	v, ok := opts[key]
	if !ok {
		return defaultVal
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	return defaultVal
}

// GetInt extracts an int option, handling float64 from JSON.
func (o Options) GetInt(key string, defaultVal int) int {
	v, ok := o[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return defaultVal
	}
}

// GetString extracts a string option.
func (o Options) GetString(key string, defaultVal string) string {
	return GetOption(o, key, defaultVal)
}

// GetBool extracts a bool option.
func (o Options) GetBool(key string, defaultVal bool) bool {
	return GetOption(o, key, defaultVal)
}

// GetDuration extracts a duration written as a Go duration string ("5s").
func (o Options) GetDuration(key string, defaultVal time.Duration) time.Duration {
	switch v := o[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetStringSlice extracts a string slice option.
func (o Options) GetStringSlice(key string, defaultVal []string) []string {
	v, ok := o[key]
	if !ok {
		return defaultVal
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return defaultVal
	}
}

// merge returns a copy of o with other's entries on top.
func (o Options) merge(other Options) Options {
	if len(other) == 0 {
		return o
	}
	out := make(Options, len(o)+len(other))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
