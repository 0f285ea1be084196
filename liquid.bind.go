package liquid

import (
	"gopkg.in/yaml.v3"
)

// BindPayload deserializes a structured-text variable payload into a
// canonical environment. The payload must be a mapping document; JSON
// and YAML are both accepted. A malformed payload or a non-mapping
// document fails with a bind error.
func BindPayload(payload []byte) (map[string]any, error) {
	var env map[string]any
	if err := yaml.Unmarshal(payload, &env); err != nil {
		return nil, NewMalformedInputError(err)
	}
	if env == nil {
		env = make(map[string]any)
	}
	return env, nil
}

// BindMap defensively copies a native environment so the render never
// observes later caller-side mutation. Nested maps and slices are
// copied recursively.
func BindMap(vars map[string]any) map[string]any {
	if vars == nil {
		return make(map[string]any)
	}
	env := make(map[string]any, len(vars))
	for key, value := range vars {
		env[key] = deepCopyValue(value)
	}
	return env
}

// BindKeyValues builds an environment from a flat, alternating
// key/value argument list. Keys must be strings; a non-string key fails
// with a bind error. A trailing key without a value is bound to nil
// rather than rejected - a deliberate, documented leniency.
func BindKeyValues(pairs ...any) (map[string]any, error) {
	env := make(map[string]any, (len(pairs)+1)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, NewInvalidKeyError(i, pairs[i])
		}
		if i+1 < len(pairs) {
			env[key] = pairs[i+1]
		} else {
			env[key] = nil
		}
	}
	return env, nil
}

// deepCopyValue copies the composite shapes a variable environment is
// built from. Scalars and unrecognized types are shared as-is.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, elem := range v {
			result[key] = deepCopyValue(elem)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, elem := range v {
			result[i] = deepCopyValue(elem)
		}
		return result
	default:
		return value
	}
}
