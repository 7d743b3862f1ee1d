package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Violation is a single failed constraint on one field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError enumerates every violated constraint, not just the first,
// so the admin layer can render all of them at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "config validation failed: " + strings.Join(msgs, "; ")
}

// Engine performs the two-way transform between wire-level config values and
// their persisted representation for one schema definition. Every plugin
// category shares this implementation instead of bespoke per-plugin
// validation.
type Engine struct {
	cipher *secretCipher
	logger *zap.Logger
}

func NewEngine(encryptionKey string, logger *zap.Logger) (*Engine, error) {
	c, err := newSecretCipher(encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "schema engine")
	}
	return &Engine{cipher: c, logger: logger}, nil
}

// ProcessInbound validates values against def and encrypts every secret
// field, returning the map ready for persistence. Validation failures are
// reported together in a *ValidationError; encryption failures on the write
// path are fatal.
func (e *Engine) ProcessInbound(def Definition, values Values) (Values, error) {
	var violations []Violation
	for name, spec := range def {
		value, present := values[name]
		if !present || value == nil {
			if spec.Required {
				violations = append(violations, Violation{Field: name, Message: "required field missing"})
			}
			continue
		}
		violations = append(violations, validateField(name, spec, value)...)
	}
	for name := range values {
		if _, known := def[name]; !known {
			violations = append(violations, Violation{Field: name, Message: "field not declared in schema"})
		}
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	out := make(Values, len(values))
	for name, value := range values {
		spec := def[name]
		if spec.Type == TypeSecret {
			plaintext, ok := value.(string)
			if !ok {
				return nil, &ValidationError{Violations: []Violation{{Field: name, Message: "secret value must be a string"}}}
			}
			encrypted, err := e.cipher.Encrypt(plaintext)
			if err != nil {
				return nil, errors.Wrapf(err, "encrypt field %s", name)
			}
			out[name] = encrypted
			continue
		}
		out[name] = value
	}
	return out, nil
}

// ProcessOutbound decrypts secret fields for presentation. A decryption
// failure (for example after a key rotation) is logged and the stored value
// is returned as-is rather than locking the caller out of its config.
func (e *Engine) ProcessOutbound(def Definition, stored Values) Values {
	out := make(Values, len(stored))
	for name, value := range stored {
		spec, known := def[name]
		if !known || spec.Type != TypeSecret {
			out[name] = value
			continue
		}
		encoded, ok := value.(string)
		if !ok {
			out[name] = value
			continue
		}
		plaintext, err := e.cipher.Decrypt(encoded)
		if err != nil {
			e.logger.Warn("failed to decrypt secret field, returning stored value",
				zap.String("field", name), zap.Error(err))
			out[name] = value
			continue
		}
		out[name] = plaintext
	}
	return out
}

func validateField(name string, spec FieldSpec, value interface{}) []Violation {
	var violations []Violation
	switch spec.Type {
	case TypeString, TypeSecret:
		s, ok := value.(string)
		if !ok {
			return []Violation{{Field: name, Message: "expected a string"}}
		}
		if spec.MinLength > 0 && len(s) < spec.MinLength {
			violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("shorter than minimum length %d", spec.MinLength)})
		}
		if spec.MaxLength > 0 && len(s) > spec.MaxLength {
			violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("longer than maximum length %d", spec.MaxLength)})
		}
		if len(spec.Enum) > 0 && !contains(spec.Enum, s) {
			violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("must be one of %s", strings.Join(spec.Enum, ", "))})
		}
	case TypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			violations = append(violations, Violation{Field: name, Message: "expected a number"})
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			violations = append(violations, Violation{Field: name, Message: "expected a boolean"})
		}
	case TypeArray:
		items, ok := value.([]interface{})
		if !ok {
			return []Violation{{Field: name, Message: "expected an array"}}
		}
		if spec.Items != nil {
			for i, item := range items {
				violations = append(violations, validateField(fmt.Sprintf("%s[%d]", name, i), *spec.Items, item)...)
			}
		}
	case TypeObject:
		obj, ok := value.(map[string]interface{})
		if !ok {
			return []Violation{{Field: name, Message: "expected an object"}}
		}
		for propName, propSpec := range spec.Properties {
			propValue, present := obj[propName]
			if !present {
				if propSpec.Required {
					violations = append(violations, Violation{Field: name + "." + propName, Message: "required field missing"})
				}
				continue
			}
			violations = append(violations, validateField(name+"."+propName, propSpec, propValue)...)
		}
	default:
		violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("unknown field type %q", spec.Type)})
	}
	return violations
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
