package util

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// ValidationError describes a single argument that failed schema validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ParseArguments decodes the serialized argument string a model produced into
// a map. An empty string decodes to an empty map; anything that is not a JSON
// object is a decode error.
func ParseArguments(arguments string) (map[string]any, error) {
	if strings.TrimSpace(arguments) == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	return args, nil
}

// CreateSchema derives an object schema from a struct's exported fields.
// Names follow the json tag, the description tag becomes the field
// description and a comma separated enum tag becomes an enum list. A field is
// required unless it is a pointer or its json tag carries omitempty.
func CreateSchema(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := map[string]any{}
	required := []string{}

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)

			name, optional, skip := jsonField(field)
			if skip {
				continue
			}

			properties[name] = fieldSchema(field)

			if !optional {
				required = append(required, name)
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// jsonField resolves the schema name for a struct field and whether the field
// is optional. skip reports unexported fields and json:"-".
func jsonField(field reflect.StructField) (name string, optional, skip bool) {
	if !field.IsExported() {
		return "", false, true
	}

	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name

	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}

	optional = field.Type.Kind() == reflect.Ptr
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "omitempty" {
			optional = true
		}
	}

	return name, optional, false
}

func fieldSchema(field reflect.StructField) map[string]any {
	fs := map[string]any{"type": jsonType(field.Type)}

	if desc := field.Tag.Get("description"); desc != "" {
		fs["description"] = desc
	}

	if enum := field.Tag.Get("enum"); enum != "" {
		values := strings.Split(enum, ",")
		allowed := make([]any, len(values))
		for i, v := range values {
			allowed[i] = strings.TrimSpace(v)
		}
		fs["enum"] = allowed
	}

	return fs
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

// ValidateParameters checks params against an object schema: required fields
// must be present, values must match their declared type and enum membership.
// Fields the schema does not know pass through untouched.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range requiredFields(schema) {
		if _, exists := params[name]; !exists {
			return &ValidationError{
				Field:   name,
				Message: "required field is missing",
			}
		}
	}

	properties, _ := schema["properties"].(map[string]any)

	for name, value := range params {
		propMap, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}

		want, _ := propMap["type"].(string)
		if !typeMatches(value, want) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", want, value),
			}
		}

		if enum, ok := propMap["enum"]; ok && !isAllowedValue(value, enum) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("value %v is not one of the allowed values", value),
			}
		}
	}

	return nil
}

// requiredFields reads the required list from a schema, tolerating both the
// []string shape produced locally and the []any shape a JSON decode yields.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		fields := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				fields = append(fields, name)
			}
		}
		return fields
	default:
		return nil
	}
}

// isAllowedValue checks membership in an enum list of either []any or []string shape.
func isAllowedValue(value any, enum any) bool {
	switch allowed := enum.(type) {
	case []any:
		for _, a := range allowed {
			if a == value {
				return true
			}
		}
		return false
	case []string:
		s, ok := value.(string)
		if !ok {
			return false
		}
		for _, a := range allowed {
			if a == s {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func typeMatches(value any, want string) bool {
	if value == nil {
		return true
	}

	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		return isInteger(value)
	case "number":
		return isNumber(value)
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// isInteger accepts Go integer kinds plus the whole valued float64 a JSON
// decode produces for integral numbers.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case float32, float64:
		return true
	default:
		return isInteger(value)
	}
}
