package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forecastArgs struct {
	City string `json:"city" description:"City to look up"`
	Days int    `json:"days,omitempty"`
	Unit string `json:"unit,omitempty" enum:"celsius,fahrenheit"`
	Wind *bool  `json:"wind"`
	Skip string `json:"-"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(forecastArgs{})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"city"}, schema["required"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	city := props["city"].(map[string]any)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City to look up", city["description"])

	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["wind"].(map[string]any)["type"])
	assert.Equal(t, []any{"celsius", "fahrenheit"}, props["unit"].(map[string]any)["enum"])

	_, hasSkip := props["Skip"]
	assert.False(t, hasSkip)
}

func TestCreateSchemaNonStruct(t *testing.T) {
	schema := CreateSchema("not a struct")

	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
	assert.NotContains(t, schema, "required")
}

func TestValidateParametersMissingRequired(t *testing.T) {
	schema := CreateSchema(forecastArgs{})

	err := ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "city", verr.Field)
	assert.Equal(t, "required field is missing", verr.Message)
	assert.Equal(t, "validation error for field 'city': required field is missing", err.Error())
}

func TestValidateParametersTypeMismatch(t *testing.T) {
	schema := CreateSchema(forecastArgs{})

	err := ValidateParameters(map[string]any{"city": 42}, schema)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "city", verr.Field)
}

func TestValidateParametersIntegerAcceptsWholeFloat(t *testing.T) {
	schema := CreateSchema(forecastArgs{})

	// JSON decoding yields float64 for every number.
	assert.NoError(t, ValidateParameters(map[string]any{"city": "Berlin", "days": float64(3)}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"city": "Berlin", "days": 3.5}, schema))
}

func TestValidateParametersEnum(t *testing.T) {
	schema := CreateSchema(forecastArgs{})

	assert.NoError(t, ValidateParameters(map[string]any{"city": "Berlin", "unit": "celsius"}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"city": "Berlin", "unit": "kelvin"}, schema))
}

func TestValidateParametersIgnoresUnknownFields(t *testing.T) {
	schema := CreateSchema(forecastArgs{})

	assert.NoError(t, ValidateParameters(map[string]any{"city": "Berlin", "verbose": true}, schema))
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(`{"city": "Berlin"}`)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", args["city"])

	args, err = ParseArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ParseArguments("{broken")
	require.ErrorContains(t, err, "invalid arguments")
}
