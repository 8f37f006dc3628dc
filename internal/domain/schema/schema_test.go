package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema() *Schema {
	return Strict(
		String("startCell", "Top-left cell").Req(),
		Array("values", "Rows of values", Array("", "", Scalar("", ""))).Req(),
	)
}

func TestValidate_Valid(t *testing.T) {
	args, err := Validate(writeSchema(), `{"startCell":"A1","values":[["x", 1, true, null]]}`)

	require.NoError(t, err)
	assert.Equal(t, "A1", args["startCell"])
	assert.Len(t, args["values"], 1)
}

func TestValidate_MissingRequired(t *testing.T) {
	_, err := Validate(writeSchema(), `{"startCell":"A1"}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "values", verr.Field)
	assert.Equal(t, `field "values": is required`, err.Error())
}

func TestValidate_NullCountsAsMissing(t *testing.T) {
	_, err := Validate(writeSchema(), `{"startCell":null,"values":[]}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "startCell", verr.Field)
}

func TestValidate_PartialJSON(t *testing.T) {
	_, err := Validate(writeSchema(), `{"startCell":"A1","val`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, verr.Field)
	assert.Contains(t, err.Error(), "valid JSON object")
}

func TestValidate_NotAnObject(t *testing.T) {
	_, err := Validate(writeSchema(), `[1,2]`)
	assert.EqualError(t, err, "arguments: must be a JSON object")
}

func TestValidate_EmptyStringIsEmptyObject(t *testing.T) {
	args, err := Validate(New(), "  ")

	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestValidate_NestedPath(t *testing.T) {
	_, err := Validate(writeSchema(), `{"startCell":"A1","values":[["ok"],["ok", {"a":1}]]}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "values[1][1]", verr.Field)
	assert.Contains(t, verr.Constraint, "got object")
}

func TestValidate_UnknownFieldStrict(t *testing.T) {
	_, err := Validate(writeSchema(), `{"startCell":"A1","values":[],"zeta":1,"alpha":2}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "alpha", verr.Field)
	assert.Equal(t, "is not a recognized field", verr.Constraint)
}

func TestValidate_UnknownFieldLenient(t *testing.T) {
	s := New(String("range", ""))

	_, err := Validate(s, `{"range":"A1:B2","extra":true}`)
	assert.NoError(t, err)
}

func TestValidate_EnumAndPattern(t *testing.T) {
	s := Strict(
		String("chartType", "").OneOf("Line", "Pie"),
		String("fontColor", "").Match(`^#[0-9A-Fa-f]{6}$`),
	)

	_, err := Validate(s, `{"chartType":"Donut"}`)
	assert.EqualError(t, err, `field "chartType": must be one of [Line, Pie]`)

	_, err = Validate(s, `{"fontColor":"red"}`)
	assert.EqualError(t, err, `field "fontColor": must match ^#[0-9A-Fa-f]{6}$`)

	_, err = Validate(s, `{"chartType":"Pie","fontColor":"#FF00aa"}`)
	assert.NoError(t, err)
}

func TestValidate_IntegerAndNestedObject(t *testing.T) {
	s := Strict(
		Array("sortFields", "", Object("", "",
			Integer("key", "").Req(),
			Boolean("ascending", ""),
		).Closed()).Req(),
	)

	_, err := Validate(s, `{"sortFields":[{"key":1.5}]}`)
	assert.EqualError(t, err, `field "sortFields[0].key": must be integer, got number`)

	_, err = Validate(s, `{"sortFields":[{"key":1,"color":"x"}]}`)
	assert.EqualError(t, err, `field "sortFields[0].color": is not a recognized field`)

	_, err = Validate(s, `{"sortFields":[{"key":2,"ascending":false}]}`)
	assert.NoError(t, err)
}

func TestValidateArgs_RequiredAfterRewrite(t *testing.T) {
	err := ValidateArgs(writeSchema(), map[string]any{"startCell": "B2"})
	assert.EqualError(t, err, `field "values": is required`)
}

func TestJSONSchema(t *testing.T) {
	s := Strict(
		String("dataRange", "Range to chart").Req(),
		String("chartType", "").OneOf("Line", "Pie").Req(),
		Object("criteria", "Free-form criteria"),
		Array("values", "", Array("", "", Scalar("", ""))),
	)

	got := s.JSONSchema()

	assert.Equal(t, "object", got["type"])
	assert.Equal(t, false, got["additionalProperties"])
	assert.Equal(t, []string{"dataRange", "chartType"}, got["required"])

	props := got["properties"].(map[string]interface{})
	chart := props["chartType"].(map[string]interface{})
	assert.Equal(t, []string{"Line", "Pie"}, chart["enum"])

	criteria := props["criteria"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "object", "description": "Free-form criteria"}, criteria)

	values := props["values"].(map[string]interface{})
	inner := values["items"].(map[string]interface{})["items"].(map[string]interface{})
	assert.Equal(t, []string{"string", "number", "boolean", "null"}, inner["type"])
}

func TestJSONSchema_NoRequiredIsEmptySlice(t *testing.T) {
	got := New().JSONSchema()
	assert.Equal(t, []string{}, got["required"])
	_, hasAdditional := got["additionalProperties"]
	assert.False(t, hasAdditional)
}
