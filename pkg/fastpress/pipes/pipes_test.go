package pipes

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/fastpress/pkg/fastpress"
)

func transform(t *testing.T, p fastpress.Pipe, value any) (any, *fastpress.StandardResponse) {
	t.Helper()
	out, err := p.Transform(value, nil)
	if err == nil {
		return out, nil
	}
	resp, ok := fastpress.AsResponse(err)
	require.True(t, ok, "expected a StandardResponse, got %v", err)
	return nil, resp
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"plain", "42", 42},
		{"negative", "-7", -7},
		{"leading spaces", "  15", 15},
		{"numeric prefix", "12px", 12},
		{"json number", float64(3.9), 3},
		{"int", 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, resp := transform(t, ParseInt(), tt.value)
			require.Nil(t, resp)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInt_Rejects(t *testing.T) {
	_, resp := transform(t, ParseInt(), "abc")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `Validation failed: "abc" is not an integer`, resp.Message)

	_, resp = transform(t, ParseInt(), nil)
	require.NotNil(t, resp)
	assert.Equal(t, `Validation failed: "" is not an integer`, resp.Message)

	_, resp = transform(t, ParseInt(), true)
	require.NotNil(t, resp)
	assert.Equal(t, `Validation failed: "true" is not an integer`, resp.Message)

	_, resp = transform(t, ParseInt(), `say "hi" \ bye`)
	require.NotNil(t, resp)
	assert.Equal(t, `Validation failed: "say "hi" \ bye" is not an integer`, resp.Message)
}

func TestParseFloat(t *testing.T) {
	got, resp := transform(t, ParseFloat(), "3.25kg")
	require.Nil(t, resp)
	assert.Equal(t, 3.25, got)

	got, resp = transform(t, ParseFloat(), 2)
	require.Nil(t, resp)
	assert.Equal(t, 2.0, got)

	_, resp = transform(t, ParseFloat(), "x1")
	require.NotNil(t, resp)
	assert.Equal(t, `Validation failed: "x1" is not a number`, resp.Message)
}

func TestParseBool(t *testing.T) {
	got, resp := transform(t, ParseBool(), "true")
	require.Nil(t, resp)
	assert.Equal(t, true, got)

	got, resp = transform(t, ParseBool(), "0")
	require.Nil(t, resp)
	assert.Equal(t, false, got)

	_, resp = transform(t, ParseBool(), "maybe")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()
	got, resp := transform(t, ParseUUID(), id.String())
	require.Nil(t, resp)
	assert.Equal(t, id, got)

	_, resp = transform(t, ParseUUID(), "not-a-uuid")
	require.NotNil(t, resp)
	assert.Equal(t, `Validation failed: "not-a-uuid" is not a valid UUID`, resp.Message)
}

func TestDefaultValueAndRequired(t *testing.T) {
	got, resp := transform(t, DefaultValue("10"), nil)
	require.Nil(t, resp)
	assert.Equal(t, "10", got)

	got, resp = transform(t, DefaultValue("10"), "3")
	require.Nil(t, resp)
	assert.Equal(t, "3", got)

	_, resp = transform(t, Required("Body"), nil)
	require.NotNil(t, resp)
	assert.Equal(t, "Body is required", resp.Message)
}

type signupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2"`
	Age      int    `json:"age" validate:"omitempty,gte=13"`
}

func TestValidate_Success(t *testing.T) {
	got, resp := transform(t, Validate[signupInput](), map[string]any{
		"email":    "ada@example.com",
		"password": "secret1",
		"name":     "Ada",
		"age":      "36",
	})
	require.Nil(t, resp)
	assert.Equal(t, signupInput{Email: "ada@example.com", Password: "secret1", Name: "Ada", Age: 36}, got)
}

func TestValidate_ReportsEveryField(t *testing.T) {
	_, resp := transform(t, Validate[signupInput](), map[string]any{
		"email":    "not-an-email",
		"password": "123",
	})
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", resp.Message)

	data, ok := resp.Data.(fastpress.ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, []fastpress.FieldError{
		{Path: "email", Message: "Email must be a valid email address"},
		{Path: "password", Message: "Password must be at least 6 characters"},
		{Path: "name", Message: "Name is required"},
	}, data.Errors)
}

func TestValidate_MissingBody(t *testing.T) {
	_, resp := transform(t, Validate[signupInput](), nil)
	require.NotNil(t, resp)
	assert.Equal(t, "Validation failed", resp.Message)
}

func TestValidate_WrongShape(t *testing.T) {
	_, resp := transform(t, Validate[signupInput](), []any{"a"})
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
