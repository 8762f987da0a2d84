package fastpress

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardResponse_JSONShape(t *testing.T) {
	b, err := json.Marshal(NotFound("Item not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":404,"message":"Item not found"}`, string(b))

	b, err = json.Marshal(OK("Found 2 items in items table", []int{1, 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"message":"Found 2 items in items table","data":[1,2]}`, string(b))

	b, err = json.Marshal(ValidationFailed([]FieldError{{Path: "email", Message: "Email is required"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":400,"message":"Validation failed","data":{"errors":[{"path":"email","message":"Email is required"}]}}`, string(b))
}

func TestStandardResponse_Error(t *testing.T) {
	assert.Equal(t, "403 Forbidden", Forbidden("Forbidden").Error())
	assert.Equal(t, "204 No Content", NewResponse(204, "").Error())
}

func TestAsResponse(t *testing.T) {
	resp, ok := AsResponse(Unauthorized("No token provided"))
	require.True(t, ok)
	assert.Equal(t, 401, resp.StatusCode)

	wrapped := fmt.Errorf("loading item: %w", NotFound("Item not found"))
	resp, ok = AsResponse(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Item not found", resp.Message)

	_, ok = AsResponse(fmt.Errorf("boom"))
	assert.False(t, ok)

	_, ok = AsResponse(nil)
	assert.False(t, ok)
}
