package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, ErrorResponse(rec, http.StatusNotFound, "not_found", "Evaluation run not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "not_found", body["error"])
	assert.Equal(t, "Evaluation run not found", body["message"])
}

func TestDecodeJSON(t *testing.T) {
	var dst ChatRequest

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_input":"hi"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "hi", dst.UserInput)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_input":"a"}{"user_input":"b"}`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_input":"`+strings.Repeat("x", maxBodyBytes)+`"}`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
}
