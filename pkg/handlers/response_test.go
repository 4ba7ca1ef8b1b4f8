package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body), "body: %s", rec.Body.String())
	return body
}

func TestWriteStatusError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteStatusError(rec, http.StatusBadRequest, "bad input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeStatus(t, rec)
	assert.Equal(t, map[string]any{"status": "error", "message": "bad input"}, body)
}

func TestWriteJSON_Status200(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]string{"key": "value"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "value", decodeStatus(t, rec)["key"])
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusOK, map[string]float64{"x": math.NaN()})
	assert.Error(t, err)
}

func TestRequireMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	ok := requireMethod(rec, httptest.NewRequest(http.MethodGet, "/data/collection", nil), http.MethodPost)

	assert.False(t, ok)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Equal(t, "error", decodeStatus(t, rec)["status"])

	assert.True(t, requireMethod(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), http.MethodPost))
}
