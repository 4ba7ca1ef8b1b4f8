// Package handlers implements the HTTP routes served next to the MCP endpoint.
package handlers

import (
	"encoding/json"
	"net/http"
)

// Web responses carry a status discriminant, as chat clients expect.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// StatusResponse is the envelope of the collection and query endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	ID      *int64 `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteStatusError answers {status:"error", message} with statusCode.
func WriteStatusError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, StatusResponse{Status: statusError, Message: message})
}

// requireMethod answers 405 with an Allow header unless r uses method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	_ = WriteStatusError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
