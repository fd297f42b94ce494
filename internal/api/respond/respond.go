// Package respond holds the JSON helpers shared by the daybrief HTTP
// handlers. Two error vocabularies coexist: plain HTTP errors
// (ErrorResponse) for bad requests and pipeline failures, and connection
// statuses for the agent endpoints, which report an unusable provider with
// HTTP 200 so the client renders a reconnect prompt rather than an error
// page.
package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// connectionStatus reports a provider the user cannot currently reach.
type connectionStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error"`
}

// WriteJSON writes data with the given status code. An encoding failure is
// unrecoverable here since the status line is already out, so it is dropped.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an ErrorResponse with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// WriteNotConnected reports that no credential is stored for the provider.
func WriteNotConnected(w http.ResponseWriter, provider string) {
	WriteJSON(w, http.StatusOK, connectionStatus{
		Error: fmt.Sprintf("%s is not connected", provider),
	})
}

// WriteAuthExpired reports a stored credential the upstream API rejected.
func WriteAuthExpired(w http.ResponseWriter, provider string) {
	WriteJSON(w, http.StatusOK, connectionStatus{
		Error: fmt.Sprintf("%s authorization expired, please reconnect", provider),
	})
}
