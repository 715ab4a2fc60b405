// Package response writes JSON envelopes.
package response

import (
	"encoding/json"
	"net/http"
)

// Response is the JSON envelope of every reply.
type Response struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data"`
}

// WriteJSON writes status and the envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data any, err error) {
	var errorMsg string
	if err != nil {
		errorMsg = err.Error()
	}

	body, err := json.Marshal(Response{
		Message: message,
		Data:    data,
		Error:   errorMsg,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// OK writes a 200 envelope.
func OK(w http.ResponseWriter, message string, data any, err error) {
	WriteJSON(w, http.StatusOK, message, data, err)
}
