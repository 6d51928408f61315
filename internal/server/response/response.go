// Package response writes the uniform JSON envelope used by every endpoint.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/productreviews/pkg/api"
)

// MalformedJSONMessage is returned when a request body is not valid JSON.
const MalformedJSONMessage = "Oops! There’s an issue with your JSON. Please check it and try again."

// Write sends resp with resp.Status as the HTTP status code.
func Write(w http.ResponseWriter, resp api.Response) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	return json.NewEncoder(w).Encode(resp)
}

// Message sends an envelope without payload.
func Message(w http.ResponseWriter, status int, message string) error {
	return Write(w, api.Response{Status: status, Message: message})
}

// Data sends an envelope with payload.
func Data(w http.ResponseWriter, status int, message string, data any) error {
	return Write(w, api.Response{Status: status, Message: message, Data: data})
}

// Error sends an envelope carrying the error text.
func Error(w http.ResponseWriter, status int, message string, err error) error {
	resp := api.Response{Status: status, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	return Write(w, resp)
}
