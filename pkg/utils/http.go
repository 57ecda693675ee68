package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatkeys/pkg/apperr"
)

// JSONError writes a JSON error response with the given status code and
// message. It ensures the Content-Type is set to application/json.
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONAppError writes a domain error with its taxonomy code so clients can
// distinguish not-authorized from not-found from not-ready-yet.
func JSONAppError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": ae.Message, "code": string(ae.Code)})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": string(apperr.CodeUnknown)})
}

// JSONWrite writes the provided value as JSON with the given status code.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}
