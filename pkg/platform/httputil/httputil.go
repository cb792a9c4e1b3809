// Package httputil maps domain errors to HTTP responses and provides JSON
// request/response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "unify/pkg/domain-errors"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// statusFor maps domain error codes to HTTP statuses. Malformed JSON or an
// empty body is a 400; a syntactically valid field that fails normalization
// is a 422; upstream embedding faults surface as gateway errors.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeInvalidPhone,
		dErrors.CodeInvalidEmail,
		dErrors.CodeInvalidDate,
		dErrors.CodeInvalidPostalCode,
		dErrors.CodeTrainingError:
		return http.StatusUnprocessableEntity
	case dErrors.CodeEmbeddingError:
		return http.StatusBadGateway
	case dErrors.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a coded error response. Internal errors hide their
// message so storage and upstream details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)
	body := errorBody{Error: string(code)}
	if status != http.StatusInternalServerError {
		body.Description = err.Error()
	}
	WriteJSON(w, status, body)
}

// Decode parses the request body into T. A failure is reported to the client
// as a bad request and the caller should return immediately.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		WriteError(w, dErrors.Wrap(dErrors.CodeBadRequest, "decode request body", err))
		return v, false
	}
	return v, true
}
