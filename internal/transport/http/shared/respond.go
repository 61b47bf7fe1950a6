package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "object-tracker/pkg/domain-errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes v with the given status. Encoding failures are swallowed:
// the status line is already on the wire by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded domain error onto its HTTP status and a JSON error
// body. Uncoded errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Code:  string(dErrors.CodeInternal),
		})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(domainErr.Code), errorResponse{
		Error: domainErr.Message,
		Code:  string(domainErr.Code),
	})
}
