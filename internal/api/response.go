package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/metrics"
	"github.com/erazemk/achados/internal/validate"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// validationResponse is the body of a 400 caused by field rules. Fields maps
// each offending field to its localized messages.
type validationResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// validationError writes field errors in the request's language and counts
// them per field.
func validationError(w http.ResponseWriter, r *http.Request, errs validate.Errors, operation string) {
	tag := i18n.Resolve(r)

	fields := make([]string, 0, len(errs))
	for field := range errs {
		metrics.IncValidationRejection(field, operation)
		fields = append(fields, field)
	}
	slog.Info("payload rejected", "operation", operation, "fields", fields, "path", r.URL.Path)

	w.Header().Set("Content-Language", tag.String())
	jsonResponse(w, http.StatusBadRequest, validationResponse{
		Error:  i18n.Translate(tag, i18n.KeyValidationFailed),
		Fields: errs.Localize(tag),
	})
}
