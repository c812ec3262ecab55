// Package api implements the JSON HTTP handlers for the back office.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashgrove/millwork/internal/domain"
	"github.com/ashgrove/millwork/internal/middleware"
	"github.com/go-playground/validator/v10"
)

// validate is the shared request validator. Struct tags on the request DTOs
// define the rules.
var validate = validator.New(validator.WithRequiredStructEnabled())

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError maps a domain error to an HTTP status and writes a structured
// JSON error body. Validation errors include the per-field messages.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	if domain.IsValidationError(err) {
		code = domain.EINVALID
		message = "Request failed validation"
	}
	status := errorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	body := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if fields := domain.GetValidationFields(err); len(fields) > 0 {
		body["error"].(map[string]any)["fields"] = fields
	}
	respondJSON(w, status, body)
}

func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("api.decode", "Request body is not valid JSON")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return &domain.ValidationError{Op: "api.validate", Fields: fields}
		}
		return domain.Invalid("api.validate", "Request failed validation")
	}
	return nil
}
