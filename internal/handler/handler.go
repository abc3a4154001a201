package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// maxJSONBodyBytes caps JSON request bodies.
const maxJSONBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already sent; nothing useful can reach the client.
		return
	}
}

// writeError writes an error response with the given status, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service failure onto the HTTP error taxonomy:
// validation failures are 400, missing entities are 404 and anything else is
// an opaque 500.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		logger.Debug().Err(err).Int("status", http.StatusBadRequest).Msg("request rejected")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeValidation,
			Message: "request validation failed",
			Fields:  validationErr.Fields,
		})
		return
	}

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) && domainErr.NotFound() {
		writeError(w, http.StatusNotFound, domainErr.Code, domainErr.Message, logger)
		return
	}

	logger.Error().Err(err).Int("status", http.StatusInternalServerError).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
		Error:   model.ErrCodeInternalError,
		Message: "internal server error",
	})
}

// errInvalidJSON marks a body that could not be decoded at all.
var errInvalidJSON = errors.New("invalid JSON body")

// decodeJSON strictly decodes a single JSON document from the request body
// into dst. Unknown fields and mistyped values are reported as a
// *model.ValidationError; anything unparseable wraps errInvalidJSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return model.NewValidationError(field, "must be "+jsonTypeName(typeErr.Type))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return model.NewValidationError(field, "is not allowed")
		case errors.As(err, &maxErr):
			return model.NewValidationError("body", fmt.Sprintf("must be at most %d bytes", maxErr.Limit))
		default:
			return fmt.Errorf("%w: %v", errInvalidJSON, err)
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errInvalidJSON)
	}

	return nil
}

// writeDecodeError answers a decodeJSON failure.
func writeDecodeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	if errors.Is(err, errInvalidJSON) {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, err.Error(), logger)
		return
	}
	writeServiceError(w, err, logger)
}

func jsonTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Ptr:
		return jsonTypeName(t.Elem())
	default:
		return "an object"
	}
}
