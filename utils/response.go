package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"recipehub/models"

	"github.com/rs/zerolog/log"
)

// Response is the envelope every endpoint replies with.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Meta       any    `json:"meta,omitempty"`
	Errors     any    `json:"errors,omitempty"`
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func SendResponse(w http.ResponseWriter, status int, data any, message string) {
	RespondWithJSON(w, status, Response{
		Success:    status < http.StatusBadRequest,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func SendPaginated(w http.ResponseWriter, status int, data any, meta any, message string) {
	RespondWithJSON(w, status, Response{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
		Meta:       meta,
	})
}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, Response{StatusCode: code, Message: msg})
}

// WriteError translates err into the envelope. Internal errors are logged
// and their message replaced.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	status := appErr.Status()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	RespondWithJSON(w, status, Response{
		StatusCode: status,
		Message:    appErr.Message,
		Errors:     appErr.Details,
	})
}

// DecodeJSON reads the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return models.NewValidationError("Request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("Invalid request body", err.Error())
	}
	return nil
}
