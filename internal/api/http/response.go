package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/service"

	"github.com/go-playground/validator/v10"
)

// Envelope keys shared by every JSON response.
const (
	keyOK      = "ok"
	keyMessage = "message"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body[keyOK] = true
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{keyOK: false, keyMessage: message})
}

// writeError maps a service error onto a status code. Unexpected errors are
// logged and answered with a generic body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeMessage(w, status, "internal error")
		return
	}
	writeMessage(w, status, err.Error())
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSponsorNotFound):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrLoginNotConfigured), errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body into dst and runs struct validation when v is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, v *validator.Validate) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	if v != nil {
		if err := v.Struct(dst); err != nil {
			return err
		}
	}
	return nil
}

const maxBodyBytes = 1 << 20
