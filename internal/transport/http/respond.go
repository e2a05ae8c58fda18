package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"cardauth/internal/domain"
	"cardauth/internal/observability/middleware"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("request body must be a JSON object")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// decode reads a JSON body into dst and runs its validation rules. An empty
// body decodes as the zero value so validation reports the missing fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	if v, ok := dst.(validation.Validatable); ok {
		return v.Validate()
	}
	return nil
}

// statusFor maps the domain error taxonomy onto HTTP. Anything unmapped is
// an internal error whose detail stays in the logs.
func statusFor(err error) (int, string) {
	var verrs validation.Errors
	var verr validation.Error
	switch {
	case errors.As(err, &verrs), errors.As(err, &verr), errors.Is(err, errBadJSON):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrMissingInvite),
		errors.Is(err, domain.ErrInvalidOrExpiredCode),
		errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, domain.ErrDuplicateEmail.Error()
	case errors.Is(err, domain.ErrEmailDelivery):
		return http.StatusInternalServerError, domain.ErrEmailDelivery.Error()
	case errors.Is(err, domain.ErrCodeGenerationExhausted):
		return http.StatusInternalServerError, domain.ErrCodeGenerationExhausted.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// rootMessage returns the message of the first domain sentinel in err's
// chain, so wrapped errors never leak their wrapping context.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrWeakPassword,
		domain.ErrMissingInvite,
		domain.ErrInvalidOrExpiredCode,
		domain.ErrQuotaExceeded,
		domain.ErrInvalidOrExpiredToken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	attrs := []any{
		"path", r.URL.Path,
		"status", status,
		"error", err,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		slog.DebugContext(r.Context(), "request rejected", attrs...)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
