package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-email-change/internal/domain"
)

var statusByKind = map[string]int{
	domain.KindUnauthenticated:    http.StatusUnauthorized,
	domain.KindEmailAlreadyExists: http.StatusConflict,
	domain.KindInvalidOTP:         http.StatusBadRequest,
	domain.KindOTPExpired:         http.StatusGone,
	domain.KindTooManyAttempts:    http.StatusTooManyRequests,
	domain.KindInvalidEmail:       http.StatusUnprocessableEntity,
	domain.KindForbidden:          http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
}

// httpError writes err as an ErrorEnvelope. Infrastructure failures are logged
// and reported as a generic 500 so store details never reach the client.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", domain.KindInternal)
		return
	}
	writeError(w, status, err.Error(), kind)
}
