package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-email-change/internal/application/emailchange"
	"github.com/go-email-change/internal/domain"
	"github.com/go-email-change/internal/pkg/otp"
	"github.com/go-email-change/internal/pkg/validate"
	"github.com/go-email-change/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 12

// EmailChangeHandler exposes the send-otp and verify-otp steps of an email change.
type EmailChangeHandler struct {
	svc emailchange.Service
}

func NewEmailChangeHandler(svc emailchange.Service) *EmailChangeHandler {
	return &EmailChangeHandler{svc: svc}
}

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,number"`
}

// SendOTP issues a code to the requested address.
func (h *EmailChangeHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", domain.KindUnauthenticated)
		return
	}
	var body sendOTPRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), domain.KindInvalidEmail)
		return
	}
	body.Email = otp.NormalizeEmail(body.Email)
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), domain.KindInvalidEmail)
		return
	}
	if err := h.svc.RequestChange(r.Context(), session, body.Email); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

// VerifyOTP confirms a code and switches the caller to the new address.
func (h *EmailChangeHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", domain.KindUnauthenticated)
		return
	}
	var body verifyOTPRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), domain.KindInvalidEmail)
		return
	}
	body.Email = otp.NormalizeEmail(body.Email)
	if err := validate.Email(body.Email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), domain.KindInvalidEmail)
		return
	}
	// Codes are plain digits; anything else is rejected without spending an attempt.
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), domain.KindInvalidOTP)
		return
	}
	if err := h.svc.ConfirmChange(r.Context(), session, body.Email, body.OTP); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
