package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// Machine-readable error kinds returned to API clients.
const (
	KindUnauthenticated    = "UNAUTHENTICATED"
	KindEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	KindInvalidOTP         = "INVALID_OTP"
	KindOTPExpired         = "OTP_EXPIRED"
	KindTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	KindInvalidEmail       = "INVALID_EMAIL"
	KindForbidden          = "FORBIDDEN"
	KindNotFound           = "NOT_FOUND"
	KindInternal           = "INTERNAL"
)

// Kind maps err to its machine-readable kind. Errors that do not wrap a
// domain sentinel are infrastructure failures and map to KindInternal.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrUnauthorized):
		return KindUnauthenticated
	case errors.Is(err, ErrEmailAlreadyExists):
		return KindEmailAlreadyExists
	case errors.Is(err, ErrInvalidOTP):
		return KindInvalidOTP
	case errors.Is(err, ErrOTPExpired):
		return KindOTPExpired
	case errors.Is(err, ErrTooManyAttempts):
		return KindTooManyAttempts
	case errors.Is(err, ErrBadRequest):
		return KindInvalidEmail
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
