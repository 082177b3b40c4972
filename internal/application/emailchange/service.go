package emailchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-email-change/internal/config"
	"github.com/go-email-change/internal/domain"
	"github.com/go-email-change/internal/pkg/id"
	"github.com/go-email-change/internal/pkg/otp"
	"github.com/go-email-change/internal/pkg/validate"
)

// VerificationStore is the key/value-with-expiry store that holds pending challenges.
// Create must wrap domain.ErrConflict when a record already exists for the identifier,
// and FindByIdentifier must wrap domain.ErrNotFound on a miss. UpdateValue and Delete
// address the record by identifier and only apply while its ID is unchanged.
type VerificationStore interface {
	Create(ctx context.Context, v *domain.VerificationRecord) error
	FindByIdentifier(ctx context.Context, identifier string) (*domain.VerificationRecord, error)
	UpdateValue(ctx context.Context, v *domain.VerificationRecord, value string) error
	Delete(ctx context.Context, v *domain.VerificationRecord) error
	DeleteByIdentifier(ctx context.Context, identifier string) error
}

// UserDirectory is the host user store. GetByEmail must wrap domain.ErrNotFound on a miss.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateEmail(ctx context.Context, userID, email string, verified bool) error
}

// Notifier delivers a code to the target address.
type Notifier interface {
	Notify(ctx context.Context, email, code string) error
}

type Service interface {
	RequestChange(ctx context.Context, caller *domain.Session, email string) error
	ConfirmChange(ctx context.Context, caller *domain.Session, email, code string) error
}

// ServiceDeps groups the collaborators of the email-change service.
// Now and GenerateCode default to the system clock and otp.GenerateCode.
type ServiceDeps struct {
	Verifications VerificationStore
	Users         UserDirectory
	Notifier      Notifier
	OTP           config.OTPConfig
	Now           func() time.Time
	GenerateCode  func(length int) (string, error)
}

type service struct {
	verifications VerificationStore
	users         UserDirectory
	notifier      Notifier
	cfg           config.OTPConfig
	now           func() time.Time
	generateCode  func(length int) (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		verifications: deps.Verifications,
		users:         deps.Users,
		notifier:      deps.Notifier,
		cfg:           deps.OTP.WithDefaults(),
		now:           deps.Now,
		generateCode:  deps.GenerateCode,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateCode == nil {
		s.generateCode = otp.GenerateCode
	}
	return s
}

func (s *service) RequestChange(ctx context.Context, caller *domain.Session, email string) error {
	if caller == nil || caller.UserID == "" {
		return fmt.Errorf("no active session: %w", domain.ErrUnauthenticated)
	}
	email = otp.NormalizeEmail(email)
	if err := validate.Email(email); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email is already in use: %w", domain.ErrEmailAlreadyExists)
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("lookup user by email: %w", err)
	}

	code, err := s.generateCode(s.cfg.Length)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	identifier := otp.Identifier(email)
	if err := s.createReplacing(ctx, identifier, code, now); err != nil {
		return err
	}

	slog.Info("email change code issued", "user_id", caller.UserID, "identifier", identifier)

	// The record stays valid if delivery fails; the caller may simply request again.
	return s.notifier.Notify(ctx, email, code)
}

// createReplacing writes a fresh record. On a conflict it removes the live
// record for identifier and retries exactly once.
func (s *service) createReplacing(ctx context.Context, identifier, code string, now time.Time) error {
	newRecord := func() *domain.VerificationRecord {
		expiresAt := otp.ExpiresAt(now, s.cfg.ExpirationMinutes)
		return &domain.VerificationRecord{
			ID:         id.New(),
			Identifier: identifier,
			Value:      otp.Encode(otp.Challenge{Code: code}),
			ExpiresAt:  expiresAt,
			TTL:        expiresAt.Unix(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	err := s.verifications.Create(ctx, newRecord())
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return err
	}

	slog.Info("replacing pending email change code", "identifier", identifier)
	if err := s.verifications.DeleteByIdentifier(ctx, identifier); err != nil {
		return fmt.Errorf("delete previous verification: %w", err)
	}
	return s.verifications.Create(ctx, newRecord())
}

func (s *service) ConfirmChange(ctx context.Context, caller *domain.Session, email, code string) error {
	if caller == nil || caller.UserID == "" {
		return fmt.Errorf("no active session: %w", domain.ErrUnauthenticated)
	}
	email = otp.NormalizeEmail(email)
	identifier := otp.Identifier(email)

	record, err := s.verifications.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no pending code for this email: %w", domain.ErrInvalidOTP)
		}
		return fmt.Errorf("find verification: %w", err)
	}

	if record.Expired(s.now()) {
		return fmt.Errorf("code has expired, request a new one: %w", domain.ErrOTPExpired)
	}

	challenge := otp.Decode(record.Value)
	if challenge.Exhausted(s.cfg.MaxAttempts) {
		return s.discard(ctx, caller, record)
	}

	if !challenge.Matches(code) {
		challenge.Attempts++
		if challenge.Exhausted(s.cfg.MaxAttempts) {
			return s.discard(ctx, caller, record)
		}
		// Read-then-write: concurrent confirmations may both observe the same count.
		if err := s.verifications.UpdateValue(ctx, record, otp.Encode(challenge)); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return superseded()
			}
			return fmt.Errorf("record failed attempt: %w", err)
		}
		slog.Info("email change code mismatch", "user_id", caller.UserID, "attempts", challenge.Attempts)
		return fmt.Errorf("invalid code: %w", domain.ErrInvalidOTP)
	}

	if err := s.verifications.Delete(ctx, record); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return superseded()
		}
		return fmt.Errorf("consume verification: %w", err)
	}
	if err := s.users.UpdateEmail(ctx, caller.UserID, email, true); err != nil {
		slog.Error("verification consumed but user email not updated", "user_id", caller.UserID, "err", err)
		return fmt.Errorf("update user email: %w", err)
	}
	slog.Info("email changed", "user_id", caller.UserID)
	return nil
}

func (s *service) discard(ctx context.Context, caller *domain.Session, record *domain.VerificationRecord) error {
	if err := s.verifications.Delete(ctx, record); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return superseded()
		}
		return fmt.Errorf("delete exhausted verification: %w", err)
	}
	slog.Warn("email change code exhausted", "user_id", caller.UserID, "identifier", record.Identifier)
	return fmt.Errorf("too many attempts, request a new code: %w", domain.ErrTooManyAttempts)
}

// superseded reports a record that was replaced or consumed between read and write.
func superseded() error {
	return fmt.Errorf("code was superseded by a newer request: %w", domain.ErrInvalidOTP)
}
