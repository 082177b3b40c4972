package emailchange

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-email-change/internal/config"
	"github.com/go-email-change/internal/domain"
	"github.com/go-email-change/internal/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory VerificationStore keyed by identifier.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]domain.VerificationRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.VerificationRecord)}
}

func (s *fakeStore) Create(_ context.Context, v *domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[v.Identifier]; ok {
		return fmt.Errorf("identifier %s: %w", v.Identifier, domain.ErrConflict)
	}
	s.records[v.Identifier] = *v
	return nil
}

func (s *fakeStore) FindByIdentifier(_ context.Context, identifier string) (*domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[identifier]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (s *fakeStore) UpdateValue(_ context.Context, rec *domain.VerificationRecord, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[rec.Identifier]
	if !ok || v.ID != rec.ID {
		return domain.ErrNotFound
	}
	v.Value = value
	s.records[rec.Identifier] = v
	return nil
}

func (s *fakeStore) Delete(_ context.Context, rec *domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[rec.Identifier]
	if !ok {
		return nil
	}
	if v.ID != rec.ID {
		return domain.ErrNotFound
	}
	delete(s.records, rec.Identifier)
	return nil
}

func (s *fakeStore) DeleteByIdentifier(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}

func (s *fakeStore) get(identifier string) (domain.VerificationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[identifier]
	return v, ok
}

// fakeDirectory is an in-memory UserDirectory.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (d *fakeDirectory) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (d *fakeDirectory) UpdateEmail(_ context.Context, userID, email string, verified bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Email = email
	u.EmailVerified = verified
	return nil
}

// outbox records every code handed to the notifier.
type outbox struct {
	mu    sync.Mutex
	codes []string
}

func (o *outbox) Notify(_ context.Context, _, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, code)
	return nil
}

func (o *outbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[len(o.codes)-1]
}

type harness struct {
	svc   Service
	store *fakeStore
	users *fakeDirectory
	box   *outbox
	now   time.Time
}

func newHarness(codes ...string) *harness {
	h := &harness{
		store: newFakeStore(),
		users: &fakeDirectory{users: map[string]*domain.User{
			"u1": {UserID: "u1", Email: "old@example.com"},
			"u2": {UserID: "u2", Email: "taken@example.com", EmailVerified: true},
		}},
		box: &outbox{},
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	deps := ServiceDeps{
		Verifications: h.store,
		Users:         h.users,
		Notifier:      h.box,
		OTP:           config.OTPConfig{Length: 6, ExpirationMinutes: 5, MaxAttempts: 3},
		Now:           func() time.Time { return h.now },
	}
	if len(codes) > 0 {
		next := 0
		deps.GenerateCode = func(int) (string, error) {
			c := codes[next%len(codes)]
			next++
			return c, nil
		}
	}
	h.svc = NewService(deps)
	return h
}

var alice = &domain.Session{SessionID: "s1", UserID: "u1"}

func TestScenario_RequestThenVerify(t *testing.T) {
	h := newHarness("042613")
	ctx := context.Background()

	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))
	assert.Equal(t, "042613", h.box.last())

	require.NoError(t, h.svc.ConfirmChange(ctx, alice, "new@example.com", "042613"))

	assert.Equal(t, "new@example.com", h.users.users["u1"].Email)
	assert.True(t, h.users.users["u1"].EmailVerified)
	_, ok := h.store.get(otp.Identifier("new@example.com"))
	assert.False(t, ok, "record must be consumed")
}

func TestScenario_EmailOwnedByAnotherUser(t *testing.T) {
	h := newHarness()

	err := h.svc.RequestChange(context.Background(), alice, "taken@example.com")

	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	assert.Equal(t, domain.KindEmailAlreadyExists, domain.Kind(err))
	_, ok := h.store.get(otp.Identifier("taken@example.com"))
	assert.False(t, ok)
	assert.Empty(t, h.box.codes)
}

func TestScenario_VerifyAfterExpiry(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))
	code := h.box.last()

	h.now = h.now.Add(5*time.Minute + time.Second)
	err := h.svc.ConfirmChange(ctx, alice, "new@example.com", code)

	assert.ErrorIs(t, err, domain.ErrOTPExpired)
	assert.Equal(t, "old@example.com", h.users.users["u1"].Email)
}

func TestScenario_ThreeWrongCodes(t *testing.T) {
	h := newHarness("042613")
	ctx := context.Background()
	id := otp.Identifier("new@example.com")

	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))

	for attempt := 1; attempt <= 2; attempt++ {
		err := h.svc.ConfirmChange(ctx, alice, "new@example.com", "111111")
		require.ErrorIs(t, err, domain.ErrInvalidOTP)
		rec, ok := h.store.get(id)
		require.True(t, ok)
		assert.Equal(t, attempt, otp.Decode(rec.Value).Attempts)
	}

	err := h.svc.ConfirmChange(ctx, alice, "new@example.com", "111111")
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
	_, ok := h.store.get(id)
	assert.False(t, ok, "record must be deleted once attempts are exhausted")

	// The correct code no longer helps.
	err = h.svc.ConfirmChange(ctx, alice, "new@example.com", "042613")
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	assert.Equal(t, "old@example.com", h.users.users["u1"].Email)
}

func TestScenario_SecondRequestInvalidatesFirstCode(t *testing.T) {
	h := newHarness("111111", "222222")
	ctx := context.Background()

	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))
	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))

	err := h.svc.ConfirmChange(ctx, alice, "new@example.com", "111111")
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)

	require.NoError(t, h.svc.ConfirmChange(ctx, alice, "new@example.com", "222222"))
	assert.Equal(t, "new@example.com", h.users.users["u1"].Email)
}

func TestScenario_CodeIsSingleUse(t *testing.T) {
	h := newHarness("042613")
	ctx := context.Background()

	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))
	require.NoError(t, h.svc.ConfirmChange(ctx, alice, "new@example.com", "042613"))

	err := h.svc.ConfirmChange(ctx, alice, "new@example.com", "042613")
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestScenario_RealGeneratorRoundTrip(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.svc.RequestChange(ctx, alice, "new@example.com"))
	code := h.box.last()
	assert.Len(t, code, 6)

	require.NoError(t, h.svc.ConfirmChange(ctx, alice, "new@example.com", code))
}
