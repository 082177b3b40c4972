package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-email-change/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultRetention keeps a record readable for a while after it expires so a
// late confirmation reports an expired code instead of an unknown one.
const DefaultRetention = time.Hour

// VerificationStore keeps pending challenges as JSON strings under
// "verification:<identifier>". Redis expiry only reaps dead records; the
// email-change flow still checks ExpiresAt itself.
type VerificationStore struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewVerificationStore(client redis.Cmdable, retention time.Duration) *VerificationStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &VerificationStore{
		client:    client,
		prefix:    "verification:",
		retention: retention,
		now:       time.Now,
	}
}

func (s *VerificationStore) key(identifier string) string {
	return s.prefix + identifier
}

// ttl is the Redis lifetime for a record expiring at expiresAt.
func (s *VerificationStore) ttl(expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(s.now()) + s.retention
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Create stores v with SET NX; an existing key is a conflict.
func (s *VerificationStore) Create(ctx context.Context, v *domain.VerificationRecord) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(v.Identifier), b, s.ttl(v.ExpiresAt)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("verification %s already exists: %w", v.Identifier, domain.ErrConflict)
	}
	return nil
}

func (s *VerificationStore) FindByIdentifier(ctx context.Context, identifier string) (*domain.VerificationRecord, error) {
	raw, err := s.client.Get(ctx, s.key(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var v domain.VerificationRecord
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode verification %s: %w", identifier, err)
	}
	return &v, nil
}

// UpdateValue rewrites the value while the stored record still carries v.ID.
// The read and the write are separate commands; concurrent updates race.
func (s *VerificationStore) UpdateValue(ctx context.Context, v *domain.VerificationRecord, value string) error {
	cur, err := s.current(ctx, v)
	if err != nil {
		return err
	}
	cur.Value = value
	cur.UpdatedAt = s.now().UTC()
	b, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	return s.client.Set(ctx, s.key(v.Identifier), b, redis.KeepTTL).Err()
}

// Delete removes the record while it still carries v.ID. A missing record counts as deleted.
func (s *VerificationStore) Delete(ctx context.Context, v *domain.VerificationRecord) error {
	cur, err := s.FindByIdentifier(ctx, v.Identifier)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if cur.ID != v.ID {
		return fmt.Errorf("verification %s was replaced: %w", v.ID, domain.ErrNotFound)
	}
	return s.client.Del(ctx, s.key(v.Identifier)).Err()
}

func (s *VerificationStore) DeleteByIdentifier(ctx context.Context, identifier string) error {
	return s.client.Del(ctx, s.key(identifier)).Err()
}

func (s *VerificationStore) current(ctx context.Context, v *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	cur, err := s.FindByIdentifier(ctx, v.Identifier)
	if err != nil {
		return nil, err
	}
	if cur.ID != v.ID {
		return nil, fmt.Errorf("verification %s was replaced: %w", v.ID, domain.ErrNotFound)
	}
	return cur, nil
}
