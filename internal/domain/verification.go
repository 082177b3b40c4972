package domain

import "time"

// VerificationRecord is a pending challenge in the verification store.
// PK: identifier. ID is the opaque handle used for updates and deletes.
// Value is opaque to the store; the email-change flow packs "<code>:<attempts>" into it.
// ExpiresAt is also written as a Unix-seconds TTL attribute where the store supports one.
type VerificationRecord struct {
	ID         string    `json:"id" dynamodbav:"id"`
	Identifier string    `json:"identifier" dynamodbav:"identifier"`
	Value      string    `json:"value" dynamodbav:"value"`
	ExpiresAt  time.Time `json:"expires_at" dynamodbav:"expires_at_time"`
	TTL        int64     `json:"-" dynamodbav:"expires_at"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Expired reports whether the record's expiry lies strictly before now.
func (v *VerificationRecord) Expired(now time.Time) bool {
	return v.ExpiresAt.Before(now)
}
