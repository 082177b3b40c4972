package domain

import "time"

// User is the slice of the host user record this service reads and writes.
type User struct {
	UserID        string    `json:"id" dynamodbav:"user_id"`
	Email         string    `json:"email" dynamodbav:"email"`
	EmailVerified bool      `json:"email_verified" dynamodbav:"email_verified"`
	Name          string    `json:"name,omitempty" dynamodbav:"name"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}
