package domain

import "time"

// Session is the authenticated caller. It is built from verified bearer
// token claims and, when a session table is configured, checked against it.
type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Role      string    `json:"role,omitempty" dynamodbav:"role"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
