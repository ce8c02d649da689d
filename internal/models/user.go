package models

import "github.com/google/uuid"

// User is the identity attached to a request by the auth middleware.
type User struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	ExpiresAt int64     `json:"expires_at,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
