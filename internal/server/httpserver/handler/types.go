package handler

import "time"

// TokenResponse is the response body for GET /csrf/token.
type TokenResponse struct {
	Token      string    `json:"token"`
	FormField  string    `json:"form_field"`
	HeaderName string    `json:"header_name"`
	IssuedAt   time.Time `json:"issued_at"`
}

// VerifyRequest is the optional JSON body for POST /csrf/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse is the response body for POST /csrf/verify.
type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Verification outcomes reported in VerifyResponse.Reason.
const (
	ReasonMissing   = "missing"
	ReasonMalformed = "malformed"
	ReasonMismatch  = "mismatch"
)

// SessionResponse is the response body for GET /session.
type SessionResponse struct {
	SessionID  string     `json:"session_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastActive time.Time  `json:"last_active"`
	KeyIssued  bool       `json:"key_issued"`
}

// RevokeResponse is the response body for POST /session/revoke.
type RevokeResponse struct {
	SessionID string `json:"session_id"`
	Revoked   bool   `json:"revoked"`
}

// HealthResponse is the response body for GET /health and GET /ready.
type HealthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version,omitempty"`
	Sessions *int      `json:"sessions,omitempty"`
	Time     time.Time `json:"time"`
}
