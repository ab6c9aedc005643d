// Package domain defines the core domain models for NoCSRF.
package domain

import (
	"crypto/rand"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Limits enforced by Session.Validate.
const (
	MaxIPAddressLength = 45
	MaxUserAgentLength = 512
	MaxDataKeyLength   = 64
	MaxDataValueLength = 1024
	MaxDataTotalSize   = 4096

	// SessionIDPrefix marks NoCSRF session IDs.
	SessionIDPrefix = "ncss-"

	sessionIDLength = len(SessionIDPrefix) + ulid.EncodedSize
)

// Session is a server-side session record. Data holds named session
// variables such as the per-session CSRF key. Timestamps are Unix
// milliseconds; a zero ExpiresAt never expires.
type Session struct {
	ID string `json:"id"`

	// IPAddress and UserAgent are captured when the session starts.
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
	LastAccessIP string `json:"last_access_ip"`

	CreatedAt  int64 `json:"created_at"`
	ExpiresAt  int64 `json:"expires_at"`
	LastActive int64 `json:"last_active"`

	Data map[string]string `json:"data"`

	// Version increases by one on every stored update. Repositories
	// reject an update whose expected version is stale.
	Version uint64 `json:"version"`
}

// NewSession returns an unsaved session with a fresh ID at version 1.
func NewSession() (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	created := time.Now().UnixMilli()
	s := &Session{ID: id, Data: map[string]string{}, Version: 1}
	s.CreatedAt, s.LastActive = created, created
	return s, nil
}

// GenerateSessionID returns "ncss-" followed by a lowercase ULID.
func GenerateSessionID() (string, error) {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsExpired reports whether the expiry has passed.
func (s *Session) IsExpired() bool {
	return s.ExpiresAt != 0 && time.Now().UnixMilli() > s.ExpiresAt
}

// TTLDuration is the time left before expiry, or 0 when the session has
// expired or never expires.
func (s *Session) TTLDuration() time.Duration {
	if s.ExpiresAt == 0 {
		return 0
	}
	left := time.Until(time.UnixMilli(s.ExpiresAt))
	return max(left, 0)
}

// SetExpiration moves the expiry to ttl from now. ttl <= 0 removes it.
func (s *Session) SetExpiration(ttl time.Duration) {
	s.ExpiresAt = 0
	if ttl > 0 {
		s.ExpiresAt = time.Now().Add(ttl).UnixMilli()
	}
}

// Touch records activity. An empty ip keeps the previous access IP.
func (s *Session) Touch(ip string) {
	s.LastActive = time.Now().UnixMilli()
	if ip != "" {
		s.LastAccessIP = ip
	}
}

// Get returns the named variable, or def when it is not set.
func (s *Session) Get(name, def string) string {
	v, ok := s.Data[name]
	if !ok {
		return def
	}
	return v
}

// Set stores a variable.
func (s *Session) Set(name, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[name] = value
}

func (s *Session) IncrVersion()             { s.Version++ }
func (s *Session) GetVersion() uint64       { return s.Version }
func (s *Session) SetVersion(v uint64)      { s.Version = v }
func (s *Session) CreatedAtTime() time.Time { return time.UnixMilli(s.CreatedAt) }

// ExpiresAtTime is the zero time when the session never expires.
func (s *Session) ExpiresAtTime() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.ExpiresAt)
}

// Validate checks the record against the size limits and reports every
// violation in a single NC-SESS-4001 error.
func (s *Session) Validate() error {
	var problems []string
	if !IsValidSessionID(s.ID) {
		problems = append(problems, fmt.Sprintf("id %q is not a session id", s.ID))
	}
	if n := len(s.IPAddress); n > MaxIPAddressLength {
		problems = append(problems, fmt.Sprintf("ip_address is %d bytes, limit %d", n, MaxIPAddressLength))
	}
	if n := len(s.UserAgent); n > MaxUserAgentLength {
		problems = append(problems, fmt.Sprintf("user_agent is %d bytes, limit %d", n, MaxUserAgentLength))
	}
	problems = append(problems, s.dataProblems()...)

	if len(problems) == 0 {
		return nil
	}
	return ErrSessionValidation.WithDetails(strings.Join(problems, "; "))
}

func (s *Session) dataProblems() []string {
	var problems []string
	total := 0
	for k, v := range s.Data {
		total += len(k) + len(v)
		if len(k) > MaxDataKeyLength {
			problems = append(problems, fmt.Sprintf("data key of %d bytes exceeds %d", len(k), MaxDataKeyLength))
		}
		if len(v) > MaxDataValueLength {
			problems = append(problems, fmt.Sprintf("data value of %d bytes exceeds %d", len(v), MaxDataValueLength))
		}
	}
	if total > MaxDataTotalSize {
		problems = append(problems, fmt.Sprintf("data totals %d bytes, limit %d", total, MaxDataTotalSize))
	}
	return problems
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	c := *s
	if s.Data != nil {
		c.Data = maps.Clone(s.Data)
	}
	return &c
}

// IsValidSessionID reports whether id, in any letter case, is a prefixed ULID.
func IsValidSessionID(id string) bool {
	if len(id) != sessionIDLength || !strings.EqualFold(id[:len(SessionIDPrefix)], SessionIDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(id[len(SessionIDPrefix):])
	return err == nil
}

// NormalizeSessionID lowercases a valid ID and returns "" for anything else.
func NormalizeSessionID(id string) string {
	if !IsValidSessionID(id) {
		return ""
	}
	return strings.ToLower(id)
}
