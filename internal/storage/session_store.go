package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/pkg/crypto/adaptive"
)

const sessionPrefix = "session/"

// Record framing: the first byte says how the rest is encoded.
const (
	recordPlain  byte = 'j'
	recordSealed byte = 'e'
)

// ErrRecordSealed is returned when an encrypted record is read by a store
// that was opened without a cipher.
var ErrRecordSealed = errors.New("storage: session record is encrypted but no cipher is configured")

// SessionStore is a service.SessionRepository backed by Badger.
type SessionStore struct {
	engine *BadgerEngine
	cipher adaptive.Cipher
	now    func() time.Time
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithCipher seals every record written from now on. Plain records
// written earlier remain readable.
func WithCipher(c adaptive.Cipher) SessionStoreOption {
	return func(s *SessionStore) {
		s.cipher = c
	}
}

// WithStoreClock overrides the time source used for expiry checks.
func WithStoreClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		s.now = now
	}
}

// NewSessionStore creates a session repository on an open engine.
// The store does not own the engine; close it separately.
func NewSessionStore(engine *BadgerEngine, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new session. An existing ID yields ErrSessionConflict.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrMissingArgument.WithDetails("session is nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	err := s.engine.Update(ctx, func(txn *badger.Txn) error {
		key := sessionKey(session.ID)
		if _, err := txn.Get(key); err == nil {
			return domain.ErrSessionConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return s.put(txn, session)
	})
	if errors.Is(err, badger.ErrConflict) {
		return domain.ErrSessionConflict
	}
	return err
}

// Get loads a session. Expired records report ErrSessionExpired until
// Badger or the sweeper removes them.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var session *domain.Session
	err := s.engine.View(ctx, func(txn *badger.Txn) error {
		var err error
		session, err = s.load(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.expired(session) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Update replaces the stored record when its version equals
// expectedVersion. On success session.Version is expectedVersion+1.
func (s *SessionStore) Update(ctx context.Context, session *domain.Session, expectedVersion uint64) error {
	if session == nil {
		return domain.ErrMissingArgument.WithDetails("session is nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	next := session.Clone()
	next.Version = expectedVersion + 1

	err := s.engine.Update(ctx, func(txn *badger.Txn) error {
		current, err := s.load(txn, session.ID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return domain.ErrSessionVersionConflict
		}
		return s.put(txn, next)
	})
	if errors.Is(err, badger.ErrConflict) {
		return domain.ErrSessionVersionConflict
	}
	if err != nil {
		return err
	}
	session.Version = next.Version
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	err := s.engine.Update(ctx, func(txn *badger.Txn) error {
		key := sessionKey(id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrSessionNotFound
	}
	return err
}

// DeleteExpired removes records whose expiry has passed but which Badger
// still serves because its TTL has one-second resolution. Records that
// cannot be decoded are left alone and logged.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	var stale [][]byte
	err := s.engine.Scan(ctx, []byte(sessionPrefix), func(key, value []byte) bool {
		session, err := s.decode(key, value)
		if err != nil {
			s.engine.logger.Warn("skipping undecodable session record",
				"key", string(key), "error", err)
			return true
		}
		if s.expired(session) {
			stale = append(stale, key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, key := range stale {
		if err := s.engine.Delete(ctx, key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Count returns the number of live session records.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	return s.engine.CountPrefix(ctx, []byte(sessionPrefix))
}

func (s *SessionStore) load(txn *badger.Txn, id string) (*domain.Session, error) {
	key := sessionKey(id)
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return s.decode(key, value)
}

func (s *SessionStore) put(txn *badger.Txn, session *domain.Session) error {
	key := sessionKey(session.ID)
	value, err := s.encode(key, session)
	if err != nil {
		return err
	}
	entry := badger.NewEntry(key, value)
	if session.ExpiresAt > 0 {
		// Badger expiry is in whole seconds; round up so the record
		// outlives its logical expiry rather than vanishing early.
		entry.ExpiresAt = uint64((session.ExpiresAt + 999) / 1000)
	}
	return txn.SetEntry(entry)
}

func (s *SessionStore) encode(key []byte, session *domain.Session) ([]byte, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if s.cipher == nil {
		return append([]byte{recordPlain}, raw...), nil
	}
	sealed, err := s.cipher.Encrypt(raw, key)
	if err != nil {
		return nil, fmt.Errorf("seal session: %w", err)
	}
	return append([]byte{recordSealed}, sealed...), nil
}

func (s *SessionStore) decode(key, value []byte) (*domain.Session, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("decode session %q: empty record", key)
	}
	raw := value[1:]
	switch value[0] {
	case recordPlain:
	case recordSealed:
		if s.cipher == nil {
			return nil, ErrRecordSealed
		}
		opened, err := s.cipher.Decrypt(raw, key)
		if err != nil {
			return nil, fmt.Errorf("open session %q: %w", key, err)
		}
		raw = opened
	default:
		return nil, fmt.Errorf("decode session %q: unknown record format %q", key, value[0])
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", key, err)
	}
	if session.Data == nil {
		session.Data = make(map[string]string)
	}
	return &session, nil
}

func (s *SessionStore) expired(session *domain.Session) bool {
	return session.ExpiresAt > 0 && s.now().UnixMilli() > session.ExpiresAt
}

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}
