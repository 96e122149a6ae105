// Package session is the single source of truth for who is logged in and as
// what. Views never read the persisted keys directly; every read goes through
// Store so the defensive parsing of the identity lives in one place.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/storage"
)

// Persisted keys. Both are absent when logged out.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var validate = validator.New()

// Snapshot is a consistent view of the session taken in one read
type Snapshot struct {
	Token    string
	Identity *models.Identity
}

// HasToken reports whether the snapshot is authenticated
func (s Snapshot) HasToken() bool {
	return s.Token != ""
}

// Role returns the identity's role, or "" when there is no identity
func (s Snapshot) Role() models.Role {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

// Store wraps a storage backend with the session operations
type Store struct {
	backend storage.Storage
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewStore creates a session store over backend
func NewStore(backend storage.Storage, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// Token returns the bearer token, if any
func (s *Store) Token() (string, bool) {
	token, ok, err := s.backend.Get(KeyToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read token")
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Identity returns the persisted identity. Unreadable, malformed or invalid
// data reads as absent, and so does an identity left behind without a token.
// Identity never writes; Snapshot, by contrast, clears both keys when the
// stored identity is malformed.
func (s *Store) Identity() (*models.Identity, bool) {
	if _, ok := s.Token(); !ok {
		return nil, false
	}

	raw, ok, err := s.backend.Get(KeyUser)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read identity")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	identity, err := parseIdentity(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Ignoring malformed identity")
		return nil, false
	}
	return identity, true
}

func parseIdentity(raw string) (*models.Identity, error) {
	var identity models.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("failed to parse identity: %w", err)
	}
	if err := validate.Struct(identity); err != nil {
		return nil, fmt.Errorf("invalid identity: %w", err)
	}
	return &identity, nil
}

// Snapshot reads token and identity together. A token whose stored identity
// is present but malformed is treated as a logged-out session, and the
// leftover keys are cleared.
func (s *Store) Snapshot() Snapshot {
	token, hasToken := s.Token()
	if !hasToken {
		return Snapshot{}
	}

	raw, present, err := s.backend.Get(KeyUser)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read identity")
		return Snapshot{Token: token}
	}
	if !present {
		return Snapshot{Token: token}
	}

	identity, err := parseIdentity(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stored identity is malformed, clearing session")
		if err := s.ClearSession(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to clear malformed session")
		}
		return Snapshot{}
	}

	return Snapshot{Token: token, Identity: identity}
}

// SetSession stores token and identity. If the identity cannot be written
// the token is removed again, so the session is never half written.
func (s *Store) SetSession(token string, identity models.Identity) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if err := validate.Struct(identity); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(KeyToken, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := s.backend.Set(KeyUser, string(data)); err != nil {
		if rbErr := s.backend.Remove(KeyToken); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("Failed to roll back token after identity write failure")
		}
		return fmt.Errorf("failed to store identity: %w", err)
	}

	s.logger.Info().
		Str("user_id", identity.ID.String()).
		Str("role", string(identity.Role)).
		Msg("Session started")
	return nil
}

// ClearSession removes token and identity
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokenErr := s.backend.Remove(KeyToken)
	userErr := s.backend.Remove(KeyUser)
	if tokenErr != nil {
		return fmt.Errorf("failed to remove token: %w", tokenErr)
	}
	if userErr != nil {
		return fmt.Errorf("failed to remove identity: %w", userErr)
	}

	s.logger.Info().Msg("Session cleared")
	return nil
}

// OnExternalChange calls fn whenever another store instance changes the
// token or the identity. It returns a function that stops the notifications.
func (s *Store) OnExternalChange(fn func()) func() {
	return s.backend.Subscribe(func(change storage.Change) {
		if change.Key != KeyToken && change.Key != KeyUser {
			return
		}
		fn()
	})
}
