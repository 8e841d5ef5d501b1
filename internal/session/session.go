package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gatewatch/internal/bus"
	"gatewatch/internal/events"
)

const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

// Credentials is the persisted authentication state for one backend.
type Credentials struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

// Store owns the session lifecycle: created at login, destroyed at logout or
// on an authentication failure. Credentials are persisted under the user
// config dir so a restarted console resumes the session.
type Store struct {
	logger *slog.Logger
	bus    bus.MessageBus
	path   string

	mu    sync.RWMutex
	creds Credentials
}

func NewStore(logger *slog.Logger, b bus.MessageBus, path string) *Store {
	if logger == nil {
		logger = slog.Default().With("component", "session")
	}

	return &Store{
		logger: logger,
		bus:    b,
		path:   path,
	}
}

// Load restores persisted credentials. A missing file is not an error.
func (s *Store) Load() error {
	cleanPath := filepath.Clean(s.path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read session: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return fmt.Errorf("decode session json: %w", err)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	return nil
}

// Set stores new credentials and persists them.
func (s *Store) Set(creds Credentials) error {
	creds.Token = strings.TrimSpace(creds.Token)
	if creds.Token == "" {
		return errors.New("session token is required")
	}
	if creds.IssuedAt.IsZero() {
		creds.IssuedAt = time.Now()
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	if err := s.persist(creds); err != nil {
		return err
	}
	s.logger.Info("session stored", "username", creds.Username)

	return nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds.Token
}

func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds.Username
}

func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Clear drops credentials, removes the persisted file, and publishes a
// session-expired event. Clearing an already-empty session is a no-op, so
// several racing 401 responses invalidate only once.
func (s *Store) Clear(reason string) {
	s.mu.Lock()
	had := s.creds.Token != ""
	s.creds = Credentials{}
	s.mu.Unlock()

	if !had {
		return
	}

	if err := os.Remove(filepath.Clean(s.path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove session file", "error", err)
	}

	s.logger.Info("session cleared", "reason", reason)
	if s.bus != nil {
		s.bus.Publish(events.TopicSessionExpired, events.SessionExpired{
			Reason: reason,
			At:     time.Now(),
		})
	}
}

func (s *Store) persist(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp session: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}
