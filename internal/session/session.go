package session

import (
	"log/slog"
	"sync"

	"github.com/PrabinKa/ShipMate/internal/storage"
)

const (
	accessKey  = "access_credential"
	refreshKey = "refresh_credential"
)

// Credentials is the current access/refresh pair. Empty strings mean
// unauthenticated.
type Credentials struct {
	Access  string
	Refresh string
}

// Session holds the credential pair. It is mutated only by login success,
// refresh success, and explicit logout. Writers may race; last write wins.
// Credentials are persisted in the encrypted region so a restarted agent
// stays signed in.
type Session struct {
	mu     sync.RWMutex
	creds  Credentials
	region *storage.Region
	logger *slog.Logger
}

// Load creates a session, restoring any persisted credentials.
func Load(region *storage.Region, logger *slog.Logger) (*Session, error) {
	s := &Session{region: region, logger: logger}

	access, err := region.Get(accessKey)
	if err != nil {
		return nil, err
	}
	refresh, err := region.Get(refreshKey)
	if err != nil {
		return nil, err
	}

	s.creds = Credentials{Access: string(access), Refresh: string(refresh)}
	if s.creds.Access != "" {
		logger.Info("restored credential session")
	}
	return s, nil
}

// Get returns the current credential pair.
func (s *Session) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Authenticated reports whether an access credential is present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Access != ""
}

// SetAccess stores a new access credential.
func (s *Session) SetAccess(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Access = token
	return s.region.Set(accessKey, []byte(token))
}

// SetRefresh stores a new refresh credential.
func (s *Session) SetRefresh(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Refresh = token
	return s.region.Set(refreshKey, []byte(token))
}

// Clear wipes both credentials, forcing the unauthenticated state.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	if err := s.region.Delete(accessKey); err != nil {
		return err
	}
	return s.region.Delete(refreshKey)
}
