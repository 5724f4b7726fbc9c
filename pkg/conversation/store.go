package conversation

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
)

// Store holds session metadata and append-only message history. Sessions
// expire after the configured idle TTL.
type Store interface {
	Create(meta models.SessionMetadata) error
	Metadata(sessionID string) (*models.SessionMetadata, error)
	Get(sessionID string) ([]models.Message, error)
	Append(sessionID string, msg models.Message) error
}

type sessionEntry struct {
	mu      sync.Mutex
	meta    models.SessionMetadata
	history []models.Message
}

type cacheStore struct {
	cache  *gocache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStore creates a session store with idle-TTL eviction. Every append
// refreshes the session's expiration.
func NewStore(ttl, cleanupInterval time.Duration, logger zerolog.Logger) Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &cacheStore{
		cache:  gocache.New(ttl, cleanupInterval),
		ttl:    ttl,
		logger: logger,
	}
}

func (s *cacheStore) Create(meta models.SessionMetadata) error {
	if strings.TrimSpace(meta.ID) == "" {
		return errors.New(errors.CodeInvalidRequest, "session ID is required")
	}
	if strings.TrimSpace(meta.Name) == "" {
		return errors.New(errors.CodeInvalidRequest, "session name is required")
	}
	if !meta.UserType.Valid() {
		return errors.New(errors.CodeInvalidRequest, "user_type must be 'user' or 'admin'").
			WithDetail("user_type", string(meta.UserType))
	}

	entry := &sessionEntry{meta: meta}
	if err := s.cache.Add(meta.ID, entry, s.ttl); err != nil {
		return errors.New(errors.CodeAlreadyExists, "session already exists").
			WithDetail("session_id", meta.ID)
	}

	s.logger.Info().
		Str("session_id", meta.ID).
		Str("user_type", string(meta.UserType)).
		Msg("Session created")
	return nil
}

func (s *cacheStore) Metadata(sessionID string) (*models.SessionMetadata, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	meta := entry.meta
	return &meta, nil
}

func (s *cacheStore) Get(sessionID string) ([]models.Message, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	history := make([]models.Message, len(entry.history))
	copy(history, entry.history)
	return history, nil
}

func (s *cacheStore) Append(sessionID string, msg models.Message) error {
	entry, err := s.entry(sessionID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	entry.history = append(entry.history, msg)
	entry.mu.Unlock()

	// Re-set to refresh the idle TTL.
	s.cache.Set(sessionID, entry, s.ttl)
	return nil
}

func (s *cacheStore) entry(sessionID string) (*sessionEntry, error) {
	v, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	entry, ok := v.(*sessionEntry)
	if !ok {
		return nil, errors.New(errors.CodeInternal, "corrupt session entry")
	}
	return entry, nil
}
