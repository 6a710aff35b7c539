package store

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/kv"
	"github.com/shuaib-ai/shuaib/internal/models"
)

// slotKey is the single slot in the local store holding the serialized
// session collection. Carried over from the v2 web client so existing
// installations keep their history key.
const slotKey = "shuaib_v2_sessions"

const untitledSession = "নতুন চ্যাট"

// titleLimit is how many characters of the first user message become the
// session title.
const titleLimit = 35

var (
	ErrSessionNotFound = errors.New("store: session not found")
	ErrMessageNotFound = errors.New("store: message not found")
)

// Slot is the persistence surface the store writes the collection through.
// Get reports a missing key as kv.ErrNotFound. *kv.Store satisfies it.
type Slot interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// Store holds the session collection, newest-created first, plus the
// current-session pointer. Every mutation serializes the full collection
// back to the slot; an empty collection removes the stored entry instead.
type Store struct {
	mu       sync.RWMutex
	slot     Slot
	logger   *zap.Logger
	now      func() time.Time
	sessions []*models.Session
	current  string // session ID, empty when no session is current
}

func New(slot Slot, logger *zap.Logger) *Store {
	return &Store{
		slot:   slot,
		logger: logger,
		now:    time.Now,
	}
}

// Load reads the persisted collection. Malformed stored data is discarded
// and the collection starts empty; load never fails the caller.
func (s *Store) Load() {
	data, err := s.slot.Get(slotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to read stored sessions", zap.Error(err))
		return
	}

	var sessions []*models.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Warn("discarding malformed stored sessions", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
}

// persistLocked writes the whole collection to the slot. Callers hold s.mu.
// A persistence failure degrades to the previously stored state.
func (s *Store) persistLocked() {
	if len(s.sessions) == 0 {
		if err := s.slot.Delete(slotKey); err != nil {
			s.logger.Error("failed to remove stored sessions", zap.Error(err))
		}
		return
	}

	data, err := json.Marshal(s.sessions)
	if err != nil {
		s.logger.Error("failed to serialize sessions", zap.Error(err))
		return
	}
	if err := s.slot.Put(slotKey, data); err != nil {
		s.logger.Error("failed to persist sessions", zap.Error(err))
	}
}

// CreateSession inserts a new session at the front of the collection,
// seeded with the first message, and marks it current. The title is the
// first message's text truncated to 35 characters.
func (s *Store) CreateSession(first models.Message) string {
	title := truncate(first.Content, titleLimit)
	if title == "" {
		title = untitledSession
	}

	session := &models.Session{
		ID:           uuid.NewString(),
		Title:        title,
		Subject:      models.SubjectGeneral,
		Messages:     []models.Message{first},
		LastModified: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]*models.Session{session}, s.sessions...)
	s.current = session.ID
	s.persistLocked()
	return session.ID
}

func (s *Store) AppendMessage(sessionID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.findLocked(sessionID)
	if session == nil {
		return ErrSessionNotFound
	}

	session.Messages = append(session.Messages, msg)
	session.LastModified = s.now()
	s.persistLocked()
	return nil
}

// UpdateMessageContent replaces the content of the message matching
// messageID. It is called once per arriving fragment during streaming, so
// it must stay cheap and must not disturb message ordering.
func (s *Store) UpdateMessageContent(sessionID, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.findLocked(sessionID)
	if session == nil {
		return ErrSessionNotFound
	}

	// The target is the trailing model message, so scan from the end.
	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].ID == messageID {
			session.Messages[i].Content = content
			s.persistLocked()
			return nil
		}
	}
	return ErrMessageNotFound
}

// DeleteSession removes the session. Confirmation is the caller's
// responsibility; the HTTP layer enforces it. If the deleted session was
// current, the current pointer clears.
func (s *Store) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, session := range s.sessions {
		if session.ID == sessionID {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			if s.current == sessionID {
				s.current = ""
			}
			s.persistLocked()
			return nil
		}
	}
	return ErrSessionNotFound
}

// Select makes the named session current and returns a snapshot of it.
func (s *Store) Select(sessionID string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.findLocked(sessionID)
	if session == nil {
		return models.Session{}, ErrSessionNotFound
	}
	s.current = sessionID
	return snapshot(session), nil
}

// ClearCurrent resets the current pointer; new sends will create a fresh
// session.
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
}

func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Get returns a snapshot of the named session.
func (s *Store) Get(sessionID string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.findLocked(sessionID)
	if session == nil {
		return models.Session{}, ErrSessionNotFound
	}
	return snapshot(session), nil
}

// Sessions returns a snapshot of the collection, newest-created first.
func (s *Store) Sessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, snapshot(session))
	}
	return out
}

func (s *Store) findLocked(sessionID string) *models.Session {
	for _, session := range s.sessions {
		if session.ID == sessionID {
			return session
		}
	}
	return nil
}

func snapshot(session *models.Session) models.Session {
	out := *session
	out.Messages = make([]models.Message, len(session.Messages))
	copy(out.Messages, session.Messages)
	return out
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
