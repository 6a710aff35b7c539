package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/models"
	"github.com/shuaib-ai/shuaib/internal/store"
)

var (
	// ErrEmptyTurn means there was nothing to send: no text and no pending
	// attachment.
	ErrEmptyTurn = errors.New("chat: nothing to send")

	// ErrTurnInFlight means a previous turn is still streaming.
	ErrTurnInFlight = errors.New("chat: a turn is already in flight")

	// ErrStreamFailed means the remote stream broke mid-turn; the response
	// message now carries FallbackMessage.
	ErrStreamFailed = errors.New("chat: stream failed")

	// ErrNotConfirmed means a session deletion arrived without the
	// caller-boundary confirmation.
	ErrNotConfirmed = errors.New("chat: deletion not confirmed")
)

// Service drives a conversation turn end to end: it owns the pending-input
// state, the current conversation handle, and the single-flight loading
// guard. Session state itself lives in the store.
type Service struct {
	store  *store.Store
	client Client
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	loading bool
	conv    Conversation
	pending *models.Attachment
}

func NewService(st *store.Store, client Client, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		client: client,
		logger: logger,
		now:    time.Now,
		conv:   client.NewConversation(nil),
	}
}

// Send submits one user turn and drains the response stream, folding each
// fragment into the trailing model message. onFragment, if non-nil, observes
// fragments in arrival order after they have been applied to the store.
//
// Sending with nothing to say, or while another turn is streaming, is a
// no-op reported through the sentinel errors above.
func (s *Service) Send(ctx context.Context, text string, onFragment func(fragment string)) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	attachment := s.pending
	if text == "" && attachment == nil {
		s.mu.Unlock()
		return ErrEmptyTurn
	}
	s.loading = true
	s.pending = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	userMsg := models.Message{
		ID:         models.NewMessageID(),
		Role:       models.RoleUser,
		Content:    text,
		Attachment: attachment,
		Timestamp:  s.now(),
	}

	sessionID := s.store.CurrentID()
	if sessionID == "" {
		sessionID = s.store.CreateSession(userMsg)
		s.mu.Lock()
		s.conv = s.client.NewConversation([]models.Message{userMsg})
		s.mu.Unlock()
	} else if err := s.store.AppendMessage(sessionID, userMsg); err != nil {
		return err
	}

	placeholder := models.Message{
		ID:        models.NewMessageID(),
		Role:      models.RoleModel,
		Content:   "",
		Timestamp: s.now(),
	}
	if err := s.store.AppendMessage(sessionID, placeholder); err != nil {
		return err
	}

	s.mu.Lock()
	conv := s.conv
	s.mu.Unlock()

	stream := conv.SendMessageStream(ctx, text, attachment)
	var acc strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn("response stream failed",
				zap.Error(err),
				zap.String("session_id", sessionID))
			if uerr := s.store.UpdateMessageContent(sessionID, placeholder.ID, FallbackMessage); uerr != nil {
				s.logger.Error("failed to record fallback", zap.Error(uerr))
			}
			return ErrStreamFailed
		}

		acc.WriteString(fragment)
		if err := s.store.UpdateMessageContent(sessionID, placeholder.ID, acc.String()); err != nil {
			return err
		}
		if onFragment != nil {
			onFragment(fragment)
		}
	}
	return nil
}

// SelectSession makes the session current and reseeds the conversation
// handle from its stored history.
func (s *Service) SelectSession(sessionID string) error {
	session, err := s.store.Select(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conv = s.client.NewConversation(session.Messages)
	s.mu.Unlock()
	return nil
}

// NewSession clears the current pointer and all pending input; the next
// send will create a fresh session.
func (s *Service) NewSession() {
	s.store.ClearCurrent()

	s.mu.Lock()
	s.conv = s.client.NewConversation(nil)
	s.pending = nil
	s.mu.Unlock()
}

// DeleteSession removes the session after explicit confirmation. Deleting
// the current session resets the conversation handle.
func (s *Service) DeleteSession(sessionID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	wasCurrent := s.store.CurrentID() == sessionID
	if err := s.store.DeleteSession(sessionID); err != nil {
		return err
	}
	if wasCurrent {
		s.mu.Lock()
		s.conv = s.client.NewConversation(nil)
		s.mu.Unlock()
	}
	return nil
}

// SetPendingAttachment stages a captured attachment for the next send. A
// new capture replaces any uncommitted one.
func (s *Service) SetPendingAttachment(att *models.Attachment) {
	s.mu.Lock()
	s.pending = att
	s.mu.Unlock()
}

func (s *Service) ClearPendingAttachment() {
	s.SetPendingAttachment(nil)
}

// PendingAttachment returns the staged attachment, if any.
func (s *Service) PendingAttachment() *models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
