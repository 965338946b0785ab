package advisor

import (
	"context"
	"sync"
	"time"

	"github.com/watson9049/billygold-website/internal/domain"
)

// MaxStoredMessages caps each in-memory conversation.
const MaxStoredMessages = 50

// MemoryStore keeps conversations in process memory, dropping the oldest
// messages beyond MaxStoredMessages. Used when no database is configured.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string][]domain.ConversationMessage
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string][]domain.ConversationMessage),
		now:           time.Now,
	}
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.conversations[conversationID], domain.ConversationMessage{
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if len(msgs) > MaxStoredMessages {
		msgs = append([]domain.ConversationMessage(nil), msgs[len(msgs)-MaxStoredMessages:]...)
	}
	s.conversations[conversationID] = msgs
	return nil
}

// RecentMessages returns up to limit messages, oldest first.
func (s *MemoryStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ConversationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.conversations[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]domain.ConversationMessage(nil), msgs...), nil
}
