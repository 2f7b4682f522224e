package conversation

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/vbonduro/skintell/internal/domain"
)

// Greeting is the assistant's opening message in every new conversation.
const Greeting = "Hi! I'm SkinTell, your AI skincare assistant. I can help you with " +
	"skincare routines, product recommendations, and answer any beauty questions " +
	"you have. How can I assist you today?"

// Store is an append-only, ordered message log for one chat.
type Store struct {
	mu       sync.RWMutex
	node     *snowflake.Node
	now      func() time.Time
	messages []domain.Message
}

// NewStore returns a store seeded with the greeting. IDs are generated from
// node, which may be shared across stores.
func NewStore(node *snowflake.Node) *Store {
	s := &Store{node: node, now: time.Now}
	s.Append(Greeting, domain.SenderAssistant, "")
	return s
}

// Append adds a message at the end of the log and returns it.
func (s *Store) Append(text string, sender domain.Sender, image string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.Message{
		ID:        s.node.Generate().String(),
		Text:      text,
		Sender:    sender,
		CreatedAt: s.now(),
		Image:     image,
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages returns a copy of the log in insertion order.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
