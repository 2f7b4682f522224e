package conversation

import (
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/skintell/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewStore(node)
}

func TestNewStoreStartsWithGreeting(t *testing.T) {
	s := newTestStore(t)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Text)
	assert.Equal(t, domain.SenderAssistant, msgs[0].Sender)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestAppendPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	first := s.Append("my cheeks are dry", domain.SenderUser, "")
	second := s.Append("Try a ceramide moisturizer.", domain.SenderAssistant, "")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, first, msgs[1])
	assert.Equal(t, second, msgs[2])
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, msgs[2].CreatedAt.Before(msgs[1].CreatedAt))
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := newTestStore(t)

	msgs := s.Messages()
	msgs[0].Text = "tampered"

	assert.Equal(t, Greeting, s.Messages()[0].Text)
}

func TestConcurrentAppendsKeepUniqueIDs(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append("hello", domain.SenderUser, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 51, s.Len())
	seen := make(map[string]bool)
	for _, m := range s.Messages() {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}
