package response

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aptihub/chatetl/internal/models"
)

// conversationMemory holds the bounded per-user Q/A history used to build
// the previous-context block.
type conversationMemory struct {
	mu       sync.Mutex
	turns    map[string][]models.ConversationTurn
	topics   map[string]string
	maxTurns int
}

func newConversationMemory(maxTurns int) *conversationMemory {
	if maxTurns <= 0 {
		maxTurns = 5
	}
	return &conversationMemory{
		turns:    make(map[string][]models.ConversationTurn),
		topics:   make(map[string]string),
		maxTurns: maxTurns,
	}
}

// record appends a turn, evicting the oldest beyond the bound
func (m *conversationMemory) record(userID, question, answer, topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.turns[userID], models.ConversationTurn{
		UserID:    userID,
		Question:  question,
		Response:  answer,
		CreatedAt: time.Now().UTC(),
	})
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	m.turns[userID] = turns
	if topic != "" {
		m.topics[userID] = topic
	}
}

// previousContext renders the recent turns into a compact block, newest
// last. Responses are truncated to keep the block small.
func (m *conversationMemory) previousContext(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.turns[userID]
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	for _, turn := range turns {
		answer := turn.Response
		if runes := []rune(answer); len(runes) > 200 {
			answer = string(runes[:200]) + "..."
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *conversationMemory) turnCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns[userID])
}
