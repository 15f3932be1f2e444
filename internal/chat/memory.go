// Package chat answers questions from retrieved context and keeps per-session conversation memory.
package chat

import (
	"strings"
	"sync"

	"github.com/hyperjump/kbassist/internal/models"
)

// HistoryWindow is the number of most recent messages included in a prompt.
const HistoryWindow = 10

// Memory is a conversation buffer safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// AddUser appends a user message.
func (m *Memory) AddUser(content string) {
	m.add(models.RoleUser, content)
}

// AddAssistant appends an assistant message.
func (m *Memory) AddAssistant(content string) {
	m.add(models.RoleAssistant, content)
}

func (m *Memory) add(role models.Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, models.Message{Role: role, Content: content})
}

// Messages returns a copy of every message.
func (m *Memory) Messages() []models.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Message(nil), m.messages...)
}

// Len returns the number of messages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Clear drops every message.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Format renders the last HistoryWindow messages as "User: ..." and
// "Assistant: ..." lines.
func (m *Memory) Format() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages
	if len(msgs) > HistoryWindow {
		msgs = msgs[len(msgs)-HistoryWindow:]
	}
	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		speaker := "Assistant"
		if msg.Role == models.RoleUser {
			speaker = "User"
		}
		lines[i] = speaker + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}
