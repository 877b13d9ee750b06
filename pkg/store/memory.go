package store

import (
	"context"
	"sort"
	"sync"

	"GemChat/models"

	"github.com/google/uuid"
)

// Memory keeps everything in process maps guarded by one mutex.
type Memory struct {
	mu       sync.Mutex
	clock    *clock
	chats    map[string]models.Chat
	messages map[string][]models.Message
}

func NewMemory() *Memory {
	return &Memory{
		clock:    newClock(),
		chats:    map[string]models.Chat{},
		messages: map[string][]models.Message{},
	}
}

func (m *Memory) ListChats(ctx context.Context) ([]models.Chat, error) {
	m.mu.Lock()
	out := make([]models.Chat, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, c)
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *Memory) CreateChat(ctx context.Context, title string) (models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	chat := models.Chat{
		ID:        uuid.NewString(),
		Title:     normalizeTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.chats[chat.ID] = chat
	m.messages[chat.ID] = []models.Message{}
	return chat, nil
}

func (m *Memory) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	m.mu.Lock()
	out := append([]models.Message{}, m.messages[chatID]...)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AppendMessage(ctx context.Context, chatID string, draft models.MessageDraft) (models.Message, error) {
	if err := checkDraft(chatID, draft); err != nil {
		return models.Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg := draft.Materialize(uuid.NewString(), chatID, m.clock.Now())
	m.messages[chatID] = append(m.messages[chatID], msg)
	if chat, ok := m.chats[chatID]; ok {
		chat.UpdatedAt = msg.CreatedAt
		m.chats[chatID] = chat
	}
	return msg, nil
}

func (m *Memory) DeleteChat(ctx context.Context, chatID string) error {
	m.mu.Lock()
	delete(m.chats, chatID)
	delete(m.messages, chatID)
	m.mu.Unlock()
	return nil
}
