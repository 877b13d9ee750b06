// Package store owns chat and message records.
//
// Reads are lenient: an unknown chat id yields an empty message list.
// Mutations are idempotent where that makes sense: deleting a chat that
// does not exist succeeds.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"GemChat/models"
)

var (
	ErrChatIDRequired = errors.New("chat id is required")
	ErrEmptyDraft     = errors.New("message draft is empty")
)

// Store is implemented by the in-memory map and by the gorm backed store.
type Store interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	CreateChat(ctx context.Context, title string) (models.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	AppendMessage(ctx context.Context, chatID string, draft models.MessageDraft) (models.Message, error)
	DeleteChat(ctx context.Context, chatID string) error
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.DefaultChatTitle
	}
	return title
}

func checkDraft(chatID string, d models.MessageDraft) error {
	if strings.TrimSpace(chatID) == "" {
		return ErrChatIDRequired
	}
	if d.Role() == "" {
		return ErrEmptyDraft
	}
	return nil
}

// clock hands out strictly increasing timestamps at microsecond precision,
// the finest resolution every supported database keeps.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock() *clock {
	return &clock{now: time.Now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
