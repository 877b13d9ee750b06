package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

var (
	ErrInvalidRole        = errors.New("role must be 'user' or 'assistant'")
	ErrInvalidMessageType = errors.New("message_type must be 'text' or 'image'")
	ErrImageURLRequired   = errors.New("image_url is required for image messages")
	ErrImageURLForbidden  = errors.New("image_url is only allowed for image messages")
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidRole, s)
}

// ParseMessageType treats an empty value as text.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(strings.ToLower(strings.TrimSpace(s))) {
	case "", MessageText:
		return MessageText, nil
	case MessageImage:
		return MessageImage, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidMessageType, s)
}

type Message struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	ChatID      string      `json:"chat_id" gorm:"size:36;index;not null"`
	Content     string      `json:"content" gorm:"type:text;not null"`
	Role        Role        `json:"role" gorm:"size:20;not null"`
	MessageType MessageType `json:"message_type" gorm:"size:20;not null"`
	ImageURL    string      `json:"image_url,omitempty" gorm:"type:text"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null;index;precision:6;autoCreateTime:false"`
}

// MessageDraft is a validated message that has not been stored yet.
// Build it with NewMessageDraft so that an image URL is present exactly
// when the message is an image.
type MessageDraft struct {
	content     string
	role        Role
	messageType MessageType
	imageURL    string
}

func NewMessageDraft(content string, role Role, messageType MessageType, imageURL string) (MessageDraft, error) {
	if role != RoleUser && role != RoleAssistant {
		return MessageDraft{}, fmt.Errorf("%w: got %q", ErrInvalidRole, role)
	}
	imageURL = strings.TrimSpace(imageURL)
	switch messageType {
	case MessageText:
		if imageURL != "" {
			return MessageDraft{}, ErrImageURLForbidden
		}
	case MessageImage:
		if imageURL == "" {
			return MessageDraft{}, ErrImageURLRequired
		}
	default:
		return MessageDraft{}, fmt.Errorf("%w: got %q", ErrInvalidMessageType, messageType)
	}
	return MessageDraft{content: content, role: role, messageType: messageType, imageURL: imageURL}, nil
}

// TextDraft builds a plain text draft; it cannot fail for a known role.
func TextDraft(content string, role Role) (MessageDraft, error) {
	return NewMessageDraft(content, role, MessageText, "")
}

func (d MessageDraft) Content() string { return d.content }
func (d MessageDraft) Role() Role { return d.role }
func (d MessageDraft) MessageType() MessageType { return d.messageType }
func (d MessageDraft) ImageURL() string { return d.imageURL }

// Materialize stamps the draft with its identity.
func (d MessageDraft) Materialize(id, chatID string, at time.Time) Message {
	return Message{
		ID:          id,
		ChatID:      chatID,
		Content:     d.content,
		Role:        d.role,
		MessageType: d.messageType,
		ImageURL:    d.imageURL,
		CreatedAt:   at,
	}
}

// Turn is one entry of conversation history sent to a text provider.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnsFromMessages converts stored messages into history turns.
func TurnsFromMessages(msgs []Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
