package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"GemChat/models"
	"GemChat/pkg/store"
	"GemChat/pkg/utils"

	"go.uber.org/zap"
)

type ReplyMode string

const (
	ModeText  ReplyMode = "text"
	ModeImage ReplyMode = "image"
)

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrInvalidMode    = errors.New("mode must be 'text' or 'image'")
)

func ParseReplyMode(s string) (ReplyMode, error) {
	switch ReplyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeText:
		return ModeText, nil
	case ModeImage:
		return ModeImage, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidMode, s)
}

type ReplyRequest struct {
	// ChatID may be empty; a chat titled after the prompt is created then.
	ChatID string
	Prompt string
	Mode   ReplyMode
	// OnUserSaved fires once the user message is stored.
	OnUserSaved func(models.Message)
	// OnDelta receives assistant output as it is produced.
	OnDelta func(string)
}

type Reply struct {
	ChatID    string          `json:"chat_id"`
	User      models.Message  `json:"user_message"`
	Assistant *models.Message `json:"assistant_message,omitempty"`
	// Stopped is set when the caller cancelled and a partial answer was kept.
	Stopped bool `json:"stopped,omitempty"`
}

// Conversations runs the whole exchange on the server: store the user turn,
// ask the gateway, store the assistant turn.
type Conversations struct {
	store   store.Store
	gateway *Gateway
	log     *zap.Logger
}

func NewConversations(s store.Store, g *Gateway, log *zap.Logger) *Conversations {
	return &Conversations{store: s, gateway: g, log: log.Named("conversations")}
}

// Reply returns the stored messages even when text generation fails; in that
// case only the user message is present and err is a *GenerationError.
func (c *Conversations) Reply(ctx context.Context, req ReplyRequest) (Reply, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Reply{}, ErrPromptRequired
	}
	if req.Mode == "" {
		req.Mode = ModeText
	}
	if req.Mode != ModeText && req.Mode != ModeImage {
		return Reply{}, fmt.Errorf("%w: got %q", ErrInvalidMode, req.Mode)
	}

	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		chat, err := c.store.CreateChat(ctx, utils.GenerateChatTitle(req.Prompt))
		if err != nil {
			return Reply{}, err
		}
		chatID = chat.ID
	}

	prior, err := c.store.ListMessages(ctx, chatID)
	if err != nil {
		return Reply{}, err
	}
	history := models.TurnsFromMessages(prior)

	userDraft, err := models.TextDraft(req.Prompt, models.RoleUser)
	if err != nil {
		return Reply{}, err
	}
	userMsg, err := c.store.AppendMessage(ctx, chatID, userDraft)
	if err != nil {
		return Reply{}, err
	}
	out := Reply{ChatID: chatID, User: userMsg}
	if req.OnUserSaved != nil {
		req.OnUserSaved(userMsg)
	}

	var draft models.MessageDraft
	switch req.Mode {
	case ModeImage:
		img := c.gateway.GenerateImage(ctx, req.Prompt, chatID)
		if req.OnDelta != nil {
			req.OnDelta(img.Content)
		}
		draft, err = models.NewMessageDraft(img.Content, models.RoleAssistant, models.MessageImage, img.ImageURL)
	default:
		text, genErr := c.gateway.StreamText(ctx, req.Prompt, history, req.OnDelta)
		if genErr != nil {
			// Keep what was streamed before the caller hung up.
			if ctx.Err() == nil || strings.TrimSpace(text) == "" {
				return out, genErr
			}
			out.Stopped = true
			ctx = context.WithoutCancel(ctx)
		}
		draft, err = models.TextDraft(text, models.RoleAssistant)
	}
	if err != nil {
		return out, err
	}

	assistant, err := c.store.AppendMessage(ctx, chatID, draft)
	if err != nil {
		return out, err
	}
	out.Assistant = &assistant
	c.log.Debug("reply stored",
		zap.String("chat_id", chatID),
		zap.String("mode", string(req.Mode)),
		zap.Bool("stopped", out.Stopped),
	)
	return out, nil
}
