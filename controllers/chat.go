package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"GemChat/middleware"
	"GemChat/models"
	"GemChat/pkg/services"
	"GemChat/pkg/store"

	"github.com/gin-gonic/gin"
)

func ListChats(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		chats, err := s.ListChats(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to get chats"})
			return
		}
		c.JSON(http.StatusOK, chats)
	}
}

func CreateChat(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Title string `json:"title"`
		}
		// the body is optional
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		chat, err := s.CreateChat(c.Request.Context(), body.Title)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create chat"})
			return
		}
		c.JSON(http.StatusCreated, chat)
	}
}

func ListMessages(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := s.ListMessages(c.Request.Context(), c.Param("chat_id"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to get messages"})
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

type addMessageBody struct {
	Content     *string `json:"content"`
	Role        string  `json:"role"`
	MessageType string  `json:"message_type"`
	ImageURL    string  `json:"image_url"`
}

// draft validates the body at the boundary; its errors are shown verbatim.
func (b addMessageBody) draft() (models.MessageDraft, error) {
	if b.Content == nil {
		return models.MessageDraft{}, errors.New("content is required")
	}
	role, err := models.ParseRole(b.Role)
	if err != nil {
		return models.MessageDraft{}, err
	}
	mt, err := models.ParseMessageType(b.MessageType)
	if err != nil {
		return models.MessageDraft{}, err
	}
	return models.NewMessageDraft(*b.Content, role, mt, b.ImageURL)
}

func AddMessage(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body addMessageBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}
		draft, err := body.draft()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
			return
		}

		msg, err := s.AppendMessage(c.Request.Context(), c.Param("chat_id"), draft)
		if err != nil {
			if errors.Is(err, store.ErrChatIDRequired) {
				c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to add message"})
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func DeleteChat(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.DeleteChat(c.Request.Context(), c.Param("chat_id")); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to delete chat"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Reply runs the full exchange for one prompt on the server and returns both
// stored messages.
func Reply(conv *services.Conversations, limiter *middleware.Limiter, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Prompt string `json:"prompt"`
			Mode   string `json:"mode"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}
		if strings.TrimSpace(body.Prompt) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": services.ErrPromptRequired.Error()})
			return
		}
		mode, err := services.ParseReplyMode(body.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
			return
		}

		chatID := c.Param("chat_id")
		caller := middleware.CallerKey(c)
		dupKey := caller + "|" + chatID
		if !limiter.DuplicateGuard(dupKey, body.Prompt) {
			c.JSON(http.StatusConflict, gin.H{"msg": "duplicate message, please wait before resending"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		release, err := limiter.AcquireUserSlot(ctx, caller)
		if err != nil {
			limiter.ForgetPrompt(dupKey)
			c.JSON(http.StatusTooManyRequests, gin.H{"msg": "too many replies in progress"})
			return
		}
		defer release()

		reply, err := conv.Reply(ctx, services.ReplyRequest{ChatID: chatID, Prompt: body.Prompt, Mode: mode})
		if err != nil {
			// a failed reply may be resubmitted right away
			limiter.ForgetPrompt(dupKey)
			var ge *services.GenerationError
			if errors.As(err, &ge) {
				_ = c.Error(ge.Cause)
				c.JSON(ge.HTTPStatus(), gin.H{"msg": ge.Error(), "chat_id": reply.ChatID, "user_message": reply.User})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to reply"})
			return
		}
		c.JSON(http.StatusCreated, reply)
	}
}
