package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"GemChat/middleware"
	"GemChat/models"
	"GemChat/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

type wsStartPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
	Mode    string `json:"mode"`
}

// ChatWS streams one reply per connection.
// Client protocol (JSON messages):
//
//	-> {type: "start", message: string, chat_id?: string, mode?: "text"|"image"}
//	<- {type: "user_saved", chat_id: string, message: Message}
//	<- {type: "delta", data: string}
//	<- {type: "message", message: Message}
//	<- {type: "done", ok: true, stopped?: true}
//	<- {type: "error", error: string}
//	-> {type: "stop"} at any time cuts the stream; the partial answer is kept.
func ChatWS(auth *middleware.Auth, conv *services.Conversations, limiter *middleware.Limiter, log *zap.Logger, timeout time.Duration) gin.HandlerFunc {
	log = log.Named("ws")
	return func(c *gin.Context) {
		// Authenticate via ?token=JWT
		userID := middleware.AnonymousUser
		tokenStr := strings.TrimSpace(c.Query("token"))
		switch {
		case tokenStr != "":
			claims, err := auth.ParseToken(tokenStr)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
				return
			}
			userID = claims.Subject
			c.Set(middleware.ContextUserIDKey, userID)
		case auth.Required():
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("upgrade error", zap.Error(err))
			return
		}
		defer conn.Close()

		conn.SetReadLimit(1 << 20) // 1MB
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})

		// Read exactly one start message per connection
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			log.Debug("read start error", zap.Error(err))
			return
		}
		var start wsStartPayload
		if err := json.Unmarshal(msgBytes, &start); err != nil || strings.ToLower(start.Type) != "start" || strings.TrimSpace(start.Message) == "" {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": "invalid start payload"})
			return
		}
		mode, err := services.ParseReplyMode(start.Mode)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		release, err := limiter.AcquireUserSlot(ctx, middleware.CallerKey(c))
		if err != nil {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": "too many replies in progress"})
			return
		}
		defer release()

		// Reader goroutine listens for {type:"stop"}
		var stopOnce sync.Once
		stopped := make(chan struct{})
		go func() {
			for {
				if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
					return
				}
				mt, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
					continue
				}
				var obj struct {
					Type string `json:"type"`
				}
				_ = json.Unmarshal(msg, &obj)
				if strings.ToLower(strings.TrimSpace(obj.Type)) == "stop" {
					stopOnce.Do(func() {
						close(stopped)
						cancel()
					})
					return
				}
			}
		}()

		reply, err := conv.Reply(ctx, services.ReplyRequest{
			ChatID: start.ChatID,
			Prompt: start.Message,
			Mode:   mode,
			OnUserSaved: func(m models.Message) {
				_ = conn.WriteJSON(gin.H{"type": "user_saved", "chat_id": m.ChatID, "message": m})
			},
			OnDelta: func(s string) {
				_ = conn.WriteJSON(gin.H{"type": "delta", "data": s})
			},
		})
		if err != nil {
			var ge *services.GenerationError
			msg := "failed to reply"
			if errors.As(err, &ge) {
				msg = ge.Error()
			} else if errors.Is(err, services.ErrPromptRequired) {
				msg = err.Error()
			}
			log.Warn("reply failed",
				zap.String("request_id", middleware.RequestID(c)),
				zap.String("user", userID),
				zap.String("chat_id", reply.ChatID),
				zap.Error(err),
			)
			_ = conn.WriteJSON(gin.H{"type": "error", "error": msg})
			return
		}

		_ = conn.WriteJSON(gin.H{"type": "message", "message": reply.Assistant})

		select {
		case <-stopped:
			_ = conn.WriteJSON(gin.H{"type": "done", "ok": true, "stopped": true})
		default:
			_ = conn.WriteJSON(gin.H{"type": "done", "ok": true})
		}
	}
}
