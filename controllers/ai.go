package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"GemChat/models"
	"GemChat/pkg/services"

	"github.com/gin-gonic/gin"
)

// AIController exposes the completion gateway directly.
type AIController struct {
	gateway *services.Gateway
	timeout time.Duration
}

func NewAIController(g *services.Gateway, timeout time.Duration) *AIController {
	return &AIController{gateway: g, timeout: timeout}
}

type turnBody struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateTextRequest struct {
	Prompt      *string    `json:"prompt"`
	ChatHistory []turnBody `json:"chat_history"`
}

func (r generateTextRequest) history() ([]models.Turn, error) {
	turns := make([]models.Turn, 0, len(r.ChatHistory))
	for _, t := range r.ChatHistory {
		role, err := models.ParseRole(t.Role)
		if err != nil {
			return nil, err
		}
		turns = append(turns, models.Turn{Role: role, Content: t.Content})
	}
	return turns, nil
}

// GenerateText handles POST /ai/text
func (ctrl *AIController) GenerateText(c *gin.Context) {
	var req generateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}
	if req.Prompt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "prompt is required"})
		return
	}
	history, err := req.history()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	text, err := ctrl.gateway.GenerateText(ctx, *req.Prompt, history)
	if err != nil {
		var ge *services.GenerationError
		if errors.As(err, &ge) {
			_ = c.Error(ge.Cause)
			c.JSON(ge.HTTPStatus(), gin.H{"msg": ge.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"msg": services.ErrGenerationFailed.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// GenerateImage handles POST /ai/image. It always answers 200 once the
// request is well formed.
func (ctrl *AIController) GenerateImage(c *gin.Context) {
	var req struct {
		Prompt *string `json:"prompt"`
		ChatID string  `json:"chat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}
	if req.Prompt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "prompt is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	c.JSON(http.StatusOK, ctrl.gateway.GenerateImage(ctx, *req.Prompt, req.ChatID))
}

// Health handles GET /ai/health
func (ctrl *AIController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.gateway.Health())
}

// Test handles POST /ai/test
func (ctrl *AIController) Test(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	c.JSON(http.StatusOK, ctrl.gateway.Test(ctx, req.Message))
}
