package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"GemChat/models"
	"GemChat/pkg/cache"
	"GemChat/pkg/utils"

	"go.uber.org/zap"
)

type ImageSource string

const (
	SourcePicsum      ImageSource = "picsum"
	SourceLoremFlickr ImageSource = "loremflickr"
	SourcePlaceholder ImageSource = "placeholder"
	SourceSVG         ImageSource = "svg"
)

// ParseImageSource falls back to picsum for unknown names.
func ParseImageSource(s string) ImageSource {
	switch src := ImageSource(strings.ToLower(strings.TrimSpace(s))); src {
	case SourcePicsum, SourceLoremFlickr, SourcePlaceholder, SourceSVG:
		return src
	}
	return SourcePicsum
}

// ImageResult is the assistant message produced for an image prompt.
type ImageResult struct {
	ID          string             `json:"id"`
	Content     string             `json:"content"`
	ImageURL    string             `json:"image_url"`
	MessageType models.MessageType `json:"message_type"`
	Role        models.Role        `json:"role"`
	CreatedAt   time.Time          `json:"created_at"`
	// Degraded is set when the caption did not come from the provider.
	Degraded bool `json:"-"`
}

func captionPrompt(prompt string) string {
	return fmt.Sprintf(`Create a brief, vivid description in 1-2 sentences of an image that would show: "%s". Focus on visual details, colors, and composition.`, prompt)
}

// FallbackCaption is the caption used when the provider cannot describe the image.
func FallbackCaption(prompt string) string {
	return fmt.Sprintf("A creative and detailed image depicting: %s. The image would feature vibrant colors, clear composition, and artistic visual elements that bring the concept to life.", prompt)
}

func fallbackContent(prompt string) string {
	return fmt.Sprintf(`I understand you want an image of: "%s". While I cannot generate actual images right now, I can imagine it would be a beautiful and detailed visual representation of your request.`, prompt)
}

// ImageURL returns the reference for src. Placeholder services are keyed by
// the millisecond timestamp so repeated prompts get different pictures.
func ImageURL(src ImageSource, prompt string, at time.Time) string {
	id := at.UnixMilli()
	switch src {
	case SourceLoremFlickr:
		return fmt.Sprintf("https://loremflickr.com/500/400/abstract,art?random=%d", id)
	case SourcePlaceholder:
		text := strings.ReplaceAll(url.QueryEscape(utils.Prefix(prompt, 25)), "+", "%20")
		return "https://placeholder.com/500x400/4285f4/ffffff?text=" + text
	case SourceSVG:
		return GradientSVG(prompt)
	}
	return fmt.Sprintf("https://picsum.photos/500/400?random=%d", id)
}

const gradientSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="500" height="400" viewBox="0 0 500 400">
<defs>
<linearGradient id="grad1" x1="0%%" y1="0%%" x2="100%%" y2="100%%">
<stop offset="0%%" style="stop-color:#4285f4;stop-opacity:1"/>
<stop offset="100%%" style="stop-color:#34a853;stop-opacity:1"/>
</linearGradient>
</defs>
<rect width="500" height="400" fill="url(#grad1)"/>
<circle cx="250" cy="200" r="60" fill="#ffffff" opacity="0.8"/>
<text x="50%%" y="45%%" text-anchor="middle" fill="white" font-size="24" font-family="Arial, sans-serif">🎨</text>
<text x="50%%" y="65%%" text-anchor="middle" fill="white" font-size="14" font-family="Arial, sans-serif">%s</text>
<text x="50%%" y="75%%" text-anchor="middle" fill="white" font-size="10" font-family="Arial, sans-serif">AI Generated Image</text>
</svg>`

const warningSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="500" height="400" viewBox="0 0 500 400">
<rect width="500" height="400" fill="#ff6b6b"/>
<circle cx="250" cy="200" r="50" fill="#ffffff" opacity="0.9"/>
<text x="50%%" y="45%%" text-anchor="middle" fill="white" font-size="20">⚠️</text>
<text x="50%%" y="60%%" text-anchor="middle" fill="white" font-size="14" font-family="Arial">Image Generation</text>
<text x="50%%" y="70%%" text-anchor="middle" fill="white" font-size="14" font-family="Arial">Temporarily Unavailable</text>
<text x="50%%" y="85%%" text-anchor="middle" fill="white" font-size="10" font-family="Arial">%s</text>
</svg>`

// GradientSVG is an inline image showing the first 30 characters of prompt.
func GradientSVG(prompt string) string {
	return svgDataURL(fmt.Sprintf(gradientSVG, html.EscapeString(utils.Prefix(prompt, 30))))
}

// WarningSVG is the inline image used when image generation broke entirely.
func WarningSVG(prompt string) string {
	return svgDataURL(fmt.Sprintf(warningSVG, html.EscapeString(utils.Prefix(prompt, 40))))
}

func svgDataURL(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// GenerateImage never fails. A provider failure degrades the caption to a
// template and the reference to an inline SVG; a panic anywhere below yields
// the warning fallback.
func (g *Gateway) GenerateImage(ctx context.Context, prompt, chatID string) (res ImageResult) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("generate image panicked", zap.Any("panic", r), zap.String("chat_id", chatID))
			res = g.fallbackImage(prompt)
		}
	}()

	now := g.now().UTC()
	caption, ok := g.caption(ctx, prompt)

	ref := GradientSVG(prompt)
	if ok {
		ref = ImageURL(g.imageSource, prompt, now)
	}

	g.log.Debug("image generated",
		zap.String("chat_id", chatID),
		zap.Bool("degraded", !ok),
		zap.String("source", string(g.imageSource)),
	)
	return ImageResult{
		ID:          fmt.Sprintf("img_%d", now.UnixMilli()),
		Content:     caption,
		ImageURL:    ref,
		MessageType: models.MessageImage,
		Role:        models.RoleAssistant,
		CreatedAt:   now,
		Degraded:    !ok,
	}
}

// caption reports false when it had to fall back to the template.
func (g *Gateway) caption(ctx context.Context, prompt string) (string, bool) {
	key := cache.KeyFromStrings("caption", g.provider.Name(), g.provider.Model(), strings.TrimSpace(prompt))
	if s, ok := g.captions.Get(key); ok {
		return s, true
	}

	out, err := g.provider.Generate(ctx, captionPrompt(prompt))
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		if err != nil {
			g.log.Warn("caption failed, using template", zap.Error(err))
		}
		return FallbackCaption(prompt), false
	}
	g.captions.Set(key, out, g.captionTTL)
	return out, true
}

func (g *Gateway) fallbackImage(prompt string) ImageResult {
	now := time.Now().UTC()
	return ImageResult{
		ID:          fmt.Sprintf("fallback_%d", now.UnixMilli()),
		Content:     fallbackContent(prompt),
		ImageURL:    WarningSVG(prompt),
		MessageType: models.MessageImage,
		Role:        models.RoleAssistant,
		CreatedAt:   now,
		Degraded:    true,
	}
}
